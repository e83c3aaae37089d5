// Package main provides a tool to seed a workspace with sample tags.
//
// It creates a cast of tags across every category, relates some of them and
// scatters them over a set of nodes so the stats, graph and live views have
// something to show.
//
// Usage:
//
//	DATA_PATH=~/Inkwell/tagstore go run ./cmd/seed
//	DATA_PATH=~/Inkwell/tagstore go run ./cmd/seed --workspace demo --nodes 50
//	STORAGE_BACKEND=sqlite go run ./cmd/seed
//	go run ./cmd/seed --config tagstore.toml
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/inkwell/tagstore/internal/config"
	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/logger"
	"github.com/inkwell/tagstore/internal/service"
	"github.com/inkwell/tagstore/internal/store"
	"github.com/inkwell/tagstore/internal/store/backend"
)

var (
	workspace  = flag.String("workspace", "demo", "Workspace to seed")
	nodeCount  = flag.Int("nodes", 20, "Number of nodes to tag")
	configFile = flag.String("config", "", "Path to a TOML config file")
)

type seedTag struct {
	name     string
	category domain.Category
}

var seedTags = []seedTag{
	{"Aria", domain.CategoryCharacter},
	{"Corvin", domain.CategoryCharacter},
	{"The Warden", domain.CategoryCharacter},
	{"Saltmarsh", domain.CategoryLocation},
	{"The Glass Tower", domain.CategoryLocation},
	{"Ember Blade", domain.CategoryItem},
	{"The Drowned Crown", domain.CategoryItem},
	{"Siege of Saltmarsh", domain.CategoryEvent},
	{"Betrayal", domain.CategoryTheme},
	{"Redemption", domain.CategoryTheme},
	{"Foreshadowing", domain.CategoryCustom},
}

type seedRelation struct {
	source, target string
	kind           domain.RelationType
	weight         int
}

var seedRelations = []seedRelation{
	{"Aria", "Corvin", domain.RelationKnows, 80},
	{"Corvin", "The Warden", domain.RelationConflict, 90},
	{"Aria", "Ember Blade", domain.RelationOwns, 70},
	{"The Warden", "The Glass Tower", domain.RelationBelongs, 60},
	{"Siege of Saltmarsh", "Saltmarsh", domain.RelationRelated, 100},
	{"Corvin", "Betrayal", domain.RelationRelated, 40},
	{"Aria", "Redemption", domain.RelationRelated, 55},
}

func main() {
	flag.Parse()

	log := logger.New(logger.Config{Environment: "development"})

	storage, err := config.LoadStorage("", "", ".env", *configFile)
	if err != nil {
		log.Error("Invalid storage config", "error", err)
		os.Exit(1)
	}

	st, dbPath, err := backend.Open(storage, log.Component("store"), store.NewNoopEmitter())
	if err != nil {
		log.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	fmt.Printf("Opened database at: %s\n", dbPath)

	ctx := context.Background()
	tags := service.NewTagService(st, log.Component("seed"))

	byName := make(map[string]*domain.Tag, len(seedTags))
	for _, s := range seedTags {
		tag, created, err := tags.GetOrCreateTag(ctx, *workspace, s.name, s.category)
		if err != nil {
			log.Error("Failed to create tag", "name", s.name, "error", err)
			os.Exit(1)
		}
		byName[s.name] = tag
		if created {
			fmt.Printf("  + tag %-22s %s\n", tag.Name, tag.Category)
		}
	}

	for _, r := range seedRelations {
		weight := r.weight
		_, err := tags.CreateTagRelation(ctx, domain.TagRelationCreateInput{
			Workspace:    *workspace,
			SourceTagID:  byName[r.source].ID,
			TargetTagID:  byName[r.target].ID,
			RelationType: r.kind,
			Weight:       &weight,
		})
		if err != nil {
			log.Error("Failed to relate tags", "source", r.source, "target", r.target, "error", err)
			continue
		}
		fmt.Printf("  ~ %s -[%s]-> %s\n", r.source, r.kind, r.target)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	associations := 0
	for n := range *nodeCount {
		nodeID := fmt.Sprintf("%s-node-%03d", *workspace, n+1)

		picked := rng.Perm(len(seedTags))[:1+rng.Intn(4)]
		ids := make([]string, 0, len(picked))
		for _, idx := range picked {
			ids = append(ids, byName[seedTags[idx].name].ID)
		}
		if err := tags.SyncNodeTags(ctx, nodeID, ids); err != nil {
			log.Error("Failed to tag node", "node_id", nodeID, "error", err)
			continue
		}
		associations += len(ids)
	}

	stats, err := tags.GetTagsWithStats(ctx, *workspace)
	if err != nil {
		log.Error("Failed to read stats", "error", err)
		os.Exit(1)
	}

	fmt.Printf("\nSeeded %d tags, %d relations, %d associations over %d nodes\n",
		len(byName), len(seedRelations), associations, *nodeCount)
	for _, s := range stats {
		fmt.Printf("  %-22s %3d\n", s.Name, s.UsageCount)
	}
}
