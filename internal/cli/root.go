// Package cli implements the tagctl commands, which operate on a tagstore
// data directory directly without going through the HTTP server.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkwell/tagstore/internal/config"
	"github.com/inkwell/tagstore/internal/logger"
	"github.com/inkwell/tagstore/internal/service"
	"github.com/inkwell/tagstore/internal/store"
	"github.com/inkwell/tagstore/internal/store/backend"
)

type options struct {
	dataPath   string
	backend    string
	workspace  string
	envFile    string
	configFile string
	verbose    bool

	storage config.StorageConfig
}

// NewRootCmd builds the tagctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "tagctl",
		Short:        "Manage tags in a tagstore data directory",
		Long:         "tagctl reads and edits tags, node associations and relations. Output is JSON.",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			storage, err := config.LoadStorage(opts.backend, opts.dataPath, opts.envFile, opts.configFile)
			if err != nil {
				return err
			}
			opts.storage = storage
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.dataPath, "data", "d", "", "Data directory (default: $DATA_PATH or ~/Inkwell/tagstore)")
	root.PersistentFlags().StringVarP(&opts.backend, "backend", "b", "", "Storage backend: badger or sqlite (default: $STORAGE_BACKEND or badger)")
	root.PersistentFlags().StringVarP(&opts.workspace, "workspace", "w", "", "Workspace (default: $TAGSTORE_WORKSPACE or default)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to .env file")
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to a TOML config file (default: $CONFIG_FILE)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log store activity to stderr")

	root.AddCommand(
		newTagsCmd(opts),
		newSearchCmd(opts),
		newStatsCmd(opts),
		newGraphCmd(opts),
		newRelateCmd(opts),
		newRelationsCmd(opts),
		newNodeCmd(opts),
	)
	return root
}

func (o *options) ws() string {
	if o.workspace != "" {
		return o.workspace
	}
	if env := os.Getenv("TAGSTORE_WORKSPACE"); env != "" {
		return env
	}
	return "default"
}

func (o *options) newLogger(cmd *cobra.Command) *logger.Logger {
	if !o.verbose {
		return logger.Discard()
	}
	return logger.New(logger.Config{
		Writer:      cmd.ErrOrStderr(),
		Environment: "development",
		Level:       slog.LevelDebug,
	})
}

// openService opens the store and returns a tag service over it.
// The caller must call the returned close func.
func (o *options) openService(cmd *cobra.Command) (*service.TagService, func(), error) {
	log := o.newLogger(cmd)
	st, _, err := backend.Open(o.storage, log.Component("store"), store.NewNoopEmitter())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return service.NewTagService(st, log.Component("tags")), func() { _ = st.Close() }, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

func printOK(cmd *cobra.Command, fields map[string]any) error {
	out := map[string]any{"ok": true}
	for k, v := range fields {
		out[k] = v
	}
	return printJSON(cmd, out)
}
