package cli

import (
	"github.com/spf13/cobra"

	"github.com/inkwell/tagstore/internal/domain"
)

func newRelateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relate SOURCE_TAG_ID TARGET_TAG_ID",
		Short: "Relate two tags, or remove the relation with --rm",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			relType, _ := cmd.Flags().GetString("type")
			description, _ := cmd.Flags().GetString("description")
			rm, _ := cmd.Flags().GetBool("rm")

			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if rm {
				if err := tags.DeleteTagRelationBetween(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				return printOK(cmd, map[string]any{"source_tag_id": args[0], "target_tag_id": args[1]})
			}

			in := domain.TagRelationCreateInput{
				Workspace:    opts.ws(),
				SourceTagID:  args[0],
				TargetTagID:  args[1],
				RelationType: domain.RelationType(relType),
				Description:  description,
			}
			if cmd.Flags().Changed("weight") {
				weight, _ := cmd.Flags().GetInt("weight")
				in.Weight = &weight
			}

			rel, err := tags.CreateTagRelation(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd, rel)
		},
	}
	cmd.Flags().StringP("type", "t", "", "Relation type (default: related)")
	cmd.Flags().Int("weight", 0, "Strength 0..100 (default: 50)")
	cmd.Flags().String("description", "", "Description")
	cmd.Flags().Bool("rm", false, "Remove the relation from source to target")
	return cmd
}

func newRelationsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "relations [TAG_ID]",
		Short: "List relations in the workspace, or those touching one tag",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			var rels []domain.TagRelation
			if len(args) == 1 {
				rels, err = tags.TagRelationsForTag(cmd.Context(), args[0])
			} else {
				rels, err = tags.ListTagRelations(cmd.Context(), opts.ws())
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, nonNil(rels))
		},
	}
}
