package cli

import (
	"github.com/spf13/cobra"

	"github.com/inkwell/tagstore/internal/domain"
)

func newTagsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List and edit tags",
	}
	cmd.AddCommand(
		newTagsListCmd(opts),
		newTagsShowCmd(opts),
		newTagsCreateCmd(opts),
		newTagsRenameCmd(opts),
		newTagsRmCmd(opts),
	)
	return cmd
}

func newTagsListCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the workspace's tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			category, _ := cmd.Flags().GetString("category")

			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			var list []domain.Tag
			if category != "" {
				list, err = tags.ListTagsByCategory(cmd.Context(), opts.ws(), domain.Category(category))
			} else {
				list, err = tags.ListTags(cmd.Context(), opts.ws())
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, nonNil(list))
		},
	}
	cmd.Flags().StringP("category", "c", "", "Only tags of this category")
	return cmd
}

func newTagsShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show TAG_ID",
		Short: "Show a tag with the nodes that carry it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			tag, err := tags.GetTag(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			nodes, err := tags.NodesWithTag(cmd.Context(), tag.ID)
			if err != nil {
				return err
			}
			return printJSON(cmd, struct {
				*domain.Tag
				Nodes []string `json:"nodes"`
			}{tag, nonNil(nodes)})
		},
	}
}

func newTagsCreateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")
			color, _ := cmd.Flags().GetString("color")
			icon, _ := cmd.Flags().GetString("icon")
			description, _ := cmd.Flags().GetString("description")

			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			tag, err := tags.CreateTag(cmd.Context(), domain.TagCreateInput{
				Workspace:   opts.ws(),
				Name:        args[0],
				Category:    domain.Category(category),
				Color:       color,
				Icon:        icon,
				Description: description,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, tag)
		},
	}
	cmd.Flags().StringP("category", "c", "", "character, location, item, event, theme or custom")
	cmd.Flags().String("color", "", "Color as #RRGGBB (default: the category's color)")
	cmd.Flags().String("icon", "", "Icon name")
	cmd.Flags().String("description", "", "Description")
	return cmd
}

func newTagsRenameCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename TAG_ID NAME",
		Short: "Rename a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			name := args[1]
			tag, err := tags.UpdateTag(cmd.Context(), args[0], domain.TagUpdateInput{Name: &name})
			if err != nil {
				return err
			}
			return printJSON(cmd, tag)
		},
	}
}

func newTagsRmCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rm TAG_ID",
		Short: "Delete a tag with its associations and relations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := tags.DeleteTag(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printOK(cmd, map[string]any{"id": args[0]})
		},
	}
}

func newSearchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Find tags whose name contains QUERY, ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			found, err := tags.SearchTags(cmd.Context(), opts.ws(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, nonNil(found))
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "List tags with usage counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			stats, err := tags.GetTagsWithStats(cmd.Context(), opts.ws())
			if err != nil {
				return err
			}
			return printJSON(cmd, nonNil(stats))
		},
	}
}

func newGraphCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the workspace's tag graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			graph, err := tags.GetTagGraph(cmd.Context(), opts.ws())
			if err != nil {
				return err
			}
			return printJSON(cmd, graph)
		},
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
