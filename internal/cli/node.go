package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkwell/tagstore/internal/domain"
)

func newNodeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Inspect and edit a node's tags",
	}
	cmd.AddCommand(
		newNodeTagsCmd(opts),
		newNodeLinkCmd(opts),
		newNodeSetCmd(opts),
		newNodeSyncContentCmd(opts),
	)
	return cmd
}

func newNodeTagsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags NODE_ID",
		Short: "List a node's tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, _ := cmd.Flags().GetBool("rows")

			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if rows {
				nts, err := tags.NodeTagsForNode(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, nonNil(nts))
			}
			list, err := tags.TagsForNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, nonNil(list))
		},
	}
	cmd.Flags().Bool("rows", false, "Print association rows with mentions and positions")
	return cmd
}

func newNodeLinkCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link NODE_ID TAG_ID",
		Short: "Add a tag to a node, or remove it with --rm",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rm, _ := cmd.Flags().GetBool("rm")

			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if rm {
				if err := tags.RemoveTagFromNode(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				return printOK(cmd, map[string]any{"node_id": args[0], "tag_id": args[1]})
			}

			nt, err := tags.AddTagToNode(cmd.Context(), domain.NodeTagCreateInput{NodeID: args[0], TagID: args[1]})
			if err != nil {
				return err
			}
			return printJSON(cmd, nt)
		},
	}
	cmd.Flags().Bool("rm", false, "Remove the tag from the node")
	return cmd
}

func newNodeSetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set NODE_ID [TAG_ID...]",
		Short: "Make the node's tag set exactly the given tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := tags.SyncNodeTags(cmd.Context(), args[0], args[1:]); err != nil {
				return err
			}
			rows, err := tags.NodeTagsForNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, nonNil(rows))
		},
	}
}

func newNodeSyncContentCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-content NODE_ID FILE",
		Short: "Sync a node's tags from a saved editor document (- reads stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[1])
			if err != nil {
				return err
			}

			tags, closeFn, err := opts.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := tags.SyncTagsFromContent(cmd.Context(), args[0], doc)
			if err != nil {
				return err
			}
			return printJSON(cmd, nonNil(rows))
		},
	}
}

func readDocument(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(b), nil
}
