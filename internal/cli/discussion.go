package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newDiscussionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "discussion", Short: "Post to and read the namespace discussion log"}
	cmd.AddCommand(newDiscussionPostCmd())
	cmd.AddCommand(newDiscussionUnreadCmd())
	cmd.AddCommand(newDiscussionMarkReadCmd())
	return cmd
}

func newDiscussionPostCmd() *cobra.Command {
	var content string
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a message to the discussion log",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			msg, err := orch.DiscussionPost(context.Background(), callerHeaders(cmd), content)
			return printResult(msg, err)
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "message body (required)")
	cmd.MarkFlagRequired("content")
	return cmd
}

func newDiscussionUnreadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Fetch messages posted since your last mark-read",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			msgs, err := orch.DiscussionUnread(context.Background(), callerHeaders(cmd))
			return printResult(msgs, err)
		},
	}
	return cmd
}

func newDiscussionMarkReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mark-read",
		Short: "Advance your read watermark to now",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			err = orch.DiscussionMarkRead(context.Background(), callerHeaders(cmd))
			return printResult(nil, err)
		},
	}
	return cmd
}
