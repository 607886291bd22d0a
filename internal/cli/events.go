package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tOgg1/missiv/internal/db"
)

var (
	eventsLimit  int
	eventsCursor string
	eventsUnread bool
)

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsReadCmd)

	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 20, "maximum notifications to show")
	eventsCmd.Flags().StringVar(&eventsCursor, "cursor", "", "continue from the cursor printed after a full page")
	eventsCmd.Flags().BoolVarP(&eventsUnread, "unread", "u", false, "only show notifications not yet marked read")
}

var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"notifications"},
	Short:   "Show notifications for the acting desk, oldest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		desk, err := actingDesk(cmd)
		if err != nil {
			return err
		}
		if eventsLimit <= 0 {
			return usageError(cmd, "--limit must be positive")
		}

		svc, closeFn, err := openService()
		if err != nil {
			return err
		}
		defer closeFn()

		feed, err := svc.Notifications(cmd.Context(), desk, db.FeedQuery{
			Cursor:     eventsCursor,
			Limit:      eventsLimit,
			UnreadOnly: eventsUnread,
		})
		if errors.Is(err, db.ErrInvalidCursor) {
			return usageError(cmd, "--cursor is not a cursor printed by missiv events")
		}
		if err != nil {
			return commandError(err)
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), feed)
		}
		if len(feed.Events) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No notifications (%d unread)\n", feed.UnreadCount)
			return nil
		}

		tbl := newTable("ID", "WHEN", "KIND", "CONV", "READ", "MESSAGE").limit(5, 72)
		for _, event := range feed.Events {
			payload, err := event.Notification()
			if err != nil {
				return Exitf(ExitCodeFailure, "decode notification %s: %v", event.ID, err)
			}
			tbl.add(
				event.ID,
				formatWhen(event.Timestamp),
				string(payload.Kind),
				shortID(payload.ConversationID),
				yesNo(event.ReadAt != nil),
				payload.Message,
			)
		}
		if err := tbl.render(cmd.OutOrStdout()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d unread\n", feed.UnreadCount)
		if feed.NextCursor != "" {
			more := "missiv events --cursor " + feed.NextCursor
			if eventsUnread {
				more += " --unread"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "More: %s\n", more)
		}
		return nil
	},
}

var eventsReadCmd = &cobra.Command{
	Use:   "read <id>...",
	Short: "Mark notifications of the acting desk as read",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desk, err := actingDesk(cmd)
		if err != nil {
			return err
		}

		svc, closeFn, err := openService()
		if err != nil {
			return err
		}
		defer closeFn()

		for _, id := range args {
			event, err := svc.MarkNotificationRead(cmd.Context(), id, desk)
			if err != nil {
				return commandError(err)
			}
			if IsJSONOutput() {
				if err := WriteOutput(cmd.OutOrStdout(), event); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s read\n", event.ID)
		}
		return nil
	},
}
