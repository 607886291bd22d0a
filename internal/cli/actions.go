package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(readCmd, forgetCmd, archiveCmd)
}

var readCmd = &cobra.Command{
	Use:   "read <miv>",
	Short: "Mark a miv addressed to the acting desk as read",
	Args:  cobra.ExactArgs(1),
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

		id := strings.TrimSpace(args[0])
		if err := svc.MarkMivRead(cmd.Context(), id, desk); err != nil {
			return commandError(err)
		}
		return report(cmd, map[string]any{"miv_id": id, "read": true}, "Marked %s read\n", id)
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <miv>",
	Short: "Stop tracking a sent miv for a reply",
	Args:  cobra.ExactArgs(1),
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

		id := strings.TrimSpace(args[0])
		if err := svc.ForgetMiv(cmd.Context(), id, desk); err != nil {
			return commandError(err)
		}
		return report(cmd, map[string]any{"miv_id": id, "forgotten": true}, "Forgot %s\n", id)
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive <conversation>",
	Short: "Archive a conversation for both desks",
	Args:  cobra.ExactArgs(1),
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

		id := strings.TrimSpace(args[0])
		if err := svc.ArchiveConversation(cmd.Context(), id, desk); err != nil {
			return commandError(err)
		}
		return report(cmd, map[string]any{"conversation_id": id, "archived": true}, "Archived %s\n", id)
	},
}

func report(cmd *cobra.Command, payload map[string]any, format string, args ...any) error {
	if IsJSONOutput() {
		return WriteOutput(cmd.OutOrStdout(), payload)
	}
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	return nil
}
