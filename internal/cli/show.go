package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tOgg1/missiv/internal/directory"
)

var showPeek bool

func init() {
	rootCmd.AddCommand(showCmd, listCmd)

	showCmd.Flags().BoolVar(&showPeek, "peek", false, "show without marking mivs read")
}

var showCmd = &cobra.Command{
	Use:   "show <conversation>",
	Short: "Show a conversation and mark its mivs read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		viewer := ""
		if !showPeek {
			desk, err := actingDesk(cmd)
			if err != nil {
				return err
			}
			viewer = desk
		}

		svc, closeFn, err := openService()
		if err != nil {
			return err
		}
		defer closeFn()

		detail, err := svc.GetConversation(cmd.Context(), strings.TrimSpace(args[0]), viewer)
		if err != nil {
			return commandError(err)
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), detail)
		}

		out := cmd.OutOrStdout()
		dir := currentDirectory()
		conv := detail.Conversation
		state := "open"
		if conv.IsArchived {
			state = "archived"
		}
		fmt.Fprintf(out, "%s  [%s]  %s\n\n", conv.Subject, state, conv.ID)
		for _, m := range detail.Mivs {
			kind := ""
			if m.IsAck {
				kind = " ACK"
			}
			fmt.Fprintf(out, "#%d%s  %s -> %s  %s  %s\n", m.SeqNo, kind,
				directory.Label(dir, m.From), directory.Label(dir, m.To),
				formatWhen(m.CreatedAt), m.Basket.String())
			if len(m.Body) > 0 {
				fmt.Fprintf(out, "  %s\n", strings.ReplaceAll(string(m.Body), "\n", "\n  "))
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List conversations for the acting desk",
	Args:    cobra.NoArgs,
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

		summaries, err := svc.ListConversations(cmd.Context(), desk)
		if err != nil {
			return commandError(err)
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]any{
				"conversations": summaries,
				"total":         len(summaries),
			})
		}
		if len(summaries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No conversations")
			return nil
		}

		dir := currentDirectory()
		tbl := newTable("ID", "SUBJECT", "WITH", "MIVS", "UNREAD", "ARCHIVED", "UPDATED").
			limit(1, 48).
			alignRight(3, 4)
		for _, s := range summaries {
			with := "-"
			if s.LatestMiv != nil {
				with = directory.Label(dir, s.LatestMiv.Counterpart(desk))
			}
			tbl.add(
				shortID(s.Conversation.ID),
				s.Conversation.Subject,
				with,
				strconv.Itoa(s.Conversation.MivCount),
				strconv.Itoa(s.UnreadCount),
				yesNo(s.Conversation.IsArchived),
				formatWhen(s.Conversation.UpdatedAt),
			)
		}
		return tbl.render(cmd.OutOrStdout())
	},
}
