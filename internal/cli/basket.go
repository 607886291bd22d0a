package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tOgg1/missiv/internal/directory"
	"github.com/tOgg1/missiv/internal/models"
)

func init() {
	rootCmd.AddCommand(basketCmd, countsCmd)
}

var basketCmd = &cobra.Command{
	Use:       "basket <in|pending|sent|archived>",
	Short:     "List the mivs in one basket",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"in", "pending", "sent", "archived"},
	RunE: func(cmd *cobra.Command, args []string) error {
		desk, err := actingDesk(cmd)
		if err != nil {
			return err
		}
		b, err := models.ParseBasket(args[0])
		if err != nil {
			return Exitf(ExitCodeUsage, "%v", err)
		}

		svc, closeFn, err := openService()
		if err != nil {
			return err
		}
		defer closeFn()

		view, err := svc.ListBasket(cmd.Context(), desk, b)
		if err != nil {
			return commandError(err)
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), view)
		}
		if view.Count == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is empty\n", b)
			return nil
		}

		dir := currentDirectory()
		tbl := newTable("MIV", "CONV", "#", "FROM", "TO", "SUBJECT", "BODY", "CREATED").
			alignRight(2).
			limit(5, 40)
		for _, m := range view.Mivs {
			subject := m.Subject
			if m.IsAck {
				subject = "ACK: " + subject
			}
			tbl.add(
				shortID(m.ID),
				shortID(m.ConversationID),
				strconv.Itoa(m.SeqNo),
				directory.Label(dir, m.From),
				directory.Label(dir, m.To),
				subject,
				preview(m.Body, 40),
				formatWhen(m.CreatedAt),
			)
		}
		return tbl.render(cmd.OutOrStdout())
	},
}

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Show how many mivs are in each basket",
	Args:  cobra.NoArgs,
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

		counts, err := svc.BasketCounts(cmd.Context(), desk)
		if err != nil {
			return commandError(err)
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]any{"desk_id": desk, "counts": counts})
		}

		tbl := newTable("BASKET", "COUNT").alignRight(1)
		for _, b := range models.Baskets {
			tbl.add(strings.ToLower(string(b)), strconv.Itoa(counts[b]))
		}
		return tbl.render(cmd.OutOrStdout())
	},
}
