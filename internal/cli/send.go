package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tOgg1/missiv/internal/directory"
	"github.com/tOgg1/missiv/internal/models"
)

var (
	sendFile      string
	sendEncrypted bool
	replyFile     string
	ackFile       string
)

func init() {
	rootCmd.AddCommand(sendCmd, replyCmd, ackCmd)

	sendCmd.Flags().StringVarP(&sendFile, "file", "f", "", "read the body from a file")
	sendCmd.Flags().BoolVar(&sendEncrypted, "encrypted", false, "mark the body as encrypted")
	replyCmd.Flags().StringVarP(&replyFile, "file", "f", "", "read the body from a file")
	ackCmd.Flags().StringVarP(&ackFile, "file", "f", "", "read the body from a file")
}

var sendCmd = &cobra.Command{
	Use:   "send <to> <subject> [body]",
	Short: "Open a conversation with another desk",
	Long:  "Open a conversation with another desk. The body comes from the argument, --file or piped stdin.",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := actingDesk(cmd)
		if err != nil {
			return err
		}
		to, err := models.NormalizeDeskID(args[0])
		if err != nil {
			return Exitf(ExitCodeUsage, "invalid recipient %q: %v", args[0], err)
		}
		bodyArg := ""
		if len(args) > 2 {
			bodyArg = args[2]
		}
		body, err := resolveBody(cmd, bodyArg, sendFile, false)
		if err != nil {
			return err
		}

		svc, closeFn, err := openService()
		if err != nil {
			return err
		}
		defer closeFn()

		detail, err := svc.CreateConversation(cmd.Context(), models.NewConversationInput{
			From:        from,
			To:          to,
			Subject:     strings.TrimSpace(args[1]),
			Body:        body,
			IsEncrypted: sendEncrypted,
		})
		if err != nil {
			return commandError(err)
		}

		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), detail)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent to %s in conversation %s\n",
			directory.Label(currentDirectory(), to), detail.Conversation.ID)
		return nil
	},
}

var replyCmd = &cobra.Command{
	Use:   "reply <conversation> [body]",
	Short: "Reply in a conversation",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReply(cmd, args, replyFile, false)
	},
}

var ackCmd = &cobra.Command{
	Use:   "ack <conversation> [body]",
	Short: "Acknowledge a conversation without asking for a reply",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReply(cmd, args, ackFile, true)
	},
}

func runReply(cmd *cobra.Command, args []string, filePath string, isAck bool) error {
	from, err := actingDesk(cmd)
	if err != nil {
		return err
	}
	bodyArg := ""
	if len(args) > 1 {
		bodyArg = args[1]
	}
	body, err := resolveBody(cmd, bodyArg, filePath, isAck)
	if err != nil {
		return err
	}

	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	m, err := svc.Reply(cmd.Context(), models.ReplyInput{
		ConversationID: strings.TrimSpace(args[0]),
		From:           from,
		Body:           body,
		IsAck:          isAck,
	})
	if err != nil {
		return commandError(err)
	}

	if IsJSONOutput() {
		return WriteOutput(cmd.OutOrStdout(), m)
	}
	verb := "Replied"
	if isAck {
		verb = "Acknowledged"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s to %s (#%d, miv %s)\n",
		verb, directory.Label(currentDirectory(), m.To), m.SeqNo, m.ID)
	return nil
}
