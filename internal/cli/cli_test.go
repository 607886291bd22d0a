package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"github.com/tOgg1/missiv/internal/db"
	"github.com/tOgg1/missiv/internal/missiv"
	"github.com/tOgg1/missiv/internal/models"
)

const (
	deskA = "1000000001"
	deskB = "2000000002"
)

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func runCLI(t *testing.T, dbFile, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Setenv("MISSIV_DESK", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--db", dbFile}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dbFile string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, dbFile, "", args...)
	require.NoError(t, err, out)
	return out
}

func TestSendShowReplyFlow(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "missiv.db")

	out := mustRun(t, dbFile, "--desk", deskA, "--json", "send", "(200) 000-0002", "Lunch?", "Free Friday?")
	var detail missiv.ConversationDetail
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	convID := detail.Conversation.ID
	require.Equal(t, deskB, detail.Mivs[0].To)

	out = mustRun(t, dbFile, "--desk", deskB, "--json", "counts")
	require.Contains(t, out, `"IN": 1`)

	out = mustRun(t, dbFile, "--desk", deskB, "show", convID)
	require.Contains(t, out, "Lunch?")
	require.Contains(t, out, "Free Friday?")
	require.Contains(t, out, "PENDING")

	out = mustRun(t, dbFile, "--desk", deskB, "reply", convID, "Yes!")
	require.Contains(t, out, "Replied to 1000000001 (#2")

	out = mustRun(t, dbFile, "--desk", deskA, "basket", "sent")
	require.Contains(t, out, "Free Friday?")

	out = mustRun(t, dbFile, "--desk", deskA, "list")
	require.Contains(t, out, "Lunch?")
	require.Contains(t, out, "UNREAD")

	out = mustRun(t, dbFile, "--desk", deskA, "--json", "events")
	require.Contains(t, out, string(models.NotificationReply))
}

func TestEventsUnreadAndMarkRead(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "missiv.db")
	mustRun(t, dbFile, "--desk", deskA, "send", deskB, "Lunch?", "Free Friday?")
	mustRun(t, dbFile, "--desk", deskA, "send", deskB, "Coffee?", "Now?")

	out := mustRun(t, dbFile, "--desk", deskB, "--json", "events", "--unread")
	var feed db.DeskFeed
	require.NoError(t, json.Unmarshal([]byte(out), &feed))
	require.Len(t, feed.Events, 2)
	require.EqualValues(t, 2, feed.UnreadCount)

	out = mustRun(t, dbFile, "--desk", deskB, "events", "read", feed.Events[0].ID)
	require.Contains(t, out, "Marked "+feed.Events[0].ID+" read")

	out = mustRun(t, dbFile, "--desk", deskB, "events", "--unread")
	require.NotContains(t, out, feed.Events[0].ID)
	require.Contains(t, out, feed.Events[1].ID)
	require.Contains(t, out, "1 unread")

	_, err := runCLI(t, dbFile, "", "--desk", deskA, "events", "read", feed.Events[1].ID)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.ErrorIs(t, err, models.ErrNotificationNotFound)
}

func TestBodyFromStdin(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "missiv.db")

	out, err := runCLI(t, dbFile, "piped body\n", "--desk", deskA, "--json", "send", deskB, "Piped")
	require.NoError(t, err, out)
	require.Contains(t, out, `"subject": "Piped"`)

	out = mustRun(t, dbFile, "--desk", deskB, "basket", "in")
	require.Contains(t, out, "piped body")
}

func TestAckAllowsEmptyBody(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "missiv.db")

	out := mustRun(t, dbFile, "--desk", deskA, "--json", "send", deskB, "Report", "draft")
	var detail missiv.ConversationDetail
	require.NoError(t, json.Unmarshal([]byte(out), &detail))

	out = mustRun(t, dbFile, "--desk", deskB, "ack", detail.Conversation.ID)
	require.Contains(t, out, "Acknowledged")

	out = mustRun(t, dbFile, "--desk", deskB, "basket", "sent")
	require.Contains(t, out, "SENT is empty")
}

func TestArchiveForgetAndRead(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "missiv.db")

	out := mustRun(t, dbFile, "--desk", deskA, "--json", "send", deskB, "Keys", "front desk")
	var detail missiv.ConversationDetail
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	mivID := detail.Mivs[0].ID
	convID := detail.Conversation.ID

	mustRun(t, dbFile, "--desk", deskB, "read", mivID)
	mustRun(t, dbFile, "--desk", deskA, "forget", mivID)
	out = mustRun(t, dbFile, "--desk", deskA, "basket", "sent")
	require.Contains(t, out, "SENT is empty")

	mustRun(t, dbFile, "--desk", deskA, "archive", convID)
	out = mustRun(t, dbFile, "--desk", deskB, "--json", "counts")
	require.Contains(t, out, `"ARCHIVED": 1`)

	_, err := runCLI(t, dbFile, "", "--desk", deskB, "reply", convID, "too late")
	require.ErrorIs(t, err, models.ErrConversationArchived)
}

func TestErrorsCarryExitCodes(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "missiv.db")

	_, err := runCLI(t, dbFile, "", "counts")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, ExitCodeUsage, exitErr.Code)

	_, err = runCLI(t, dbFile, "", "--desk", deskA, "send", deskA, "Self", "note")
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, ExitCodeFailure, exitErr.Code)
	require.ErrorIs(t, err, models.ErrInvalidRecipient)

	_, err = runCLI(t, dbFile, "", "--desk", deskA, "basket", "trash")
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, ExitCodeUsage, exitErr.Code)

	_, err = runCLI(t, dbFile, "", "--desk", deskA, "send", deskB, "Empty")
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, ExitCodeUsage, exitErr.Code)
}

func TestRootCommandAliases(t *testing.T) {
	found, _, err := rootCmd.Find([]string{"ls"})
	require.NoError(t, err)
	require.Equal(t, "list", found.Name())

	found, _, err = rootCmd.Find([]string{"notifications"})
	require.NoError(t, err)
	require.Equal(t, "events", found.Name())
}

func TestTableAlignsColoredCells(t *testing.T) {
	var buf bytes.Buffer
	tbl := newTable("DESK", "SUBJECT", "UNREAD").alignRight(2)
	tbl.add("\x1b[33m1000000001\x1b[0m", "Lunch?", "1")
	tbl.add("2000000002", "Quarterly report", "12")

	require.NoError(t, tbl.render(&buf))
	want := "" +
		"DESK        SUBJECT           UNREAD\n" +
		"1000000001  Lunch?                 1\n" +
		"2000000002  Quarterly report      12\n"
	require.Equal(t, want, stripANSI(buf.String()))
}

func TestTableLimitTruncatesWideCells(t *testing.T) {
	var buf bytes.Buffer
	tbl := newTable("SUBJECT", "N").limit(0, 8)
	tbl.add("Meeting about the budget", "1")
	tbl.add("会議の議題", "2")
	tbl.add("short")

	require.NoError(t, tbl.render(&buf))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "Meeting…  1", lines[1])
	require.Equal(t, "会議の…   2", lines[2])
	require.Equal(t, "short", lines[3])
}

func TestPreviewTruncates(t *testing.T) {
	require.Equal(t, "a b c", preview([]byte("a\n b\tc"), 10))
	require.Equal(t, "abcd…", preview([]byte("abcdefgh"), 5))
}
