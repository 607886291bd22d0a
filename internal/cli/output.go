package cli

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// WriteOutput writes v as indented JSON.
func WriteOutput(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func formatWhenPtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatWhen(*t)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func preview(body []byte, width int) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	if len([]rune(text)) <= width {
		return text
	}
	return string([]rune(text)[:width-1]) + "…"
}

// resolveBody returns the body from the argument, --file or piped stdin,
// in that order. allowEmpty permits no body at all.
func resolveBody(cmd *cobra.Command, bodyArg, filePath string, allowEmpty bool) ([]byte, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath != "" && bodyArg != "" {
		return nil, usageError(cmd, "provide either a body argument or --file, not both")
	}

	var body []byte
	switch {
	case filePath != "":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, Exitf(ExitCodeFailure, "read file: %v", err)
		}
		body = data
	case bodyArg != "":
		body = []byte(bodyArg)
	default:
		data, err := readStdinIfPiped(cmd)
		if err != nil {
			return nil, Exitf(ExitCodeFailure, "read stdin: %v", err)
		}
		body = data
	}

	if len(body) == 0 && !allowEmpty {
		return nil, usageError(cmd, "miv body is required")
	}
	return body, nil
}

// readStdinIfPiped reads the command's input unless it is a terminal.
func readStdinIfPiped(cmd *cobra.Command) ([]byte, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		if term.IsTerminal(int(f.Fd())) {
			return nil, nil
		}
	}
	return io.ReadAll(in)
}
