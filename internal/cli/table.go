package cli

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	columnGap = "  "
	ellipsis  = "…"
)

var ansiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

type column struct {
	title    string
	maxWidth int
	right    bool
}

// table renders aligned plain-text output. Widths are measured in terminal
// cells with escape sequences ignored, so colored and wide cells line up.
type table struct {
	columns []column
	rows    [][]string
}

func newTable(titles ...string) *table {
	t := &table{columns: make([]column, len(titles))}
	for i, title := range titles {
		t.columns[i].title = title
	}
	return t
}

// limit caps a column at width cells; longer cells end in an ellipsis.
func (t *table) limit(col, width int) *table {
	if col >= 0 && col < len(t.columns) {
		t.columns[col].maxWidth = width
	}
	return t
}

func (t *table) alignRight(cols ...int) *table {
	for _, col := range cols {
		if col >= 0 && col < len(t.columns) {
			t.columns[col].right = true
		}
	}
	return t
}

// add appends a row. Missing cells render empty, extra cells are dropped.
func (t *table) add(cells ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(cells) {
			row[i] = t.fit(i, cells[i])
		}
	}
	t.rows = append(t.rows, row)
}

func (t *table) fit(col int, cell string) string {
	limit := t.columns[col].maxWidth
	if limit <= 0 || cellWidth(cell) <= limit {
		return cell
	}
	return runewidth.Truncate(stripANSI(cell), limit, ellipsis)
}

func (t *table) render(out io.Writer) error {
	if len(t.columns) == 0 {
		return nil
	}

	widths := make([]int, len(t.columns))
	header := make([]string, len(t.columns))
	for i, c := range t.columns {
		header[i] = c.title
		widths[i] = cellWidth(c.title)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], cellWidth(cell))
		}
	}

	w := bufio.NewWriter(out)
	for _, row := range append([][]string{header}, t.rows...) {
		var line strings.Builder
		for i, cell := range row {
			pad := strings.Repeat(" ", widths[i]-cellWidth(cell))
			last := i == len(row)-1
			switch {
			case t.columns[i].right:
				line.WriteString(pad + cell)
			case last:
				line.WriteString(cell)
			default:
				line.WriteString(cell + pad)
			}
			if !last {
				line.WriteString(columnGap)
			}
		}
		if _, err := w.WriteString(strings.TrimRight(line.String(), " ") + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

func cellWidth(cell string) int {
	return runewidth.StringWidth(stripANSI(cell))
}

func stripANSI(value string) string {
	if !strings.Contains(value, "\x1b") {
		return value
	}
	return ansiSequence.ReplaceAllString(value, "")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
