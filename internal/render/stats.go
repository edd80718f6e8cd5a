package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/samsaffron/blockstream/internal/decode"
)

// WriteStats prints a statistics snapshot and both usages as aligned
// tables. given may be nil when the transport never reported final usage.
func WriteStats(w io.Writer, snap decode.Snapshot, given *decode.Usage, calc decode.Usage) error {
	counts := [][]string{
		{"section", "lines", "bytes"},
		countRow("toplevel", snap.Toplevel),
		countRow("code", snap.Code),
		countRow("image", snap.Image),
		countRow("total", snap.Total),
	}
	usage := [][]string{
		{"usage", "prompt", "completion", "total"},
		usageRow("calculated", &calc),
		usageRow("given", given),
	}
	if _, err := io.WriteString(w, table(counts)+"\n"+table(usage)); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}

func countRow(name string, c decode.Counts) []string {
	return []string{name, strconv.Itoa(c.Lines), strconv.Itoa(c.Bytes)}
}

func usageRow(name string, u *decode.Usage) []string {
	if u == nil {
		return []string{name, "-", "-", "-"}
	}
	return []string{name, strconv.Itoa(u.PromptTokens), strconv.Itoa(u.CompletionTokens), strconv.Itoa(u.TotalTokens)}
}

// table aligns rows into columns: the first column left aligned, the rest
// right aligned, separated by two spaces.
func table(rows [][]string) string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == 0 {
				sb.WriteString(runewidth.FillRight(cell, widths[i]))
				continue
			}
			sb.WriteString("  ")
			sb.WriteString(runewidth.FillLeft(cell, widths[i]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
