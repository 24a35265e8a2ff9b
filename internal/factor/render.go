package factor

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Human-readable rendering of scored pairs and cross sections. Output is for
// terminals and logs only; nothing parses it.

// FormatScored renders one (security, value) pair.
func FormatScored(s Scored) string {
	if math.IsNaN(s.Value) {
		return fmt.Sprintf("%s: -", s.Security)
	}
	return fmt.Sprintf("%s: %.6f", s.Security, s.Value)
}

// FormatCross renders one date's ranking, best first.
func FormatCross(date time.Time, items []Scored) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  (%d securities)\n", date.Format("2006-01-02"), len(items))
	for rank, it := range items {
		fmt.Fprintf(&b, "  %3d  %s\n", rank+1, FormatScored(it))
	}
	return b.String()
}

// FormatAllCross renders the full cross-section table, one block per date.
func FormatAllCross(dates []time.Time, cross [][]Scored) string {
	var b strings.Builder
	for t, d := range dates {
		if t > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(FormatCross(d, cross[t]))
	}
	return b.String()
}
