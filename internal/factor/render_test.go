package factor

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatScored(t *testing.T) {
	assert.Equal(t, "005930: 0.812300", FormatScored(Scored{Security: secX, Value: 0.8123}))
	assert.Equal(t, "035420: -", FormatScored(Scored{Security: secZ, Value: math.NaN()}))
}

func TestFormatCross(t *testing.T) {
	out := FormatCross(day(7), []Scored{
		{Security: secX, Value: 0.8},
		{Security: secY, Value: 0.5},
		{Security: secZ, Value: math.NaN()},
	})

	assert.True(t, strings.HasPrefix(out, "2026-01-07  (3 securities)"))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[1], "1  005930")
	assert.Contains(t, lines[3], "3  035420: -")
}

func TestFormatAllCross(t *testing.T) {
	dates := []time.Time{day(5), day(6)}
	cross := [][]Scored{
		{{Security: secX, Value: 1}},
		{{Security: secX, Value: 2}},
	}
	out := FormatAllCross(dates, cross)
	assert.Contains(t, out, "2026-01-05")
	assert.Contains(t, out, "2026-01-06")
}
