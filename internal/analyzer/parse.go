package analyzer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/opencode-ai/lintwatch/internal/diagnostic"
)

// Parse turns analyzer stdout into records. The output is split on both
// carriage returns and newlines; lines that do not match pattern are
// dropped and the tool's order is kept. pattern's first four groups are
// file, line, column and message.
func Parse(output string, pattern *regexp.Regexp) []diagnostic.Record {
	lines := strings.FieldsFunc(output, func(r rune) bool {
		return r == '\r' || r == '\n'
	})

	records := make([]diagnostic.Record, 0, len(lines))
	for _, line := range lines {
		m := pattern.FindStringSubmatch(line)
		if len(m) < 5 {
			continue
		}
		lineNo, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		col, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		records = append(records, diagnostic.Record{
			File:    m[1],
			Line:    lineNo,
			Column:  col,
			Message: m[4],
		})
	}
	return records
}
