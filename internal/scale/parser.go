// Package scale acquires weight readings from a line-oriented weight
// indicator, either a real serial device or an emulator.
package scale

import (
	"fmt"
	"regexp"
	"strconv"
)

// weightPattern matches a decimal weight embedded anywhere in an indicator
// line, e.g. "ST,GS,+000123.40kg". The sign is optional.
var weightPattern = regexp.MustCompile(`[+-]?\d+\.\d+`)

// ParseLine extracts the first decimal weight from one line of indicator
// output. Lines without a parsable number yield ok=false; that is the
// normal outcome for noise, truncated frames and empty reads, never an
// error to surface.
func ParseLine(line string) (float64, bool) {
	match := weightPattern.FindString(line)
	if match == "" {
		return 0, false
	}
	weight, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return weight, true
}

// EncodeLine renders a weight in the indicator's wire format: status field,
// gross-weight marker, then the signed zero-padded value with two decimals.
func EncodeLine(weight float64) string {
	return fmt.Sprintf("ST,GS,%+010.2fkg\r\n", weight)
}
