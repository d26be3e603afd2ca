package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Work-order numbers look like WO-2025-0042: a 4-digit year and a 3- or
// 4-digit sequence. Inbound email subjects carry them in arbitrary casing.
var woNumberRe = regexp.MustCompile(`(?i)WO-\d{4}-\d{3,4}`)

// ExtractWONumber finds the first work-order number embedded in free text
// (typically an email subject) and returns it uppercased.
func ExtractWONumber(text string) (string, bool) {
	m := woNumberRe.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.ToUpper(m), true
}

// FormatWONumber renders the canonical number for a year and sequence.
func FormatWONumber(year, seq int) string {
	return fmt.Sprintf("WO-%d-%04d", year, seq)
}

// Sequence returns the numeric sequence of a stored work-order number.
func Sequence(woNumber string) (int, error) {
	parts := strings.Split(woNumber, "-")
	if len(parts) < 3 {
		return 0, fmt.Errorf("malformed work order number %q", woNumber)
	}
	seq, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, fmt.Errorf("malformed work order number %q", woNumber)
	}
	return seq, nil
}

// NextSequence computes the follow-on sequence for the latest stored number
// of a year. A malformed stored number falls back to sequence 1 instead of
// poisoning the numbering scheme.
func NextSequence(latest string) int {
	if latest == "" {
		return 1
	}
	seq, err := Sequence(latest)
	if err != nil {
		return 1
	}
	return seq + 1
}
