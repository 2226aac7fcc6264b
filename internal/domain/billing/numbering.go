package billing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/transportops/backoffice/internal/domain/shared"
)

// Default document number prefixes
const (
	DefaultInvoicePrefix = "IN"
	DefaultBillPrefix    = "BL"
)

// SequenceWidth is the minimum zero-padded width of the numeric suffix
const SequenceWidth = 3

var sequenceSuffix = regexp.MustCompile(`-(\d+)$`)

// DocumentKind identifies which numbering series a document belongs to
type DocumentKind string

const (
	DocumentInvoice DocumentKind = "invoice"
	DocumentBill    DocumentKind = "bill"
)

// IsValid checks if the kind is known
func (k DocumentKind) IsValid() bool {
	return k == DocumentInvoice || k == DocumentBill
}

// ParseSequence extracts the numeric suffix after the final hyphen
func ParseSequence(number string) (int64, bool) {
	m := sequenceSuffix.FindStringSubmatch(number)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatNumber renders PREFIX-NNN for a sequence value
func FormatNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, SequenceWidth, seq)
}

// NextNumber derives the number following currentMax. An empty or unparsable
// currentMax starts the series at PREFIX-001.
func NextNumber(prefix, currentMax string) string {
	seq, ok := ParseSequence(currentMax)
	if !ok {
		return FormatNumber(prefix, 1)
	}
	return FormatNumber(prefix, seq+1)
}

// HighestSequence returns the largest numeric suffix among numbers issued
// under prefix. Values are compared as integers so IN-1000 outranks IN-999.
func HighestSequence(prefix string, numbers []string) int64 {
	var highest int64
	for _, n := range numbers {
		if !strings.HasPrefix(n, prefix+"-") {
			continue
		}
		if seq, ok := ParseSequence(n); ok && seq > highest {
			highest = seq
		}
	}
	return highest
}

// LatestNumber returns the number holding the highest sequence, or "" when none parse
func LatestNumber(prefix string, numbers []string) string {
	var (
		latest  string
		highest int64 = -1
	)
	for _, n := range numbers {
		if !strings.HasPrefix(n, prefix+"-") {
			continue
		}
		if seq, ok := ParseSequence(n); ok && seq > highest {
			highest = seq
			latest = n
		}
	}
	return latest
}

// FallbackNumber is used when the sequence cannot be read. It trades
// monotonicity for uniqueness: PREFIX- followed by the last six digits of the
// current Unix time in milliseconds.
func FallbackNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%06d", prefix, now.UnixMilli()%1_000_000)
}

// ValidatePrefix checks a configured prefix
func ValidatePrefix(prefix string) error {
	if strings.TrimSpace(prefix) == "" {
		return shared.NewValidationError("number prefix is required")
	}
	if strings.ContainsAny(prefix, "-% _") {
		return shared.NewValidationError("number prefix cannot contain '-', '%', '_' or spaces")
	}
	return nil
}
