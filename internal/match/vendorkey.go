package match

import (
	"regexp"
	"strings"
)

// Merchant processor rewrites applied before generic normalization.
var (
	// Amazon charges show up in many shapes: AMAZON.COM*AB12C, AMZN MKTP
	// US*Z99, AMAZON MKTPLACE PMTS. They all collapse to one key.
	amazonRe = regexp.MustCompile(`^(AMAZON|AMZN)([^A-Z]|$)`)

	// Payment aggregators prefix the real merchant. The marker is kept and
	// up to two words of the remainder identify the merchant.
	aggregatorMarkers = []struct {
		marker string
		prefix string
	}{
		{marker: "SQ *", prefix: "SQ"},
		{marker: "PAYPAL *", prefix: "PAYPAL"},
	}

	// Trailing store numbers and reference codes: a run of digits,
	// optionally led by '#' or a short letter code (ST0451, #123, 57442).
	trailingRefRe = regexp.MustCompile(`^#?[A-Z]{0,3}\d+$`)
)

// maxKeyWords caps the vendor key length; anything past the first three
// words is location or reference noise.
const maxKeyWords = 3

// ExtractVendorKey reduces a raw transaction description to a stable,
// upper-cased vendor key used to join transactions against learned expense
// patterns. It is a pure function: same input, same key, no side effects.
func ExtractVendorKey(description string) string {
	desc := strings.ToUpper(strings.TrimSpace(description))
	if desc == "" {
		return ""
	}

	if amazonRe.MatchString(desc) {
		return "AMAZON"
	}

	for _, agg := range aggregatorMarkers {
		if strings.HasPrefix(desc, agg.marker) {
			remainder := strings.TrimSpace(strings.TrimPrefix(desc, agg.marker))
			words := strings.Fields(remainder)
			if len(words) > 2 {
				words = words[:2]
			}
			if len(words) == 0 {
				return agg.prefix
			}
			return agg.prefix + " " + strings.Join(words, " ")
		}
	}

	words := strings.Fields(desc)
	if len(words) == 1 {
		return words[0]
	}

	// Strip trailing reference tokens but never reduce to an empty key.
	for len(words) > 1 && trailingRefRe.MatchString(words[len(words)-1]) {
		words = words[:len(words)-1]
	}

	if len(words) > maxKeyWords {
		words = words[:maxKeyWords]
	}

	return strings.Join(words, " ")
}
