package masking

import "strings"

const (
	maskToken = "****"
	// codes shorter than this are masked whole
	minRevealLen = 8
	revealSuffix = 4
)

// MaskCode hides a redeemable code for audit metadata, keeping the last four
// characters of its canonical form so entries can be matched to support tickets.
func MaskCode(code string) string {
	canonical := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(code)))

	switch {
	case canonical == "":
		return ""
	case len(canonical) < minRevealLen:
		return maskToken
	default:
		return maskToken + canonical[len(canonical)-revealSuffix:]
	}
}
