package dedup

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// MaxTokens caps how many filtered tokens of a field feed the fingerprint.
	MaxTokens = 10
	// SummaryPrefixLen is how much of the normalized summary is kept.
	SummaryPrefixLen = 100
	// MinTokenLen is the shortest token that survives normalization.
	MinTokenLen = 4
)

// Separator joins the title and summary halves of a fingerprint.
const Separator = "|"

var defaultStopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {},
	"been": {}, "will": {}, "more": {}, "than": {},
}

// Fingerprinter derives order-independent keys from article text.
// The zero value is not usable; start from Default.
type Fingerprinter struct {
	MaxTokens        int
	SummaryPrefixLen int
	MinTokenLen      int
	StopWords        map[string]struct{}
}

// Default carries the stock constants. Treat it as read-only.
var Default = Fingerprinter{
	MaxTokens:        MaxTokens,
	SummaryPrefixLen: SummaryPrefixLen,
	MinTokenLen:      MinTokenLen,
	StopWords:        defaultStopWords,
}

// Normalize reduces text to at most MaxTokens significant words, sorted and
// space-joined.
func (f Fingerprinter) Normalize(text string) string {
	if text == "" {
		return ""
	}

	// A Caser is stateful and must not be shared between goroutines.
	caser := cases.Lower(language.Und)
	stripped := strings.Map(keepWordOrSpace, caser.String(text))

	tokens := make([]string, 0, f.MaxTokens)
	for _, tok := range strings.Fields(stripped) {
		if len(tokens) >= f.MaxTokens {
			break
		}
		if len(tok) < f.MinTokenLen {
			continue
		}
		if _, stop := f.StopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}

	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// Fingerprint returns normalize(title) + "|" + normalize(summary)[:SummaryPrefixLen].
func (f Fingerprinter) Fingerprint(title, summary string) string {
	s := f.Normalize(summary)
	if len(s) > f.SummaryPrefixLen {
		// Normalized text is ASCII only, so byte slicing never splits a rune.
		s = s[:f.SummaryPrefixLen]
	}
	return f.Normalize(title) + Separator + s
}

// Normalize applies the Default fingerprinter.
func Normalize(text string) string {
	return Default.Normalize(text)
}

// Fingerprint applies the Default fingerprinter.
func Fingerprint(title, summary string) string {
	return Default.Fingerprint(title, summary)
}

// keepWordOrSpace drops everything except ASCII word characters and whitespace.
func keepWordOrSpace(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return r
	case unicode.IsSpace(r):
		return r
	default:
		return -1
	}
}
