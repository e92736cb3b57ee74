package dedup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testArticle struct {
	ID      string
	Title   string
	Summary string
}

func (a testArticle) ArticleTitle() string   { return a.Title }
func (a testArticle) ArticleSummary() string { return a.Summary }

func ids(articles []testArticle) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.ID)
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"punctuation and case", "Fed Raises Rates!!", "raises rates"},
		{"short tokens dropped", "The Fed is up by a lot", ""},
		{"stop words dropped", "this that with from have been will more than markets", "markets"},
		{"sorted", "zebra apple mango", "apple mango zebra"},
		{"apostrophes glue words", "Investors' don't panic", "dont investors panic"},
		{"underscore kept", "snake_case tokens", "snake_case tokens"},
		{"non-ascii letters stripped", "Bürse café résumé", "brse rsum"},
		{"unicode whitespace splits", "stocks rally\tagain", "again rally stocks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_TokenCapAppliesBeforeSort(t *testing.T) {
	words := []string{
		"zulu", "yankee", "xray", "whiskey", "victor", "uniform",
		"tango", "sierra", "romeo", "quebec", "papa", "oscar",
	}

	got := Normalize(strings.Join(words, " "))

	// The first ten survive, then get sorted; papa and oscar never make it.
	assert.Equal(t, "quebec romeo sierra tango uniform victor whiskey xray yankee zulu", got)
}

func TestFingerprint_SummaryTruncated(t *testing.T) {
	long := strings.Repeat("abcdefghij ", 10)

	fp := Fingerprint("Title here", long)

	parts := strings.SplitN(fp, Separator, 2)
	require.Len(t, parts, 2)
	assert.Equal(t, "here title", parts[0])
	assert.Len(t, parts[1], SummaryPrefixLen)
}

func TestFingerprint_EmptyFields(t *testing.T) {
	assert.Equal(t, "|", Fingerprint("", ""))
	assert.Equal(t, "|", Fingerprint("!!!", "a b c"))
}

func TestDeduplicate_EquivalentArticlesCollapse(t *testing.T) {
	articles := []testArticle{
		{ID: "a", Title: "Fed Raises Rates!!", Summary: "The Federal Reserve announced..."},
		{ID: "b", Title: "fed raises rates", Summary: "federal reserve announced..."},
		{ID: "c", Title: "Rates raises, Fed", Summary: "Reserve Federal announced"},
	}

	got := Deduplicate(articles)

	assert.Equal(t, []string{"a"}, ids(got))
	assert.Equal(t, articles[0], got[0], "survivor must be the original record")
}

func TestDeduplicate_FirstSeenWinsAndOrderPreserved(t *testing.T) {
	articles := []testArticle{
		{ID: "1", Title: "Bitcoin surges past record", Summary: "Crypto markets rally"},
		{ID: "2", Title: "Oil prices tumble", Summary: "Brent crude slides"},
		{ID: "3", Title: "BITCOIN SURGES PAST RECORD", Summary: "crypto markets rally!"},
		{ID: "4", Title: "Treasury yields climb", Summary: "Bond selloff deepens"},
		{ID: "5", Title: "Oil prices tumble.", Summary: "Brent crude slides."},
	}

	got := Deduplicate(articles)

	assert.Equal(t, []string{"1", "2", "4"}, ids(got))
}

func TestDeduplicate_DifferentSummariesKept(t *testing.T) {
	articles := []testArticle{
		{ID: "1", Title: "Apple earnings beat", Summary: "Revenue climbs on iPhone demand"},
		{ID: "2", Title: "Apple earnings beat", Summary: "Services segment disappoints analysts"},
	}

	assert.Len(t, Deduplicate(articles), 2)
}

func TestDeduplicate_EmptyArticlesCollapse(t *testing.T) {
	articles := []testArticle{
		{ID: "1"},
		{ID: "2"},
		{ID: "3", Title: "?!", Summary: "..."},
	}

	assert.Equal(t, []string{"1"}, ids(Deduplicate(articles)))
}

func TestDeduplicate_Idempotent(t *testing.T) {
	articles := []testArticle{
		{ID: "1", Title: "Nvidia shares jump", Summary: "Chipmaker guidance lifts stock"},
		{ID: "2", Title: "nvidia SHARES jump", Summary: "chipmaker guidance lifts stock"},
		{ID: "3", Title: "Gold hits record", Summary: "Safe haven demand surges"},
		{ID: "4"},
		{ID: "5"},
	}

	once := Deduplicate(articles)
	twice := Deduplicate(once)

	assert.Equal(t, once, twice)
}

func TestDeduplicate_InputUntouched(t *testing.T) {
	articles := []testArticle{
		{ID: "1", Title: "Same headline", Summary: "Same body text"},
		{ID: "2", Title: "Same headline", Summary: "Same body text"},
	}
	before := append([]testArticle(nil), articles...)

	_ = Deduplicate(articles)

	assert.Equal(t, before, articles)
}

func TestDeduplicate_Nil(t *testing.T) {
	got := Deduplicate[testArticle](nil)
	assert.Empty(t, got)
}

func TestDeduplicateFunc(t *testing.T) {
	type row struct{ headline, body string }
	rows := []row{
		{"Markets close higher", "Stocks finished the session up"},
		{"markets close higher!", "stocks finished the session up"},
		{"Dollar weakens", "Currency slips against euro"},
	}

	got := DeduplicateFunc(rows, func(r row) (string, string) { return r.headline, r.body })

	require.Len(t, got, 2)
	assert.Equal(t, rows[0], got[0])
	assert.Equal(t, rows[2], got[1])
}

func TestDeduplicateWith_CustomConstants(t *testing.T) {
	f := Default
	f.MaxTokens = 2

	articles := []testArticle{
		{ID: "1", Title: "alpha bravo charlie", Summary: ""},
		{ID: "2", Title: "alpha bravo delta", Summary: ""},
	}

	assert.Len(t, Deduplicate(articles), 2)
	assert.Equal(t, []string{"1"}, ids(DeduplicateWith(f, articles)))
}

func TestDeduplicateSimilar(t *testing.T) {
	articles := []testArticle{
		{ID: "1", Title: "ECB holds rates steady in june"},
		{ID: "2", Title: "ECB holds rates steady in june meeting"},
		{ID: "3", Title: "Tesla deliveries fall short"},
	}

	assert.Equal(t, []string{"1", "3"}, ids(DeduplicateSimilar(articles, 0.8)))
	assert.Equal(t, []string{"1", "2", "3"}, ids(DeduplicateSimilar(articles, 0)))
}

func TestNewStats(t *testing.T) {
	assert.Equal(t, Stats{Input: 5, Output: 3, Dropped: 2}, NewStats(5, 3))
}
