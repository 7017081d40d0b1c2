package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywords_ExtractsNouns(t *testing.T) {
	e := New()

	got := e.Keywords("The government announced a new budget on Monday")

	assert.Contains(t, got, "government")
	assert.Contains(t, got, "budget")
	assert.NotContains(t, got, "announced", "verb kept")
	assert.NotContains(t, got, "new", "adjective kept")
}

func TestKeywords_Normalized(t *testing.T) {
	e := New()

	for _, kw := range e.Keywords("Parliament Debates Election Law") {
		assert.Equal(t, kw, normalize(kw), "keyword %q not normalized", kw)
	}
}

func TestKeywords_StopTermsRemoved(t *testing.T) {
	e := New()

	got := e.Keywords("Breaking news report: storm hits the coast")

	assert.NotContains(t, got, "news")
	assert.NotContains(t, got, "report")
	assert.Contains(t, got, "storm")
}

func TestKeywords_Deduplicates(t *testing.T) {
	e := New()

	got := e.Keywords("Election results delay election certification")

	count := 0
	for _, kw := range got {
		if kw == "election" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestKeywords_EmptyInput(t *testing.T) {
	e := New()

	assert.Empty(t, e.Keywords(""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "election", normalize("Election"))
	assert.Equal(t, "covid19", normalize("COVID-19"))
	assert.Equal(t, "", normalize("a"), "single rune dropped")
	assert.Equal(t, "", normalize("!?"))
}
