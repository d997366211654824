package edlib_test

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/edlib"
	goedlib "github.com/hbollon/go-edlib"
	"github.com/stretchr/testify/assert"
)

func TestMatcher_Score(t *testing.T) {
	t.Parallel()

	m := edlib.NewMatcher()

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "Retriever", "Retriever", 100},
		{"empty left", "", "Retriever", 0},
		{"empty right", "Retriever", "", 0},
		{"both empty", "", "", 0},
		{"disjoint", "abc", "xyz", 0},
		{"case-sensitive", "abc", "ABC", 0},
		{"half overlap", "ab", "ac", 50},
		{"inserted space", "LangChain", "Lang Chain", 95},
		{"multibyte runes", "żółw", "żółty", 67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, m.Score(tt.a, tt.b))
		})
	}
}

func TestMatcher_Score_Threshold(t *testing.T) {
	t.Parallel()

	m := edlib.NewMatcher()

	assert.GreaterOrEqual(t, m.Score("LangChain", "Lang Chain"), refdex.DefaultMatchThreshold)
	assert.Less(t, m.Score("LangChain", "Completely Unrelated Term"), refdex.DefaultMatchThreshold)
}

func TestMatcher_Score_Symmetric(t *testing.T) {
	t.Parallel()

	m := edlib.NewMatcher()

	assert.Equal(t, m.Score("memory", "ConversationBufferMemory,chat history"), m.Score("ConversationBufferMemory,chat history", "memory"))
}

func TestMatcher_Score_LongBlob(t *testing.T) {
	t.Parallel()

	m := edlib.NewMatcher()

	// Large enough to leave the go-edlib table path.
	var sb strings.Builder
	for i := range 3000 {
		fmt.Fprintf(&sb, "Keyword%d,", i)
	}
	blob := sb.String()

	for _, k := range []string{"Keyword42", "ConversationBufferMemory", "żółw"} {
		total := utf8.RuneCountInString(k) + utf8.RuneCountInString(blob)
		want := int(math.Round(200 * float64(goedlib.LCS(k, blob)) / float64(total)))
		assert.Equal(t, want, m.Score(k, blob), k)
		assert.Equal(t, m.Score(k, blob), m.Score(blob, k), k)
	}
}
