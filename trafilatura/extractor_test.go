package trafilatura_test

import (
	"testing"

	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/trafilatura"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// retrieverPage has no Sphinx content region, only a generic main element.
const retrieverPage = `<!DOCTYPE html>
<html>
<head><title>BaseRetriever - API Reference</title></head>
<body>
<nav><a href="/">Home</a><a href="/api">API</a></nav>
<main>
<h1>BaseRetriever</h1>
<p>Abstract base class for a document retrieval system. A retrieval system is defined as something that can take string queries and return the most relevant documents from some source.</p>
<p>Retrievers implement the Runnable interface and can be composed with other runnables into chains.</p>
</main>
<footer>Copyright 2024 Example Docs</footer>
</body>
</html>`

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("keeps the page body and drops chrome", func(t *testing.T) {
		t.Parallel()

		res, err := trafilatura.NewExtractor().Extract(retrieverPage)

		require.NoError(t, err)
		assert.Contains(t, res.Title, "BaseRetriever")
		assert.Contains(t, res.ContentHTML, "document retrieval system")
		assert.NotContains(t, res.ContentHTML, "Copyright 2024")
	})

	t.Run("blank input is invalid", func(t *testing.T) {
		t.Parallel()

		for _, in := range []string{"", "   ", "\n\t"} {
			_, err := trafilatura.NewExtractor(trafilatura.WithoutTables()).Extract(in)
			assert.Equal(t, refdex.EINVALID, refdex.ErrorCode(err), "%q", in)
		}
	})
}
