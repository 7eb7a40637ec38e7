package retrieval_engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markoladipo/notara/internal/models"
)

func named(id, content, file string) models.RetrievedSource {
	return models.RetrievedSource{ID: id, Content: content, FileName: file}
}

func TestAssembleContextEmpty(t *testing.T) {
	assert.Equal(t, "", AssembleContext(nil))
	assert.Equal(t, "", AssembleContext([]models.RetrievedSource{}))
}

func TestAssembleContextGroupsByFile(t *testing.T) {
	in := []models.RetrievedSource{
		named("1", "passage one", "a.pdf"),
		named("2", "passage two", "b.txt"),
		named("3", "passage three", "a.pdf"),
	}

	out := AssembleContext(in)

	// One header per file, in first-appearance order.
	assert.Equal(t, 1, strings.Count(out, "From a.pdf:"))
	assert.Equal(t, 1, strings.Count(out, "From b.txt:"))
	assert.Less(t, strings.Index(out, "From a.pdf:"), strings.Index(out, "From b.txt:"))

	// Both a.pdf passages sit under the a.pdf header.
	aBlock := out[:strings.Index(out, "From b.txt:")]
	assert.Contains(t, aBlock, "passage one")
	assert.Contains(t, aBlock, "passage three")
}

func TestAssembleContextLabelsAreGlobal(t *testing.T) {
	in := []models.RetrievedSource{
		named("1", "alpha", "a.pdf"),
		named("2", "beta", "a.pdf"),
		named("3", "gamma", "b.txt"),
	}

	out := AssembleContext(in)

	for _, label := range []string{"[Source 1]", "[Source 2]", "[Source 3]"} {
		assert.Equal(t, 1, strings.Count(out, label), "label %s must appear exactly once", label)
	}
	assert.NotContains(t, out, "[Source 4]")
}

func TestAssembleContextUnknownFileBucket(t *testing.T) {
	in := []models.RetrievedSource{
		named("1", "orphan passage", ""),
		named("2", "named passage", "notes.md"),
	}

	out := AssembleContext(in)

	assert.Contains(t, out, "From document:")
	assert.Contains(t, out, "From notes.md:")
}

func TestAssembleContextSeparatesGroupsVisibly(t *testing.T) {
	in := []models.RetrievedSource{
		named("1", "alpha", "a.pdf"),
		named("2", "beta", "b.txt"),
	}

	out := AssembleContext(in)

	require.Contains(t, out, sourceSeparator)
	parts := strings.Split(out, sourceSeparator)
	assert.Len(t, parts, 2)
}

func TestAssembleContextTrimsPassageWhitespace(t *testing.T) {
	in := []models.RetrievedSource{named("1", "  padded content \n", "a.pdf")}

	out := AssembleContext(in)
	assert.True(t, strings.HasSuffix(out, "\npadded content"), "got %q", out)
	assert.NotContains(t, out, "  padded content")
}
