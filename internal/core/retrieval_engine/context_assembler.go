package retrieval_engine

import (
	"fmt"
	"strings"

	"github.com/markoladipo/notara/internal/models"
)

const sourceSeparator = "\n\n---\n\n"

// AssembleContext renders retrieved passages into a single prompt-ready
// block. Passages are grouped under their source file in first-appearance
// order; passages without a file name fall into a shared "document" bucket.
// Labels ("Source 1", "Source 2", ...) number passages globally so an answer
// can cite them unambiguously. Empty input yields an empty string.
func AssembleContext(sources []models.RetrievedSource) string {
	if len(sources) == 0 {
		return ""
	}

	var order []string
	grouped := map[string][]models.RetrievedSource{}
	for _, src := range sources {
		name := src.FileName
		if strings.TrimSpace(name) == "" {
			name = "document"
		}
		if _, seen := grouped[name]; !seen {
			order = append(order, name)
		}
		grouped[name] = append(grouped[name], src)
	}

	var blocks []string
	n := 0
	for _, name := range order {
		var b strings.Builder
		fmt.Fprintf(&b, "From %s:\n", name)
		for _, src := range grouped[name] {
			n++
			fmt.Fprintf(&b, "\n[Source %d]\n%s\n", n, strings.TrimSpace(src.Content))
		}
		blocks = append(blocks, strings.TrimRight(b.String(), "\n"))
	}

	return strings.Join(blocks, sourceSeparator)
}
