package retrieval_engine

import (
	"strings"

	"github.com/markoladipo/notara/internal/models"
)

// DefaultDedupeThreshold is the word-overlap level above which two passages
// count as duplicates.
const DefaultDedupeThreshold = 0.9

// Dedupe drops retrieved passages whose word sets overlap almost entirely
// with an earlier, higher-ranked passage. Input order (descending
// similarity) is preserved, so of two near-duplicates the better match
// survives. Deduping an already-deduped slice is a no-op.
func Dedupe(sources []models.RetrievedSource) []models.RetrievedSource {
	return DedupeWithThreshold(sources, DefaultDedupeThreshold)
}

// DedupeWithThreshold keeps a passage only if its Jaccard word overlap with
// every already-kept passage is at or below threshold. Overlap strictly
// above the threshold marks a duplicate; exactly at it does not.
func DedupeWithThreshold(sources []models.RetrievedSource, threshold float64) []models.RetrievedSource {
	if len(sources) <= 1 {
		return sources
	}

	kept := make([]models.RetrievedSource, 0, len(sources))
	keptSets := make([]map[string]struct{}, 0, len(sources))

	for _, src := range sources {
		set := wordSet(src.Content)
		dup := false
		for _, prev := range keptSets {
			if jaccard(set, prev) > threshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, src)
			keptSets = append(keptSets, set)
		}
	}
	return kept
}

func wordSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

// jaccard is |a∩b| / |a∪b|. Two empty sets are considered identical.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}
