package retrieval_engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markoladipo/notara/internal/models"
)

func src(id, content string, sim float64) models.RetrievedSource {
	return models.RetrievedSource{ID: id, Content: content, Similarity: sim}
}

func TestDedupeKeepsDistinctPassages(t *testing.T) {
	in := []models.RetrievedSource{
		src("a", "log structured merge trees amortize write cost", 0.9),
		src("b", "bloom filters trade memory for false positives", 0.8),
	}

	out := Dedupe(in)
	assert.Equal(t, in, out)
}

func TestDedupeDropsNearDuplicateKeepingHigherRanked(t *testing.T) {
	in := []models.RetrievedSource{
		src("a", "the quick brown fox jumps over the lazy dog", 0.95),
		src("b", "the quick brown fox jumps over the lazy dog today", 0.70),
		src("c", "a completely different sentence about databases", 0.60),
	}

	out := Dedupe(in)

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID, "higher-ranked duplicate must survive")
	assert.Equal(t, "c", out[1].ID)
}

func TestDedupeCaseInsensitive(t *testing.T) {
	in := []models.RetrievedSource{
		src("a", "Alpha Beta Gamma Delta", 0.9),
		src("b", "alpha beta gamma delta", 0.8),
	}

	out := Dedupe(in)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestDedupeEmptyContentsAreDuplicates(t *testing.T) {
	in := []models.RetrievedSource{
		src("a", "   ", 0.9),
		src("b", "", 0.8),
	}

	out := Dedupe(in)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestDedupeIsIdempotent(t *testing.T) {
	in := []models.RetrievedSource{
		src("a", "one two three four five six seven eight nine ten", 0.9),
		src("b", "one two three four five six seven eight nine eleven", 0.8),
		src("c", "entirely unrelated words in this passage here now", 0.7),
	}

	once := Dedupe(in)
	twice := Dedupe(once)
	assert.Equal(t, once, twice)
}

func TestDedupePreservesOrder(t *testing.T) {
	in := []models.RetrievedSource{
		src("a", "first distinct passage about queues", 0.9),
		src("b", "second distinct passage about stacks", 0.8),
		src("c", "third distinct passage about heaps", 0.7),
	}

	out := Dedupe(in)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{out[0].ID, out[1].ID, out[2].ID})
}

func TestDedupeThresholdBoundary(t *testing.T) {
	// 9 of 10 words shared: jaccard 9/11 ≈ 0.818 < 0.9, both kept.
	in := []models.RetrievedSource{
		src("a", "w1 w2 w3 w4 w5 w6 w7 w8 w9 w10", 0.9),
		src("b", "w1 w2 w3 w4 w5 w6 w7 w8 w9 w11", 0.8),
	}
	assert.Len(t, Dedupe(in), 2)

	// Overlap exactly at the threshold is not a duplicate: b's words are 9
	// of a's 10, jaccard 9/10 = 0.9, both kept.
	in = []models.RetrievedSource{
		src("a", "w1 w2 w3 w4 w5 w6 w7 w8 w9 w10", 0.9),
		src("b", "w1 w2 w3 w4 w5 w6 w7 w8 w9", 0.8),
	}
	assert.Len(t, Dedupe(in), 2)

	// Identical word sets: jaccard 1.0 > 0.9, second dropped.
	in = []models.RetrievedSource{
		src("a", "w1 w2 w3", 0.9),
		src("b", "w3 w2 w1 w1", 0.8),
	}
	assert.Len(t, Dedupe(in), 1)
}

func TestDedupeWithThresholdOverride(t *testing.T) {
	// 2 of 3 distinct words shared: jaccard 2/4 = 0.5.
	in := []models.RetrievedSource{
		src("a", "alpha beta gamma", 0.9),
		src("b", "alpha beta delta", 0.8),
	}

	assert.Len(t, DedupeWithThreshold(in, 0.9), 2)
	out := DedupeWithThreshold(in, 0.4)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestDedupeEmptyAndSingleton(t *testing.T) {
	assert.Empty(t, Dedupe(nil))

	one := []models.RetrievedSource{src("a", "solo", 0.9)}
	assert.Equal(t, one, Dedupe(one))
}
