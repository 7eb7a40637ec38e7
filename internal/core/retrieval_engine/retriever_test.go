package retrieval_engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markoladipo/notara/internal/core"
	"github.com/markoladipo/notara/internal/logger"
	"github.com/markoladipo/notara/internal/models"
)

// searchDb stubs only the queries the retriever issues; everything else on
// the embedded interface stays nil and would panic if touched.
type searchDb struct {
	core.DbClient

	lastSearch core.PassageSearch
	results    []models.RetrievedSource
	searchErr  error

	passages []models.Passage
	listErr  error
}

func (s *searchDb) SearchPassages(ctx context.Context, search core.PassageSearch) ([]models.RetrievedSource, error) {
	s.lastSearch = search
	return s.results, s.searchErr
}

func (s *searchDb) ListPassagesByNotebook(ctx context.Context, notebookID, userID string) ([]models.Passage, error) {
	return s.passages, s.listErr
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return s.vec, s.err
}

func (s *stubEmbedder) Dimension() int { return len(s.vec) }

func newTestRetriever(db *searchDb, emb core.EmbeddingProvider) *Retriever {
	return NewRetriever(db, emb, nil, logger.NewNop())
}

func TestRetrievePassesScopeAndDefaults(t *testing.T) {
	db := &searchDb{results: []models.RetrievedSource{{ID: "p1", Similarity: 0.8}}}
	emb := &stubEmbedder{vec: []float32{0.1, 0.2}}
	r := newTestRetriever(db, emb)

	nbID, callerID := uuid.NewString(), uuid.NewString()
	got, err := r.Retrieve(context.Background(), nbID, callerID, "what is a bloom filter?")

	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, nbID, db.lastSearch.NotebookID)
	assert.Equal(t, callerID, db.lastSearch.CallerID)
	assert.False(t, db.lastSearch.SharedAccess)
	assert.Equal(t, 8, db.lastSearch.Limit)
	assert.InDelta(t, 0.3, db.lastSearch.MinSimilarity, 1e-9)
	assert.Equal(t, emb.vec, db.lastSearch.Vector)
}

func TestRetrieveSharedWidensScope(t *testing.T) {
	db := &searchDb{}
	r := newTestRetriever(db, &stubEmbedder{vec: []float32{1}})

	_, err := r.RetrieveShared(context.Background(), uuid.NewString(), uuid.NewString(), "query")

	require.NoError(t, err)
	assert.True(t, db.lastSearch.SharedAccess)
}

func TestRetrieveRejectsMalformedIDs(t *testing.T) {
	r := newTestRetriever(&searchDb{}, &stubEmbedder{vec: []float32{1}})

	_, err := r.Retrieve(context.Background(), "nope", uuid.NewString(), "q")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = r.Retrieve(context.Background(), uuid.NewString(), "nope", "q")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestRetrieveBlankQueryReturnsNothing(t *testing.T) {
	db := &searchDb{results: []models.RetrievedSource{{ID: "p1"}}}
	r := newTestRetriever(db, &stubEmbedder{vec: []float32{1}})

	got, err := r.Retrieve(context.Background(), uuid.NewString(), uuid.NewString(), "   ")

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, db.lastSearch.NotebookID, "blank query must not reach the database")
}

func TestRetrieveWrapsEmbedderFailure(t *testing.T) {
	r := newTestRetriever(&searchDb{}, &stubEmbedder{err: errors.New("quota exceeded")})

	_, err := r.Retrieve(context.Background(), uuid.NewString(), uuid.NewString(), "q")
	assert.ErrorIs(t, err, ErrRetrievalFailed)
}

func TestRetrieveWrapsSearchFailure(t *testing.T) {
	db := &searchDb{searchErr: errors.New("connection reset")}
	r := newTestRetriever(db, &stubEmbedder{vec: []float32{1}})

	_, err := r.Retrieve(context.Background(), uuid.NewString(), uuid.NewString(), "q")
	assert.ErrorIs(t, err, ErrRetrievalFailed)
}

func TestGetAllPassagesJoinsInOrder(t *testing.T) {
	db := &searchDb{passages: []models.Passage{
		{Content: "first"},
		{Content: "second"},
		{Content: "third"},
	}}
	r := newTestRetriever(db, &stubEmbedder{})

	got, err := r.GetAllPassages(context.Background(), uuid.NewString(), uuid.NewString())

	require.NoError(t, err)
	assert.Equal(t, "first\n\nsecond\n\nthird", got)
}

func TestGetAllPassagesCapsLength(t *testing.T) {
	var passages []models.Passage
	for i := 0; i < 100; i++ {
		passages = append(passages, models.Passage{Content: strings.Repeat("x", 1000)})
	}
	db := &searchDb{passages: passages}
	r := newTestRetriever(db, &stubEmbedder{})

	got, err := r.GetAllPassages(context.Background(), uuid.NewString(), uuid.NewString())

	require.NoError(t, err)
	assert.Equal(t, 30000, len([]rune(got)))
}

func TestGetAllPassagesCapCountsRunesNotBytes(t *testing.T) {
	// Multibyte content: 40 passages of 1000 three-byte runes each. The cap
	// is in characters, so the result must still be exactly 30000 runes.
	var passages []models.Passage
	for i := 0; i < 40; i++ {
		passages = append(passages, models.Passage{Content: strings.Repeat("語", 1000)})
	}
	db := &searchDb{passages: passages}
	r := newTestRetriever(db, &stubEmbedder{})

	got, err := r.GetAllPassages(context.Background(), uuid.NewString(), uuid.NewString())

	require.NoError(t, err)
	assert.Equal(t, 30000, len([]rune(got)))
}

func TestGetAllPassagesEmptyNotebook(t *testing.T) {
	r := newTestRetriever(&searchDb{}, &stubEmbedder{})

	got, err := r.GetAllPassages(context.Background(), uuid.NewString(), uuid.NewString())

	require.NoError(t, err)
	assert.Equal(t, "", got)
}
