package ingestion_engine

// Document lifecycle states. A document moves processing → ready or
// processing → error; both terminal states support re-ingestion, which
// resets the document to processing.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusError      = "error"
)

// AggregateStatus derives a notebook's status from its documents' statuses
// with the precedence error > processing > ready. An empty notebook is ready.
func AggregateStatus(statuses []string) string {
	agg := StatusReady
	for _, s := range statuses {
		switch s {
		case StatusError:
			return StatusError
		case StatusProcessing:
			agg = StatusProcessing
		}
	}
	return agg
}
