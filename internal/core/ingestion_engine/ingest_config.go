package ingestion_engine

import "time"

// IngestConfig tunes the batch scheduler.
//
// ChunkSize/ChunkOverlap: passed through to the chunker (2000/200).
// BatchSize:   passages embedded concurrently and persisted per write (5).
// BatchDelay:  unconditional pause between consecutive batches (6.5s) to stay
//              inside the embedding provider's requests-per-minute budget.
//              Not adaptive; skipped after the final batch.
// PreviewLen:  characters of the first chunk returned as PreviewText.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	BatchDelay   time.Duration
	PreviewLen   int
}

func (c *IngestConfig) withDefaults() IngestConfig {
	cfg := IngestConfig{}
	if c != nil {
		cfg = *c
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 2000
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 6500 * time.Millisecond
	}
	if cfg.PreviewLen <= 0 {
		cfg.PreviewLen = 280
	}
	return cfg
}
