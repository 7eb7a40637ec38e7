package ingestion_engine

import (
	"regexp"
	"strings"
)

// ChunkerConfig tunes the passage splitter.
//
// TargetSize: soft upper bound per chunk in characters (2000).
// Overlap:    trailing characters of a flushed chunk seeded into the next (200).
type ChunkerConfig struct {
	TargetSize int
	Overlap    int
}

func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{TargetSize: 2000, Overlap: 200}
}

func (c ChunkerConfig) withDefaults() ChunkerConfig {
	if c.TargetSize <= 0 {
		c.TargetSize = 2000
	}
	if c.Overlap < 0 || c.Overlap >= c.TargetSize {
		c.Overlap = c.TargetSize / 10
	}
	return c
}

var paragraphBoundary = regexp.MustCompile(`\n[ \t]*\n`)

// SplitText splits normalized text into overlapping passages with the default
// configuration. Pure and deterministic: the same input always yields the
// same ordered chunk sequence.
func SplitText(text string) []string {
	return DefaultChunkerConfig().Split(text)
}

// Split accumulates paragraphs into chunks of at most TargetSize characters,
// seeding each new chunk with the trailing Overlap characters of the previous
// one. Oversized paragraphs are re-split on line boundaries with the same
// strategy, and a single unbroken line longer than TargetSize falls back to a
// hard fixed-width split. Chunks that are empty after trimming are dropped.
func (c ChunkerConfig) Split(text string) []string {
	cfg := c.withDefaults()
	return cfg.splitUnits(text, 0)
}

// splitUnits handles one granularity level: 0 = paragraphs, 1 = lines,
// 2+ = hard fixed-width split.
func (c ChunkerConfig) splitUnits(text string, level int) []string {
	var (
		units []string
		sep   string
	)
	switch level {
	case 0:
		units = paragraphBoundary.Split(text, -1)
		sep = "\n\n"
	case 1:
		units = strings.Split(text, "\n")
		sep = "\n"
	default:
		return c.hardSplit(text)
	}

	var (
		chunks []string
		buf    string
		seed   string // overlap carried from the last flushed chunk
	)

	flush := func() {
		if strings.TrimSpace(buf) != "" {
			chunks = append(chunks, buf)
			seed = overlapTail(buf, c.Overlap)
		}
		buf = ""
	}

	push := func(unit string) {
		switch {
		case buf != "":
			buf += sep + unit
		case seed != "":
			buf = seed + sep + unit
			seed = ""
		default:
			buf = unit
		}
	}

	for _, unit := range units {
		if strings.TrimSpace(unit) == "" {
			continue
		}

		if len(unit) > c.TargetSize {
			// The unit alone blows the budget: flush what we have and
			// re-split the unit at the next-finer granularity.
			flush()
			sub := c.splitUnits(unit, level+1)
			if len(sub) > 0 {
				chunks = append(chunks, sub...)
				seed = overlapTail(sub[len(sub)-1], c.Overlap)
			}
			continue
		}

		if buf != "" && len(buf)+len(sep)+len(unit) > c.TargetSize {
			flush()
		}
		push(unit)
	}
	flush()

	return chunks
}

// hardSplit cuts text into fixed-width windows of TargetSize characters,
// stepping TargetSize-Overlap so consecutive windows share Overlap characters.
func (c ChunkerConfig) hardSplit(text string) []string {
	runes := []rune(text)
	step := c.TargetSize - c.Overlap
	if step <= 0 {
		step = c.TargetSize
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.TargetSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// overlapTail returns the trailing n characters of s, snapped to a rune
// boundary.
func overlapTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
