// Package chunker splits extracted document text into fixed-size,
// overlapping pieces suitable for embedding.
package chunker

import "strings"

type Options struct {
	Size    int // target chunk size in runes
	Overlap int // runes shared between consecutive chunks
}

type Chunk struct {
	Content string
	Index   int
}

func DefaultOptions() Options {
	return Options{Size: 1000, Overlap: 200}
}

// Split cuts text into chunks of opts.Size runes, each starting
// opts.Size-opts.Overlap runes after the previous one. Whitespace-only
// chunks are dropped.
func Split(text string, opts Options) []Chunk {
	if opts.Size <= 0 {
		opts.Size = 1000
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		opts.Overlap = 0
	}

	runes := []rune(text)
	step := opts.Size - opts.Overlap

	var chunks []Chunk
	idx := 0
	for start := 0; start < len(runes); start += step {
		end := start + opts.Size
		if end > len(runes) {
			end = len(runes)
		}

		content := string(runes[start:end])
		if strings.TrimSpace(content) != "" {
			chunks = append(chunks, Chunk{Content: content, Index: idx})
			idx++
		}

		if end == len(runes) {
			break
		}
	}

	return chunks
}
