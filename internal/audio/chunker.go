package audio

import (
	"fmt"
	"time"
)

// Chunker splits long recordings into consecutive pieces of bounded length.
type Chunker struct {
	sampleRate   int
	chunkSamples int
}

// NewChunker creates a chunker producing pieces of at most chunkDuration.
func NewChunker(sampleRate int, chunkDuration time.Duration) (*Chunker, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	chunkSamples := int(chunkDuration.Seconds() * float64(sampleRate))
	if chunkSamples <= 0 {
		return nil, fmt.Errorf("chunk duration %v is shorter than one sample at %d Hz", chunkDuration, sampleRate)
	}

	return &Chunker{
		sampleRate:   sampleRate,
		chunkSamples: chunkSamples,
	}, nil
}

// Split returns views into samples; the last piece may be shorter. Empty
// input yields no chunks.
func (c *Chunker) Split(samples []float32) [][]float32 {
	var chunks [][]float32
	for off := 0; off < len(samples); off += c.chunkSamples {
		end := off + c.chunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		chunks = append(chunks, samples[off:end:end])
	}
	return chunks
}

// ChunkDuration is the length of a full chunk.
func (c *Chunker) ChunkDuration() time.Duration {
	return time.Duration(c.chunkSamples) * time.Second / time.Duration(c.sampleRate)
}

// ChunkSamples is the number of samples in a full chunk.
func (c *Chunker) ChunkSamples() int {
	return c.chunkSamples
}
