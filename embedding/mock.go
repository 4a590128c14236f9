package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

const mockDim = 32

// MockProvider produces deterministic vectors from a text's SHA-256 digest,
// expanded to mockDim floats and L2-normalized. It never calls out to a
// network, so tests and offline scans get stable, comparable similarity
// scores without a live embedding backend.
type MockProvider struct{}

func init() {
	Register(&MockProvider{})
}

// Name implements Provider.
func (m *MockProvider) Name() string { return "mock" }

// Dim implements Provider.
func (m *MockProvider) Dim() int { return mockDim }

// Embed implements Provider.
func (m *MockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = hashVector(text)
	}
	return vectors, nil
}

func hashVector(text string) []float32 {
	vec := make([]float32, mockDim)
	seed := []byte(text)
	block := 0
	for i := 0; i < mockDim; i += 8 {
		h := sha256.Sum256(append(seed, byte(block)))
		for j := 0; j < 8 && i+j < mockDim; j++ {
			u := binary.BigEndian.Uint32(h[j*4 : j*4+4])
			vec[i+j] = float32(u)/float32(math.MaxUint32)*2 - 1
		}
		block++
	}
	return normalize(vec)
}

func normalize(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
