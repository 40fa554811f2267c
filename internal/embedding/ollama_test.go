package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		assert.Equal(t, "webex login", req.Prompt)
		_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{3, 4}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL+"/", "all-minilm", 2)
	emb, err := e.Embed(context.Background(), "webex login")
	require.NoError(t, err)
	require.Len(t, emb, 2)
	assert.InDelta(t, 0.6, emb[0], 1e-6)
	assert.InDelta(t, 0.8, emb[1], 1e-6)
	norm := math.Sqrt(float64(emb[0]*emb[0] + emb[1]*emb[1]))
	assert.InDelta(t, 1.0, norm, 1e-6)
}

func TestOllamaEmbedder_errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("x") == "" {
			_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{1, 2, 3}})
		}
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "m", 2)
	_, err := e.Embed(context.Background(), "x")
	assert.Error(t, err, "dimension mismatch should fail")

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer bad.Close()
	_, err = NewOllamaEmbedder(bad.URL, "m", 2).Embed(context.Background(), "x")
	assert.ErrorContains(t, err, "404")
}
