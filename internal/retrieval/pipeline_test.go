package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/wraith/internal/config"
	"github.com/hyperjump/wraith/internal/extract"
	"github.com/hyperjump/wraith/internal/indexer"
)

const threadsJSONL = `{"thread_id":"https://help.webex.com/reset","source":"https://help.webex.com/reset","title":"Reset your Webex password","text":"Open the Webex sign in page, select Forgot password and follow the email link to choose a new password."}
{"thread_id":"community-42","source":"https://community.cisco.com/t5/42","text":"I forgot my Webex password and the reset email never arrived. Check the spam folder or ask your admin."}
{"thread_id":"community-77","source":"https://community.cisco.com/t5/77","text":"CUCM upgrade fails when the publisher cannot resolve DNS names for subscribers."}
`

func TestPipeline_ingestReopenRetrieve(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath:    filepath.Join(dir, "db", "chunks.db"),
			BleveIndexPath:  filepath.Join(dir, "bleve"),
			VectorIndexPath: filepath.Join(dir, "vectors.bin"),
		},
		Embedding: config.EmbeddingConfig{Provider: "mock", Dimensions: 16},
	}
	config.ApplyDefaults(cfg)

	path := filepath.Join(dir, "threads.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(threadsJSONL), 0600))

	st, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	idx := indexer.New(st.Store, st.Embedder, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, indexer.WithExtractor(extract.NewExtractor()))
	n, err := idx.IngestFile(ctx, path, cfg.Ingest.Extensions)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, st.Close())

	st, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer st.Close()

	stats, err := st.Store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Threads)

	res, err := st.Runtime.RetrieveThreads(ctx, "how do I reset my webex password")
	require.NoError(t, err)
	require.NotEmpty(t, res.Threads)
	var found bool
	for _, th := range res.Threads {
		if th.ThreadID == "https://help.webex.com/reset" {
			found = true
			assert.True(t, th.Authoritative)
		}
	}
	assert.True(t, found, "help article should be part of the context")
	assert.True(t, strings.Contains(res.Context, "Forgot password"), res.Context)
}
