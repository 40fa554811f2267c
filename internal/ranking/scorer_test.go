package ranking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockProbe struct {
	mu     *sync.Mutex
	locked bool
}

func (p *lockProbe) Score(_ context.Context, _ string, passages []string) ([]float64, error) {
	p.locked = !p.mu.TryLock()
	if !p.locked {
		p.mu.Unlock()
	}
	return make([]float64, len(passages)), nil
}

func TestGuardedScorer_holdsSharedLock(t *testing.T) {
	mu := &sync.Mutex{}
	probe := &lockProbe{mu: mu}
	g := NewGuardedScorer(probe, mu, time.Second)
	scores, err := g.Score(context.Background(), "q", []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, scores, 2)
	assert.True(t, probe.locked, "inner scorer should run under the shared lock")
	assert.True(t, mu.TryLock(), "lock should be released after the call")
	mu.Unlock()
}

func TestGuardedScorer_timeoutWhileWaiting(t *testing.T) {
	mu := &sync.Mutex{}
	mu.Lock()
	g := NewGuardedScorer(&lockProbe{mu: &sync.Mutex{}}, mu, 20*time.Millisecond)
	done := make(chan error, 1)
	go func() {
		_, err := g.Score(context.Background(), "q", []string{"a"})
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	mu.Unlock()
	err := <-done
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
