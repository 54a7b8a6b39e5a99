package stats

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/adshield/internal/adblock/domain"
	"github.com/haukened/adshield/internal/adblock/repos/statsdb"
	"github.com/haukened/adshield/internal/adblock/services/classifier"
)

type fakeSession struct {
	mu sync.Mutex
	st classifier.Stats
}

func (f *fakeSession) Stats() classifier.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st
}

func (f *fakeSession) ResetSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st.Blocked = domain.CategoryCounts{}
	f.st.Classified = 0
}

func (f *fakeSession) block(c domain.Category, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.st.Blocked.Inc(c)
		f.st.Classified++
	}
}

type failingStore struct {
	countsErr error
	addErr    error
}

func (f failingStore) AddCounts(domain.CategoryCounts) error  { return f.addErr }
func (f failingStore) Counts() (domain.CategoryCounts, error) { return domain.CategoryCounts{}, f.countsErr }

type fixedFilters domain.FilterStats

func (f fixedFilters) Stats() domain.FilterStats { return domain.FilterStats(f) }

func openStore(t *testing.T, path string) *statsdb.Store {
	t.Helper()
	s, err := statsdb.Open(path)
	require.NoError(t, err)
	return s
}

func TestTracker_SessionAndLifetime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	store := openStore(t, path)
	require.NoError(t, store.AddCounts(domain.CategoryCounts{Network: 10, Tracking: 5}))

	sess := &fakeSession{}
	tr, err := New(Options{Session: sess, Store: store, Filters: fixedFilters{Version: "1.2.3", PatternCount: 7}})
	require.NoError(t, err)

	sess.block(domain.CategoryNetwork, 3)
	sess.block(domain.CategoryYouTube, 2)

	snap := tr.Snapshot()
	assert.Equal(t, domain.CategoryCounts{Network: 3, YouTube: 2}, snap.Session)
	assert.Equal(t, domain.CategoryCounts{Network: 13, Tracking: 5, YouTube: 2}, snap.Lifetime)
	assert.Equal(t, uint64(5), snap.SessionBlocked)
	assert.Equal(t, uint64(20), snap.TotalBlocked)
	assert.Equal(t, uint64(5), snap.Classified)
	assert.Equal(t, "1.2.3", snap.Filters.Version)

	require.NoError(t, tr.Flush())
	// A second flush without new blocks writes nothing.
	require.NoError(t, tr.Flush())
	assert.Equal(t, uint64(20), tr.Snapshot().TotalBlocked)

	counts, err := store.Counts()
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryCounts{Network: 13, Tracking: 5, YouTube: 2}, counts)
	require.NoError(t, store.Close())

	// Totals survive a restart.
	store = openStore(t, path)
	defer store.Close()
	tr, err = New(Options{Session: &fakeSession{}, Store: store})
	require.NoError(t, err)
	snap = tr.Snapshot()
	assert.Equal(t, uint64(20), snap.TotalBlocked)
	assert.Equal(t, uint64(0), snap.SessionBlocked)
}

func TestTracker_ResetSessionKeepsLifetime(t *testing.T) {
	sess := &fakeSession{}
	tr, err := New(Options{Session: sess})
	require.NoError(t, err)

	sess.block(domain.CategoryTracking, 4)
	require.NoError(t, tr.ResetSession())
	sess.block(domain.CategoryTracking, 1)

	snap := tr.Snapshot()
	assert.Equal(t, uint64(1), snap.SessionBlocked)
	assert.Equal(t, uint64(5), snap.TotalBlocked)

	require.NoError(t, tr.Flush())
	assert.Equal(t, uint64(5), tr.Snapshot().TotalBlocked)
}

func TestTracker_Errors(t *testing.T) {
	_, err := New(Options{Session: &fakeSession{}, Store: failingStore{countsErr: errors.New("boom")}})
	assert.Error(t, err)

	sess := &fakeSession{}
	tr, err := New(Options{Session: sess, Store: failingStore{addErr: errors.New("disk full")}})
	require.NoError(t, err)
	sess.block(domain.CategoryNetwork, 2)
	assert.Error(t, tr.Flush())
	// Unflushed counts are still reported and retried.
	assert.Equal(t, uint64(2), tr.Snapshot().TotalBlocked)
	assert.Error(t, tr.ResetSession())
	assert.Equal(t, uint64(2), tr.Snapshot().SessionBlocked)
}

func TestTracker_RunFlushesOnCancel(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "stats.db"))
	defer store.Close()
	sess := &fakeSession{}
	tr, err := New(Options{Session: sess, Store: store})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx, time.Hour)
		close(done)
	}()
	sess.block(domain.CategoryYouTube, 3)
	cancel()
	<-done

	counts, err := store.Counts()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), counts.YouTube)
}
