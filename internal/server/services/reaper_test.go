package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophfiles/internal/logging"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"github.com/dmitrijs2005/gophfiles/internal/server/repositories/files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPurger struct {
	index  *files.MemoryRepository
	purged []string
	fail   map[string]bool
}

func (p *recordingPurger) Purge(ctx context.Context, obj *models.FileObject) error {
	if p.fail[obj.ShortID] {
		return errors.New("purge failed")
	}
	p.purged = append(p.purged, obj.ShortID)
	return p.index.Delete(ctx, obj.ID)
}

func seed(t *testing.T, index *files.MemoryRepository, shortID string, created time.Time, persistent bool, status string) {
	t.Helper()
	ctx := context.Background()
	f := &models.FileObject{ID: "id-" + shortID, ShortID: shortID, CreatedAt: created, Persistent: persistent}
	require.NoError(t, index.CreatePending(ctx, f))
	switch status {
	case models.StatusComplete:
		require.NoError(t, index.MarkComplete(ctx, f.ID, 0, 0))
	case models.StatusDeleting:
		require.NoError(t, index.MarkDeleting(ctx, f.ID))
	}
}

func TestReaper_Sweep(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	index := files.NewMemoryRepository()

	seed(t, index, "old", now.Add(-48*time.Hour), false, models.StatusComplete)
	seed(t, index, "oldkept", now.Add(-48*time.Hour), true, models.StatusComplete)
	seed(t, index, "fresh", now.Add(-time.Hour), false, models.StatusComplete)
	seed(t, index, "tomb", now.Add(-time.Minute), false, models.StatusDeleting)
	seed(t, index, "stuck", now.Add(-3*time.Hour), false, models.StatusPending)
	seed(t, index, "uploading", now.Add(-time.Minute), false, models.StatusPending)

	purger := &recordingPurger{index: index}
	r := NewReaper(index, purger, ReaperConfig{Retention: 24 * time.Hour, StaleAfter: 2 * time.Hour}, nil, logging.Nop())
	r.now = func() time.Time { return now }

	n, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.ElementsMatch(t, []string{"old", "tomb", "stuck"}, purger.purged)

	for _, id := range []string{"oldkept", "fresh"} {
		_, err := index.GetByShortID(context.Background(), id)
		assert.NoError(t, err, id)
	}
}

func TestReaper_NoRetentionKeepsFiles(t *testing.T) {
	now := time.Now()
	index := files.NewMemoryRepository()
	seed(t, index, "ancient", now.Add(-24*365*time.Hour), false, models.StatusComplete)

	purger := &recordingPurger{index: index}
	r := NewReaper(index, purger, ReaperConfig{StaleAfter: time.Hour}, nil, logging.Nop())

	n, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, purger.purged)
}

func TestReaper_SkipsFailures(t *testing.T) {
	index := files.NewMemoryRepository()
	seed(t, index, "a", time.Now(), false, models.StatusDeleting)
	seed(t, index, "b", time.Now(), false, models.StatusDeleting)

	purger := &recordingPurger{index: index, fail: map[string]bool{"a": true}}
	r := NewReaper(index, purger, ReaperConfig{}, nil, logging.Nop())

	n, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"b"}, purger.purged)
}

func TestReaper_CompletesDeleteThroughService(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	_, err := env.svc.Upload(ctx, alice, []UploadSource{source("a.txt", []byte("0123456789abcdefXYZ"))}, UploadOptions{})
	require.NoError(t, err)

	obj, err := env.index.GetByShortID(ctx, "id01")
	require.NoError(t, err)
	require.NoError(t, env.index.MarkDeleting(ctx, obj.ID))
	assert.Equal(t, 2, env.backend.Len())

	r := NewReaper(env.index, env.svc, ReaperConfig{}, nil, logging.Nop())
	n, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, env.backend.Len())
}

func TestReaper_RunStopsOnCancel(t *testing.T) {
	index := files.NewMemoryRepository()
	r := NewReaper(index, &recordingPurger{index: index}, ReaperConfig{Interval: time.Millisecond}, nil, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
