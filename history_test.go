package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistoryRecordAndRecent(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	records := []HistoryRecord{
		{ID: "first", Kind: KindSimulate, StartedAt: base, Duration: 1500 * time.Millisecond, Attempted: 100, Succeeded: 100, Output: "chat.log"},
		{ID: "third", Kind: KindRun, StartedAt: base.Add(2 * time.Hour), Duration: time.Minute, Attempted: 5, Succeeded: 4, Failed: 1, Output: "chat_1.log"},
		{ID: "second", Kind: KindCoordinate, StartedAt: base.Add(time.Hour), Duration: 90 * time.Second, Attempted: 10, Succeeded: 9, Failed: 1, Output: "chat.log"},
	}
	for _, rec := range records {
		id, err := h.Record(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, id)
	}

	got, err := h.Recent(ctx, 0)
	require.NoError(t, err)

	want := []HistoryRecord{records[1], records[2], records[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Recent() mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryRecordAssignsID(t *testing.T) {
	h := openTestHistory(t)

	id, err := h.Record(context.Background(), HistoryRecord{Kind: KindSimulate, StartedAt: time.Now()})
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "generated id %q is not a UUID", id)
}

func TestHistoryRecentLimit(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	for i := range 5 {
		// sub-second offsets check ordering does not depend on formatting width
		_, err := h.Record(ctx, HistoryRecord{Kind: KindRun, StartedAt: base.Add(time.Duration(i) * 100 * time.Millisecond)})
		require.NoError(t, err)
	}

	got, err := h.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].StartedAt.Equal(base.Add(400*time.Millisecond)))
	assert.True(t, got[1].StartedAt.Equal(base.Add(300*time.Millisecond)))
}

func TestHistoryDuplicateID(t *testing.T) {
	h := openTestHistory(t)
	rec := HistoryRecord{ID: "same", Kind: KindCoordinate, StartedAt: time.Now()}

	_, err := h.Record(context.Background(), rec)
	require.NoError(t, err)
	_, err = h.Record(context.Background(), rec)
	assert.ErrorContains(t, err, "recording coordinate run")
}

func TestHistoryReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := OpenHistory(path)
	require.NoError(t, err)
	_, err = h.Record(context.Background(), HistoryRecord{Kind: KindSimulate, StartedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, h.Close())

	h, err = OpenHistory(path)
	require.NoError(t, err)
	defer h.Close()

	got, err := h.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
