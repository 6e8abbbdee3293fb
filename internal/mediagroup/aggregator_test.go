package mediagroup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitGroup(t *testing.T, ch <-chan Group) Group {
	t.Helper()
	select {
	case g := <-ch:
		return g
	case <-time.After(2 * time.Second):
		t.Fatal("album was not flushed")
		return Group{}
	}
}

func TestAggregator_FlushesWholeAlbum(t *testing.T) {
	flushed := make(chan Group, 4)
	a := New(Options{Debounce: 30 * time.Millisecond, OnFlush: func(g Group) { flushed <- g }})

	assert.True(t, a.Add(Item{ChatID: 1, MediaGroupID: "g1", File: FileRef{ID: "a", MimeType: "image/jpeg"}}))
	assert.True(t, a.Add(Item{ChatID: 1, MediaGroupID: "g1", Caption: "my caption", File: FileRef{ID: "b", MimeType: "video/mp4"}}))
	assert.True(t, a.Add(Item{ChatID: 2, MediaGroupID: "g1", File: FileRef{ID: "c"}}))

	got := map[int64]Group{}
	for i := 0; i < 2; i++ {
		g := waitGroup(t, flushed)
		got[g.ChatID] = g
	}

	require.Len(t, got[1].Files, 2)
	assert.Equal(t, "a", got[1].Files[0].ID)
	assert.Equal(t, "b", got[1].Files[1].ID)
	assert.Equal(t, "my caption", got[1].Caption)
	assert.Len(t, got[2].Files, 1)

	select {
	case g := <-flushed:
		t.Fatalf("unexpected extra flush for chat %d", g.ChatID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAggregator_IgnoresLooseAndRepeatedItems(t *testing.T) {
	flushed := make(chan Group, 1)
	a := New(Options{Debounce: 20 * time.Millisecond, OnFlush: func(g Group) { flushed <- g }})

	assert.False(t, a.Add(Item{ChatID: 1, File: FileRef{ID: "a"}}))
	assert.False(t, a.Add(Item{ChatID: 1, MediaGroupID: "g"}))

	assert.True(t, a.Add(Item{ChatID: 1, MediaGroupID: "g", File: FileRef{ID: "a"}}))
	assert.False(t, a.Add(Item{ChatID: 1, MediaGroupID: "g", File: FileRef{ID: "a"}}))

	g := waitGroup(t, flushed)
	require.Len(t, g.Files, 1)
}

func TestAggregator_FullAlbumFlushesAtOnce(t *testing.T) {
	flushed := make(chan Group, 2)
	a := New(Options{Debounce: time.Hour, MaxFiles: 3, OnFlush: func(g Group) { flushed <- g }})

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, a.Add(Item{ChatID: 7, MediaGroupID: "g", File: FileRef{ID: id}}))
	}

	g := waitGroup(t, flushed)
	require.Len(t, g.Files, 3)
	assert.Equal(t, "c", g.Files[2].ID)

	// A late item opens a fresh album instead of joining the flushed one.
	require.True(t, a.Add(Item{ChatID: 7, MediaGroupID: "g", File: FileRef{ID: "d"}}))
	a.Stop()
	select {
	case <-flushed:
		t.Fatal("stopped aggregator flushed")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAggregator_StopDropsPending(t *testing.T) {
	flushed := make(chan Group, 1)
	a := New(Options{Debounce: 20 * time.Millisecond, OnFlush: func(g Group) { flushed <- g }})

	a.Add(Item{ChatID: 1, MediaGroupID: "g", File: FileRef{ID: "a"}})
	a.Stop()
	assert.False(t, a.Add(Item{ChatID: 1, MediaGroupID: "g", File: FileRef{ID: "b"}}))

	select {
	case <-flushed:
		t.Fatal("stopped aggregator flushed")
	case <-time.After(100 * time.Millisecond):
	}
}
