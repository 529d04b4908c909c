package internal

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/scorekeep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNameSource struct {
	mu    sync.Mutex
	games []scorekeep.BoardgameNames
	err   error
	calls int
}

func (f *fakeNameSource) ListNames(ctx context.Context) ([]scorekeep.BoardgameNames, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]scorekeep.BoardgameNames(nil), f.games...), nil
}

func (f *fakeNameSource) set(games ...scorekeep.BoardgameNames) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games = games
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestFlattenNames(t *testing.T) {
	wingspan := uuid.MustParse("0190a0a0-0000-7000-8000-000000000001")
	azul := uuid.MustParse("0190a0a0-0000-7000-8000-000000000002")

	entries := FlattenNames([]scorekeep.BoardgameNames{
		{ID: wingspan, Name: "Wingspan", ShortName: "wingspan", Aliases: []string{"Flügelschlag", "Wingspan EU"}},
		{ID: azul, Name: "Azul", ShortName: "azul", Aliases: []string{}},
	})

	assert.Equal(t, []scorekeep.NameIndexEntry{
		{Key: "Wingspan", BoardgameID: wingspan},
		{Key: "wingspan", BoardgameID: wingspan},
		{Key: "Flügelschlag", BoardgameID: wingspan},
		{Key: "Wingspan EU", BoardgameID: wingspan},
		{Key: "Azul", BoardgameID: azul},
		{Key: "azul", BoardgameID: azul},
	}, entries)

	assert.Empty(t, FlattenNames(nil))
}

func TestNameIndexCache_ServesSnapshotUntilExpiry(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	source := &fakeNameSource{}
	source.set(scorekeep.BoardgameNames{ID: id, Name: "Wingspan", ShortName: "wingspan"})
	clock := newFakeClock()

	cache := NewNameIndexCache(source, time.Minute)
	cache.withClock(clock.Now)

	first, err := cache.GetNames(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	// writes are not visible until the snapshot expires
	source.set(
		scorekeep.BoardgameNames{ID: id, Name: "Wingspan", ShortName: "wingspan"},
		scorekeep.BoardgameNames{ID: uuid.New(), Name: "Azul", ShortName: "azul"},
	)
	clock.Advance(59 * time.Second)
	cached, err := cache.GetNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, cached)
	assert.Equal(t, int64(1), cache.Reloads())

	clock.Advance(time.Second)
	fresh, err := cache.GetNames(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 4)
	assert.Equal(t, int64(2), cache.Reloads())
	assert.Equal(t, 2, source.calls)
}

func TestNameIndexCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	source := &fakeNameSource{}
	source.set(scorekeep.BoardgameNames{ID: uuid.New(), Name: "Azul", ShortName: "azul"})

	cache := NewNameIndexCache(source, time.Hour)
	first, err := cache.GetNames(ctx)
	require.NoError(t, err)
	first[0].Key = "mutated"

	second, err := cache.GetNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Azul", second[0].Key)
}

func TestNameIndexCache_SourceError(t *testing.T) {
	boom := errors.New("connection refused")
	source := &fakeNameSource{err: boom}

	cache := NewNameIndexCache(source, time.Minute)
	_, err := cache.GetNames(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rebuild name index")
	assert.Equal(t, int64(0), cache.Reloads())

	// a failed rebuild is retried on the next call
	source.err = nil
	source.set(scorekeep.BoardgameNames{ID: uuid.New(), Name: "Azul", ShortName: "azul"})
	names, err := cache.GetNames(context.Background())
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestNameIndexCache_EmitsRebuildTelemetry(t *testing.T) {
	var (
		mu      sync.Mutex
		emitted []int64
	)
	RegisterTelemetryEmitter(func(ctx context.Context, name string, labels map[string]string, value any) {
		if name != "name_index_rebuild_entries" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		emitted = append(emitted, value.(int64))
	})
	defer RegisterTelemetryEmitter(nil)

	source := &fakeNameSource{}
	source.set(scorekeep.BoardgameNames{ID: uuid.New(), Name: "Azul", ShortName: "azul", Aliases: []string{"Azul Classic"}})

	_, err := NewNameIndexCache(source, time.Minute).GetNames(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{3}, emitted)
}

func TestNameIndexCache_WithClockIgnoresNil(t *testing.T) {
	cache := NewNameIndexCache(&fakeNameSource{}, time.Minute)
	cache.withClock(nil)
	assert.NotNil(t, cache.nowFunc)
}

func TestGetNames_ConcurrentRebuildsReturnWholeSnapshots(t *testing.T) {
	wingspan := scorekeep.BoardgameNames{
		ID:        uuid.MustParse("0190a0a0-0000-7000-8000-0000000000a1"),
		Name:      "Wingspan",
		ShortName: "wingspan",
		Aliases:   []string{"Flügelschlag", "Wingspan, EU"},
	}
	azul := scorekeep.BoardgameNames{
		ID:        uuid.MustParse("0190a0a0-0000-7000-8000-0000000000a2"),
		Name:      "Azul",
		ShortName: "azul",
		Aliases:   []string{},
	}
	first := FlattenNames([]scorekeep.BoardgameNames{wingspan})
	second := FlattenNames([]scorekeep.BoardgameNames{wingspan, azul})

	source := &fakeNameSource{}
	source.set(wingspan)
	clock := newFakeClock()
	cache := NewNameIndexCache(source, time.Millisecond)
	cache.withClock(clock.Now)

	var (
		wg      sync.WaitGroup
		partial atomic.Int64
		failed  atomic.Int64
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 100 {
			if i == 50 {
				source.set(wingspan, azul)
			}
			clock.Advance(2 * time.Millisecond)
		}
	}()
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				got, err := cache.GetNames(context.Background())
				if err != nil {
					failed.Add(1)
					continue
				}
				if !reflect.DeepEqual(got, first) && !reflect.DeepEqual(got, second) {
					partial.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failed.Load())
	assert.Zero(t, partial.Load())

	clock.Advance(2 * time.Millisecond)
	got, err := cache.GetNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, got)
	assert.GreaterOrEqual(t, cache.Reloads(), int64(2))
}
