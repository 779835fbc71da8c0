package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.values)
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("tenant", "acme"))
	require.NoError(t, store.Set("tenant", "globex"))

	val, ok := store.Get("tenant")
	assert.True(t, ok)
	assert.Equal(t, "globex", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_GetInt(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("int", 5)
	_ = store.Set("int64", int64(6))
	_ = store.Set("float", 7.0)
	_ = store.Set("str", "8")

	assert.Equal(t, 5, store.GetInt("int"))
	assert.Equal(t, 6, store.GetInt("int64"))
	assert.Equal(t, 7, store.GetInt("float"))
	assert.Equal(t, 0, store.GetInt("str"))
	assert.Equal(t, 0, store.GetInt("missing"))
}

func TestConfigStore_GetDuration(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("str", "90s")
	_ = store.Set("dur", 3*time.Minute)
	_ = store.Set("secs", 10)
	_ = store.Set("bad", "soon")

	assert.Equal(t, 90*time.Second, store.GetDuration("str"))
	assert.Equal(t, 3*time.Minute, store.GetDuration("dur"))
	assert.Equal(t, 10*time.Second, store.GetDuration("secs"))
	assert.Zero(t, store.GetDuration("bad"))
	assert.Zero(t, store.GetDuration("missing"))
}

func TestConfigStore_GetDurationSlice(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("strs", []string{"1s", "x", "2s"})
	_ = store.Set("durs", []time.Duration{time.Millisecond})
	_ = store.Set("wrong", 3)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, store.GetDurationSlice("strs"))
	assert.Equal(t, []time.Duration{time.Millisecond}, store.GetDurationSlice("durs"))
	assert.Nil(t, store.GetDurationSlice("wrong"))
	assert.Nil(t, store.GetDurationSlice("missing"))
}

func TestConfigStore_LoadAndPath(t *testing.T) {
	var store driven.ConfigStore = NewConfigStore()

	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("poller.max_concurrent_polls", n)
			_ = store.GetInt("poller.max_concurrent_polls")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("poller.max_concurrent_polls")
	assert.True(t, ok)
}
