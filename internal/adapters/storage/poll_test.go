package storage

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/aurum/internal/domain"
)

func TestDiff(t *testing.T) {
	prev := map[string]string{"a": "1", "b": "1", "c": "1"}
	cur := map[string]string{"a": "1", "b": "2", "d": "1"}

	evs := Diff(prev, cur)
	sort.Slice(evs, func(i, j int) bool { return evs[i].Key < evs[j].Key })
	assert.Equal(t, []domain.StorageEvent{
		{Key: "b", Value: "2"},
		{Key: "c", Removed: true},
		{Key: "d", Value: "1"},
	}, evs)
}

func TestPollEmitsChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	state := map[string]string{"carrito": "v1"}
	snapshot := func(context.Context) (map[string]string, error) {
		mu.Lock()
		defer mu.Unlock()
		out := map[string]string{}
		for k, v := range state {
			out[k] = v
		}
		return out, nil
	}
	value := func(_ context.Context, key string) string { return "valor-" + key }

	got := make(chan domain.StorageEvent, 1)
	stop, err := Poll(ctx, 5*time.Millisecond, snapshot, value, func(ev domain.StorageEvent) { got <- ev })
	require.NoError(t, err)
	defer stop()

	mu.Lock()
	state["carrito"] = "v2"
	mu.Unlock()

	select {
	case ev := <-got:
		assert.Equal(t, domain.StorageEvent{Key: "carrito", Value: "valor-carrito"}, ev)
	case <-time.After(time.Second):
		t.Fatal("sin evento")
	}
}
