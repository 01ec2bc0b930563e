package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/guloona/storefront-bff-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirror_WaitWithNothingPending(t *testing.T) {
	m := newTestMirror(newFakeCartStore(), observability.NewMetrics())
	require.NoError(t, m.Wait(context.Background()))
	assert.Zero(t, m.Pending())
}

func TestMirror_WaitHonoursContext(t *testing.T) {
	store := newFakeCartStore()
	store.delay = func(cartOp) time.Duration { return 200 * time.Millisecond }
	m := newTestMirror(store, observability.NewMetrics())

	m.Upsert("u1", domain.CartLine{ProductID: 1, Size: "S", Quantity: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, m.Wait(ctx), context.DeadlineExceeded)

	waitMirror(t, m.Wait)
	assert.Zero(t, m.Pending())
}

func TestMirror_DifferentKeysRunConcurrently(t *testing.T) {
	store := newFakeCartStore()
	store.delay = func(cartOp) time.Duration { return 100 * time.Millisecond }
	metrics := observability.NewMetrics()
	m := newTestMirror(store, metrics)

	start := time.Now()
	for i := 1; i <= 4; i++ {
		m.Upsert("u1", domain.CartLine{ProductID: i, Size: "M", Quantity: i})
	}
	waitMirror(t, m.Wait)

	assert.Less(t, time.Since(start), 350*time.Millisecond)
	assert.Len(t, store.recorded(), 4)
	assert.EqualValues(t, 4, metrics.GetSyncSnapshot().MirrorSuccess)
}

func TestMirror_SameKeyIsSerial(t *testing.T) {
	store := newFakeCartStore()
	store.delay = func(op cartOp) time.Duration {
		return time.Duration(10-op.quantity) * 5 * time.Millisecond
	}
	m := newTestMirror(store, observability.NewMetrics())

	for q := 1; q <= 5; q++ {
		m.Upsert("u1", domain.CartLine{ProductID: 3, Size: "L", Quantity: q})
	}
	waitMirror(t, m.Wait)

	var got []string
	for _, op := range store.recorded() {
		got = append(got, fmt.Sprint(op.quantity))
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, got)
	line, _ := store.line("u1", domain.LineKey{ProductID: 3, Size: "L"})
	assert.Equal(t, 5, line.Quantity)
}
