package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/wadash/internal/schema"
)

func next(t *testing.T, o *Observer) schema.ConnectionState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := o.Next(ctx)
	require.NoError(t, err)
	return s
}

func TestBus_SubscribeDeliversInitialFirst(t *testing.T) {
	b := New(8)
	o := b.Subscribe(schema.NewDisconnected("boot"))
	defer b.Unsubscribe(o)

	b.Publish(schema.NewConnecting(""))

	assert.Equal(t, schema.PhaseDisconnected, next(t, o).Phase())
	assert.Equal(t, schema.PhaseConnecting, next(t, o).Phase())
}

func TestBus_LateSubscriberMissesEarlierPublish(t *testing.T) {
	b := New(8)
	b.Publish(schema.NewConnecting(""))

	o := b.Subscribe(schema.NewAwaitingPairing("T1", ""))
	defer b.Unsubscribe(o)

	got := next(t, o)
	assert.Equal(t, schema.PhaseAwaitingPairing, got.Phase())
	assert.Equal(t, 0, o.Pending())
}

func TestBus_FanOutPreservesOrderPerObserver(t *testing.T) {
	b := New(64)
	o1 := b.Subscribe(schema.NewDisconnected(""))
	o2 := b.Subscribe(schema.NewDisconnected(""))
	defer b.Unsubscribe(o1)
	defer b.Unsubscribe(o2)

	seq := []schema.ConnectionState{
		schema.NewConnected("").Stamped(1, time.Now()),
		schema.NewFailed("boom").Stamped(2, time.Now()),
		schema.NewConnecting("").Stamped(3, time.Now()),
	}
	for _, s := range seq {
		b.Publish(s)
	}

	for _, o := range []*Observer{o1, o2} {
		next(t, o) // catch-up
		for _, want := range seq {
			got := next(t, o)
			assert.Equal(t, want.Seq(), got.Seq())
			assert.Equal(t, want.Phase(), got.Phase())
		}
	}
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b := New(4)
	o := b.Subscribe(schema.NewDisconnected(""))

	b.Unsubscribe(o)
	b.Unsubscribe(o)
	b.Unsubscribe(nil)

	assert.Equal(t, 0, b.Len())
	_, err := o.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	b.Publish(schema.NewConnecting(""))
	assert.Equal(t, 0, o.Pending())
}

func TestBus_SlowObserverIsEvictedNotSkipped(t *testing.T) {
	b := New(2)
	slow := b.Subscribe(schema.NewDisconnected("")) // 1 queued
	fast := b.Subscribe(schema.NewDisconnected(""))
	defer b.Unsubscribe(fast)

	next(t, fast)
	b.Publish(schema.NewConnecting("")) // slow: 2 queued
	next(t, fast)
	b.Publish(schema.NewConnected("")) // slow: over limit

	assert.Equal(t, 1, b.Len())
	_, err := slow.Next(context.Background())
	assert.ErrorIs(t, err, ErrSlowObserver)
	assert.Equal(t, schema.PhaseConnected, next(t, fast).Phase())
}

func TestBus_NextHonoursContext(t *testing.T) {
	b := New(4)
	o := b.Subscribe(schema.NewDisconnected(""))
	defer b.Unsubscribe(o)
	next(t, o)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := o.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBus_NextWakesOnUnsubscribe(t *testing.T) {
	b := New(4)
	o := b.Subscribe(schema.NewDisconnected(""))
	next(t, o)

	errc := make(chan error, 1)
	go func() {
		_, err := o.Next(context.Background())
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	b.Unsubscribe(o)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Unsubscribe")
	}
}

func TestBus_ConcurrentPublishAndUnsubscribe(t *testing.T) {
	b := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := b.Subscribe(schema.NewDisconnected(""))
			b.Unsubscribe(o)
		}()
	}
	for i := 0; i < 100; i++ {
		b.Publish(schema.NewConnecting(""))
	}
	wg.Wait()
	assert.Equal(t, 0, b.Len())
}
