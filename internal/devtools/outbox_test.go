package devtools

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbox_HeldUntilRelease(t *testing.T) {
	o := newOutbox()

	require.True(t, o.Enqueue(LogMessage("initial", "0")))
	require.True(t, o.Enqueue(LogMessage("A", "1")))

	_, ok := o.TryDequeue()
	assert.False(t, ok, "held outbox must not yield messages")
	assert.Equal(t, 2, o.Len())

	assert.True(t, o.Release())
	assert.False(t, o.Release(), "second release is a no-op")

	m, ok := o.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "initial", m.ActionLabel)

	m, ok = o.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "A", m.ActionLabel)

	_, ok = o.TryDequeue()
	assert.False(t, ok)
}

func TestOutbox_ReleaseSignals(t *testing.T) {
	o := newOutbox()
	o.Enqueue(LogMessage("A", "1"))

	select {
	case <-o.Wait():
		t.Fatal("held outbox must not signal")
	default:
	}

	o.Release()

	select {
	case <-o.Wait():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("release did not signal")
	}
}

func TestOutbox_EnqueueAfterClose(t *testing.T) {
	o := newOutbox()
	o.Close()
	o.Close()

	assert.False(t, o.Enqueue(LogMessage("late", "x")))
	assert.True(t, o.Closed())

	select {
	case <-o.Wait():
	default:
		t.Fatal("closed outbox must wake waiters")
	}
}

func TestOutbox_ConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	o := newOutbox()
	o.Release()

	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				o.Enqueue(Message{Kind: KindLog, ActionLabel: string(rune('a' + id)), State: string(rune(i))})
			}
		}(p)
	}
	wg.Wait()

	last := map[string]int{}
	count := 0
	for {
		m, ok := o.TryDequeue()
		if !ok {
			break
		}
		count++
		seq := int([]rune(m.State)[0])
		if prev, seen := last[m.ActionLabel]; seen {
			assert.Greater(t, seq, prev)
		}
		last[m.ActionLabel] = seq
	}
	assert.Equal(t, producers*perProducer, count)
}
