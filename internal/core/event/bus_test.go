package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct{ n int }
type pong struct{ n int }

func TestPublishIsSynchronous(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(ev ping) { got = append(got, ev.n) })

	Publish(b, ping{1})
	// The handler has run before Publish returned.
	require.Equal(t, []int{1}, got)

	Publish(b, ping{2})
	assert.Equal(t, []int{1, 2}, got)
}

func TestPublishRoutesByType(t *testing.T) {
	b := NewBus()
	var pings, pongs int
	Subscribe(b, func(ping) { pings++ })
	Subscribe(b, func(pong) { pongs++ })

	Publish(b, ping{})
	Publish(b, ping{})
	Publish(b, pong{})
	assert.Equal(t, 2, pings)
	assert.Equal(t, 1, pongs)
}

func TestSubscribersRunInRegistrationOrder(t *testing.T) {
	b := NewBus()
	var order []string
	Subscribe(b, func(ping) { order = append(order, "first") })
	Subscribe(b, func(ping) { order = append(order, "second") })

	Publish(b, ping{})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestCancel(t *testing.T) {
	b := NewBus()
	calls := 0
	sub := Subscribe(b, func(ping) { calls++ })

	Publish(b, ping{})
	assert.True(t, sub.Active())

	sub.Cancel()
	sub.Cancel() // safe to repeat
	assert.False(t, sub.Active())

	Publish(b, ping{})
	assert.Equal(t, 1, calls)
}

func TestCancelDuringDispatch(t *testing.T) {
	b := NewBus()
	var subs [2]*Subscription
	calls := [2]int{}
	// The first handler cancels the second mid-dispatch; the second is
	// skipped for the in-flight event too.
	subs[0] = Subscribe(b, func(ping) {
		calls[0]++
		subs[1].Cancel()
	})
	subs[1] = Subscribe(b, func(ping) { calls[1]++ })

	Publish(b, ping{})
	Publish(b, ping{})
	assert.Equal(t, 2, calls[0])
	assert.Equal(t, 0, calls[1])
}
