package event

import "reflect"

// Bus is a synchronous typed event bus. Publish delivers to every active
// subscriber inline, in the caller's goroutine, before returning — index
// mirrors that hang off the bus are up to date the moment the mutating call
// that emitted the event returns. Single-writer model: no locking, no
// queued or deferred delivery.
type Bus struct {
	handlers map[reflect.Type][]*Subscription
	nextID   uint64
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]*Subscription),
	}
}

// Subscription is the unsubscribe token returned by Subscribe.
type Subscription struct {
	bus    *Bus
	typ    reflect.Type
	id     uint64
	fn     any
	active bool
}

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool { return s != nil && s.active }

// Cancel removes the subscription from the bus. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil || !s.active {
		return
	}
	s.active = false
	subs := s.bus.handlers[s.typ]
	for i, sub := range subs {
		if sub.id == s.id {
			s.bus.handlers[s.typ] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}

// Subscribe registers a typed handler for events of type T and returns its
// cancellation token.
func Subscribe[T any](b *Bus, fn func(T)) *Subscription {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.nextID++
	s := &Subscription{bus: b, typ: t, id: b.nextID, fn: fn, active: true}
	b.handlers[t] = append(b.handlers[t], s)
	return s
}

// Publish delivers ev to all subscribers of type T, synchronously.
// Handlers registered mid-dispatch are not invoked for the in-flight event;
// a handler cancelled mid-dispatch stops receiving immediately.
func Publish[T any](b *Bus, ev T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	subs := b.handlers[t]
	if len(subs) == 0 {
		return
	}
	// Snapshot so handler-driven (un)subscribes don't shift the slice
	// under the loop.
	snapshot := make([]*Subscription, len(subs))
	copy(snapshot, subs)
	for _, s := range snapshot {
		if s.active {
			s.fn.(func(T))(ev)
		}
	}
}
