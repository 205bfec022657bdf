package application

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	sharedDomain "github.com/felixgeelhaar/nativebridge/internal/shared/domain"
)

// Subscriber observes purchase events.
type Subscriber interface {
	HandlePurchaseEvent(event domain.PurchaseEvent)
}

// SubscriberFunc is a named function subscriber. Use NewSubscriber so the
// value is comparable and can be unregistered.
type SubscriberFunc struct {
	Name string
	fn   func(domain.PurchaseEvent)
}

// NewSubscriber wraps fn as a Subscriber.
func NewSubscriber(name string, fn func(domain.PurchaseEvent)) *SubscriberFunc {
	return &SubscriberFunc{Name: name, fn: fn}
}

func (s *SubscriberFunc) HandlePurchaseEvent(event domain.PurchaseEvent) {
	s.fn(event)
}

func (s *SubscriberFunc) String() string { return s.Name }

// Dispatcher fans purchase events out to subscribers in registration order.
// It is owned by the loop.
type Dispatcher struct {
	logger      *slog.Logger
	subscribers []Subscriber
	onPanic     func(Subscriber, any)
}

// NewDispatcher creates a dispatcher with no subscribers.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// Register adds s. Registering a subscriber twice keeps its original position.
func (d *Dispatcher) Register(s Subscriber) error {
	if s == nil {
		return sharedDomain.ValidationError("subscribe", "subscriber is required")
	}
	if !reflect.TypeOf(s).Comparable() {
		return sharedDomain.ValidationError("subscribe", "subscriber of type %T is not comparable", s)
	}
	if d.indexOf(s) >= 0 {
		return nil
	}
	d.subscribers = append(d.subscribers, s)
	return nil
}

// Unregister removes s. Removing an absent subscriber is a no-op.
func (d *Dispatcher) Unregister(s Subscriber) {
	if s == nil || !reflect.TypeOf(s).Comparable() {
		return
	}
	i := d.indexOf(s)
	if i < 0 {
		return
	}
	d.subscribers = append(d.subscribers[:i], d.subscribers[i+1:]...)
}

// Clear removes every subscriber.
func (d *Dispatcher) Clear() {
	d.subscribers = nil
}

// Len returns the number of subscribers.
func (d *Dispatcher) Len() int {
	return len(d.subscribers)
}

// Deliver hands event to every current subscriber before returning. A
// panicking subscriber is logged and skipped.
func (d *Dispatcher) Deliver(event domain.PurchaseEvent) {
	// Snapshot so a subscriber unregistering itself does not shift delivery.
	subs := make([]Subscriber, len(d.subscribers))
	copy(subs, d.subscribers)
	for _, s := range subs {
		d.deliverTo(s, event)
	}
}

func (d *Dispatcher) deliverTo(s Subscriber, event domain.PurchaseEvent) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("subscriber panicked",
				"subscriber", fmt.Sprint(s),
				"event", event.Kind(),
				"panic", fmt.Sprint(p),
			)
			if d.onPanic != nil {
				d.onPanic(s, p)
			}
		}
	}()
	s.HandlePurchaseEvent(event)
}

func (d *Dispatcher) indexOf(s Subscriber) int {
	for i, existing := range d.subscribers {
		if existing == s {
			return i
		}
	}
	return -1
}
