// Package events provides in-process notification fan-out and retention
// of the stored notification feed.
package events

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tOgg1/missiv/internal/logging"
	"github.com/tOgg1/missiv/internal/models"
)

var (
	ErrInvalidSubscriptionID = errors.New("subscription id is required")
	ErrNilHandler            = errors.New("subscription handler is nil")
	ErrSubscriptionExists    = errors.New("subscription id already in use")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
)

type EventHandler func(event *models.Event)

// Filter selects events. An empty field matches everything.
type Filter struct {
	EventTypes  []models.EventType
	EntityTypes []models.EntityType
	EntityID    string
}

// DeskFilter matches notifications addressed to desk.
func DeskFilter(desk string) Filter {
	return Filter{EntityTypes: []models.EntityType{models.EntityTypeDesk}, EntityID: desk}
}

func (f Filter) Matches(event *models.Event) bool {
	switch {
	case event == nil:
		return false
	case len(f.EventTypes) > 0 && !slices.Contains(f.EventTypes, event.Type):
		return false
	case len(f.EntityTypes) > 0 && !slices.Contains(f.EntityTypes, event.EntityType):
		return false
	case f.EntityID != "" && f.EntityID != event.EntityID:
		return false
	}
	return true
}

// Publisher fans committed notifications out to in-process subscribers.
type Publisher interface {
	Publish(ctx context.Context, event *models.Event)
	Subscribe(id string, filter Filter, handler EventHandler) error
	Unsubscribe(id string) error
	SubscriberCount() int
}

type subscriber struct {
	id      string
	filter  Filter
	handler EventHandler
}

// InMemoryPublisher delivers synchronously on the publishing goroutine, in
// subscription order. Handlers must not block.
type InMemoryPublisher struct {
	mu     sync.RWMutex
	subs   []subscriber
	logger zerolog.Logger
}

type PublisherOption func(*InMemoryPublisher)

// WithLogger sets the logger that records handler panics.
func WithLogger(logger zerolog.Logger) PublisherOption {
	return func(p *InMemoryPublisher) { p.logger = logger }
}

func NewInMemoryPublisher(opts ...PublisherOption) *InMemoryPublisher {
	p := &InMemoryPublisher{logger: logging.Component("events")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish hands event to every matching subscriber. A handler that panics is
// logged and skipped.
func (p *InMemoryPublisher) Publish(_ context.Context, event *models.Event) {
	if event == nil {
		return
	}
	p.mu.RLock()
	targets := make([]subscriber, 0, len(p.subs))
	for _, sub := range p.subs {
		if sub.filter.Matches(event) {
			targets = append(targets, sub)
		}
	}
	p.mu.RUnlock()

	for _, sub := range targets {
		p.call(sub, event)
	}
}

func (p *InMemoryPublisher) call(sub subscriber, event *models.Event) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("subscription", sub.id).
				Str("event_id", event.ID).
				Str("event_type", string(event.Type)).
				Interface("panic", r).
				Msg("notification handler panicked")
		}
	}()
	sub.handler(event)
}

func (p *InMemoryPublisher) Subscribe(id string, filter Filter, handler EventHandler) error {
	switch {
	case id == "":
		return ErrInvalidSubscriptionID
	case handler == nil:
		return ErrNilHandler
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexOf(id) >= 0 {
		return ErrSubscriptionExists
	}
	p.subs = append(p.subs, subscriber{id: id, filter: filter, handler: handler})
	return nil
}

func (p *InMemoryPublisher) Unsubscribe(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOf(id)
	if i < 0 {
		return ErrSubscriptionNotFound
	}
	p.subs = slices.Delete(p.subs, i, i+1)
	return nil
}

func (p *InMemoryPublisher) indexOf(id string) int {
	return slices.IndexFunc(p.subs, func(s subscriber) bool { return s.id == id })
}

func (p *InMemoryPublisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Close drops every subscription.
func (p *InMemoryPublisher) Close() {
	p.mu.Lock()
	p.subs = nil
	p.mu.Unlock()
}
