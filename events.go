package grove

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Event types emitted by a [Container]. They follow the CloudEvents
// reverse-domain convention.
const (
	EventTypeContainerBuilt   = "io.grove.container.built"
	EventTypeServiceActivated = "io.grove.service.activated"
	EventTypeScopeCreated     = "io.grove.scope.created"
	EventTypeScopeDisposed    = "io.grove.scope.disposed"
	EventTypeResolutionFailed = "io.grove.resolution.failed"
)

// Observer receives container lifecycle events. Events are delivered
// synchronously on the goroutine that caused them, so OnEvent should return
// quickly. A returned error is logged and otherwise ignored.
type Observer interface {
	OnEvent(ctx context.Context, event cloudevents.Event) error
	ObserverID() string
}

// FunctionalObserver adapts a function to [Observer].
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver returns an [Observer] that calls handler.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) *FunctionalObserver {
	return &FunctionalObserver{id: id, handler: handler}
}

func (o *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return o.handler(ctx, event)
}

func (o *FunctionalObserver) ObserverID() string {
	return o.id
}

// newEvent builds a CloudEvent from this container with a JSON payload.
func (c *Container) newEvent(eventType string, data map[string]any) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(newEventID())
	event.SetSource("grove/container/" + c.id)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)
	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	return event
}

// newEventID returns a time-ordered UUIDv7, falling back to v4.
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

func (c *Container) emit(eventType string, data map[string]any) {
	if len(c.observers) == 0 {
		return
	}

	event := c.newEvent(eventType, data)
	ctx := context.Background()
	for _, o := range c.observers {
		if err := o.OnEvent(ctx, event); err != nil {
			c.logger.Warn("Observer failed", "observer", o.ObserverID(), "eventType", eventType, "error", err)
		}
	}
}
