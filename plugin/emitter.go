package plugin

import (
	"context"
	"sync"
	"time"
)

// Event is the fan-out record delivered to EventEmitterPlugin subscribers.
type Event struct {
	Name      string    // "stage.start", "stage.complete", "stage.failed"
	Stage     Stage
	AgentID   string
	Tool      string
	Err       error
	Timestamp time.Time
}

// Subscriber receives emitted events. Subscribers run synchronously on the
// hook path and should return quickly.
type Subscriber func(Event)

// EventEmitterPlugin fans out tool and stage lifecycle events to registered
// subscribers.
type EventEmitterPlugin struct {
	mu   sync.RWMutex
	subs []Subscriber
}

// NewEventEmitterPlugin creates the event emitter plugin.
func NewEventEmitterPlugin() *EventEmitterPlugin {
	return &EventEmitterPlugin{}
}

// Name implements Plugin.
func (p *EventEmitterPlugin) Name() string { return "event_emitter" }

// Subscribe registers a subscriber for all subsequent events.
func (p *EventEmitterPlugin) Subscribe(s Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, s)
}

// BeforeExecute implements BeforeExecuteHook.
func (p *EventEmitterPlugin) BeforeExecute(_ context.Context, pc *Context) error {
	p.emit("stage.start", pc)
	return nil
}

// AfterExecute implements AfterExecuteHook.
func (p *EventEmitterPlugin) AfterExecute(_ context.Context, pc *Context) error {
	p.emit("stage.complete", pc)
	return nil
}

// OnError implements ErrorHook.
func (p *EventEmitterPlugin) OnError(_ context.Context, pc *Context) error {
	p.emit("stage.failed", pc)
	return nil
}

func (p *EventEmitterPlugin) emit(name string, pc *Context) {
	ev := Event{
		Name:      name,
		Stage:     pc.Stage,
		AgentID:   pc.AgentID,
		Err:       pc.Err,
		Timestamp: time.Now(),
	}
	if pc.ToolCall != nil {
		ev.Tool = pc.ToolCall.Name
	}

	p.mu.RLock()
	subs := make([]Subscriber, len(p.subs))
	copy(subs, p.subs)
	p.mu.RUnlock()

	for _, s := range subs {
		s(ev)
	}
}
