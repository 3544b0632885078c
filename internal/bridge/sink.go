package bridge

// UI-facing event names.
const (
	EventStatus  = "agent-status"
	EventMessage = "agent-message"
	EventError   = "agent-error"
)

// Status strings carried by EventStatus.
const (
	StatusConnected    = "Agent connected"
	StatusDisconnected = "Agent disconnected"
)

// Sink receives named events destined for the UI. Implementations must be
// safe for concurrent use: every session emits from its own goroutine.
type Sink interface {
	Emit(event string, payload any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event string, payload any)

func (f SinkFunc) Emit(event string, payload any) { f(event, payload) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(string, any) {})
