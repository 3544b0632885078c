package bridge

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/xfeldman/overlay/internal/envelope"
)

// Dispatcher forwards UI commands to the connected agent. It runs on the
// caller's goroutine.
type Dispatcher struct {
	slot *Slot
	log  *slog.Logger
}

// NewDispatcher returns a dispatcher writing through slot.
func NewDispatcher(slot *Slot, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{slot: slot, log: log}
}

// Send wraps content in a user_input command and writes it to the agent.
// With no active session it returns ErrNotConnected and writes nothing.
func (d *Dispatcher) Send(content string) error {
	data, err := envelope.EncodeUICommand(envelope.UserInput(content))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := d.slot.TrySend(data); err != nil {
		if errors.Is(err, ErrNotConnected) {
			d.log.Debug("command dropped, no agent connected")
			return err
		}
		d.log.Warn("send to agent failed", "error", err)
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}

// UserMessage renders a Send error for display to the end user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConnected):
		return "Not connected to agent"
	default:
		return err.Error()
	}
}
