// Package envelope defines the two JSON message shapes exchanged with the
// external agent over the bridge socket.
//
// Agent → bridge frames are AgentEnvelope objects. Bridge → agent frames are
// UICommand objects. One JSON document per WebSocket text frame.
package envelope

import (
	"encoding/json"
	"fmt"
)

// CommandUserInput is the only UICommand type in this protocol version.
const CommandUserInput = "user_input"

// AgentEnvelope is a message produced by the agent.
//
// Timestamp is opaque: it is passed through to the UI unparsed.
// ToolCalls distinguishes absent (nil) from present-but-empty.
type AgentEnvelope struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
	ToolCalls []string `json:"toolCalls,omitzero"`
}

// UICommand is a command sent from the UI to the agent.
type UICommand struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// UserInput builds the user_input command for content.
func UserInput(content string) UICommand {
	return UICommand{Type: CommandUserInput, Content: content}
}

// DecodeError reports a structurally invalid agent frame.
type DecodeError struct {
	// Field is set when a required field is missing.
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("missing field `%s`", e.Field)
	}
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// wireEnvelope mirrors AgentEnvelope with pointer fields so a missing key
// can be told apart from an empty string.
type wireEnvelope struct {
	Role      *string  `json:"role"`
	Content   *string  `json:"content"`
	Timestamp *string  `json:"timestamp"`
	ToolCalls []string `json:"toolCalls"`
}

// DecodeAgentEnvelope parses one agent frame. Unknown fields are ignored.
// Role, content and timestamp must be present as strings; their values are
// not otherwise checked.
func DecodeAgentEnvelope(raw []byte) (AgentEnvelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return AgentEnvelope{}, &DecodeError{Err: err}
	}
	switch {
	case w.Role == nil:
		return AgentEnvelope{}, &DecodeError{Field: "role"}
	case w.Content == nil:
		return AgentEnvelope{}, &DecodeError{Field: "content"}
	case w.Timestamp == nil:
		return AgentEnvelope{}, &DecodeError{Field: "timestamp"}
	}
	return AgentEnvelope{
		Role:      *w.Role,
		Content:   *w.Content,
		Timestamp: *w.Timestamp,
		ToolCalls: w.ToolCalls,
	}, nil
}

// EncodeUICommand serializes a command for the agent.
func EncodeUICommand(cmd UICommand) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s command: %w", cmd.Type, err)
	}
	return data, nil
}
