package envelope

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAgentEnvelope_Minimal(t *testing.T) {
	env, err := DecodeAgentEnvelope([]byte(`{"role":"assistant","content":"hi","timestamp":"t1"}`))
	require.NoError(t, err)

	assert.Equal(t, "assistant", env.Role)
	assert.Equal(t, "hi", env.Content)
	assert.Equal(t, "t1", env.Timestamp)
	assert.Nil(t, env.ToolCalls)
}

func TestDecodeAgentEnvelope_ToolCallsPresence(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
		null bool
	}{
		{"absent", `{"role":"a","content":"c","timestamp":"t"}`, nil, true},
		{"null", `{"role":"a","content":"c","timestamp":"t","toolCalls":null}`, nil, true},
		{"empty", `{"role":"a","content":"c","timestamp":"t","toolCalls":[]}`, []string{}, false},
		{"ordered", `{"role":"a","content":"c","timestamp":"t","toolCalls":["b","a","c"]}`, []string{"b", "a", "c"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := DecodeAgentEnvelope([]byte(tc.raw))
			require.NoError(t, err)
			if tc.null {
				assert.Nil(t, env.ToolCalls)
			} else {
				require.NotNil(t, env.ToolCalls)
				assert.Equal(t, tc.want, env.ToolCalls)
			}

			// Re-encoding keeps absent absent and empty empty.
			data, err := json.Marshal(env)
			require.NoError(t, err)
			var m map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(data, &m))
			raw, ok := m["toolCalls"]
			if tc.null {
				assert.False(t, ok, "toolCalls should be omitted, got %s", raw)
				return
			}
			require.True(t, ok)
			var got []string
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeAgentEnvelope_UnknownFieldsIgnored(t *testing.T) {
	env, err := DecodeAgentEnvelope([]byte(`{"role":"tool","content":"x","timestamp":"not-a-date","model":"m","extra":{"a":1}}`))
	require.NoError(t, err)
	assert.Equal(t, "tool", env.Role)
	assert.Equal(t, "not-a-date", env.Timestamp)
}

func TestDecodeAgentEnvelope_EmptyStringsAccepted(t *testing.T) {
	env, err := DecodeAgentEnvelope([]byte(`{"role":"","content":"","timestamp":""}`))
	require.NoError(t, err)
	assert.Equal(t, AgentEnvelope{}, env)
}

func TestDecodeAgentEnvelope_MissingFields(t *testing.T) {
	cases := map[string]string{
		"role":      `{"content":"c","timestamp":"t"}`,
		"content":   `{"role":"assistant"}`,
		"timestamp": `{"role":"assistant","content":"c"}`,
	}
	for field, raw := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := DecodeAgentEnvelope([]byte(raw))
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, field, de.Field)
			assert.Equal(t, "missing field `"+field+"`", err.Error())
		})
	}
}

func TestDecodeAgentEnvelope_NullRequiredField(t *testing.T) {
	_, err := DecodeAgentEnvelope([]byte(`{"role":null,"content":"c","timestamp":"t"}`))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "role", de.Field)
}

func TestDecodeAgentEnvelope_Malformed(t *testing.T) {
	for _, raw := range []string{
		``,
		`not json`,
		`[1,2]`,
		`"string"`,
		`{"role":1,"content":"c","timestamp":"t"}`,
		`{"role":"a","content":"c","timestamp":"t","toolCalls":"x"}`,
		`{"role":"a","content":"c","timestamp":"t","toolCalls":[1]}`,
		`{"role":"a","content":"c","timestamp":"t"} trailing`,
	} {
		_, err := DecodeAgentEnvelope([]byte(raw))
		var de *DecodeError
		require.ErrorAs(t, err, &de, "input %q", raw)
		assert.Empty(t, de.Field, "input %q", raw)
		assert.NotNil(t, errors.Unwrap(err), "input %q", raw)
	}
}

func TestEncodeUICommand(t *testing.T) {
	data, err := EncodeUICommand(UserInput("hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user_input","content":"hello"}`, string(data))
}

func TestEncodeUICommand_Escaping(t *testing.T) {
	content := "line1\nline2 \"quoted\" <tag> é"
	data, err := EncodeUICommand(UserInput(content))
	require.NoError(t, err)

	var got UICommand
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, CommandUserInput, got.Type)
	assert.Equal(t, content, got.Content)
}
