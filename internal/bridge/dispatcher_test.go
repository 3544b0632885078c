package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_NotConnected(t *testing.T) {
	d := NewDispatcher(&Slot{}, nil)

	err := d.Send("hello")
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, "Not connected to agent", UserMessage(err))
}

func TestDispatcher_WritesUserInput(t *testing.T) {
	slot := &Slot{}
	conn := &fakeConn{}
	slot.Install(newHandle("s1", conn, 0))
	d := NewDispatcher(slot, nil)

	require.NoError(t, d.Send("hello"))

	frames := conn.written()
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"type":"user_input","content":"hello"}`, frames[0])
}

func TestDispatcher_TransportError(t *testing.T) {
	slot := &Slot{}
	boom := errors.New("connection reset by peer")
	slot.Install(newHandle("s1", &fakeConn{writeErr: boom}, 0))
	d := NewDispatcher(slot, nil)

	err := d.Send("hello")
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, "write to agent: connection reset by peer", UserMessage(err))
}

func TestUserMessage_Nil(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
}
