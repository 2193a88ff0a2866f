package devtools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_EncodeWireForm(t *testing.T) {
	b, err := LogMessage("Increment", `{"count":1}`).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"log","actionLabel":"Increment","state":"{\"count\":1}"}`, string(b))

	b, err = Message{Kind: KindReady}.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"ready"}`, string(b))
}

func TestDecode(t *testing.T) {
	m, err := Decode([]byte(`{"kind":"time_travel","state":"{}"}`))
	require.NoError(t, err)
	assert.Equal(t, KindTimeTravel, m.Kind)
	assert.Equal(t, "{}", m.State)

	_, err = Decode([]byte(`{"kind":"time_travel"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"kind":"teleport"}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFanout_SendsToAllAndJoinsErrors(t *testing.T) {
	a, c := &Recorder{}, &Recorder{}
	broken := TransportFunc(func(context.Context, Message) error { return errors.New("down") })

	err := Fanout{a, broken, nil, c}.Send(context.Background(), LogMessage("A", "1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, c.Len())
}
