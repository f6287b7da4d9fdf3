package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/coinsync/internal/domain/types"
)

func sampleMultiplier() types.Multiplier {
	return types.Multiplier{
		ID: 7, Scope: types.ScopeGlobal, NodeID: "lobby", Amount: 2, DurationMinutes: 30,
		EnablerID: "u-1", EnablerName: "alice", State: types.StateEnabled, EndTime: 1_700_000_000_000,
		Extra: map[string]string{"reason": "event"},
	}
}

func TestJSONCodec_UserUpdateKeys(t *testing.T) {
	env := Envelope{MessageID: "m-1", Payload: UserUpdate{UserID: "u-42", Balance: 150}}
	raw, err := JSONCodec{}.Encode(env)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "m-1", generic["messageid"])
	assert.Equal(t, "USER_UPDATE", generic["type"])
	assert.Equal(t, "u-42", generic["uuid"])
	assert.Equal(t, 150.0, generic["coins"])
	assert.NotContains(t, generic, "multiplier")
}

func TestCodecs_PreservePayloads(t *testing.T) {
	m := sampleMultiplier()
	exec := types.NewExecutorDef("vip", "VIP kit", 250, []string{"give %player% diamond 1", "say hi"})

	envs := []Envelope{
		{MessageID: "a", Payload: UserUpdate{UserID: "u", Balance: 0}},
		{MessageID: "b", Payload: MultiplierUpdate{Multiplier: &m, Enable: true}},
		{MessageID: "c", Payload: MultiplierUpdate{}},
		{MessageID: "d", Payload: MultiplierDisable{Multiplier: m}},
		{MessageID: "e", Payload: Executors{Executor: &exec}},
		{MessageID: "f", Payload: Executors{}},
	}

	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			for _, env := range envs {
				raw, err := codec.Encode(env)
				require.NoError(t, err)
				got, err := codec.Decode(raw)
				require.NoError(t, err)
				assert.Equal(t, env.MessageID, got.MessageID)
				assert.Equal(t, env.Type(), got.Type())
				assert.Equal(t, IsPull(env.Payload), IsPull(got.Payload))
			}
		})
	}
}

func TestJSONCodec_ExecutorCommandsKeepOrder(t *testing.T) {
	exec := types.NewExecutorDef("kit", "Kit", 10, []string{"one", "two", "three"})
	raw, err := JSONCodec{}.Encode(New(Executors{Executor: &exec}))
	require.NoError(t, err)

	got, err := JSONCodec{}.Decode(raw)
	require.NoError(t, err)
	p, ok := got.Payload.(Executors)
	require.True(t, ok)
	require.NotNil(t, p.Executor)
	assert.Equal(t, []string{"one", "two", "three"}, p.Executor.Commands())
	assert.Equal(t, "Kit", p.Executor.DisplayName())
	assert.Equal(t, 10.0, p.Executor.Cost())
}

func TestJSONCodec_UnknownType(t *testing.T) {
	_, err := JSONCodec{}.Decode([]byte(`{"messageid":"x","type":"SOMETHING_NEW"}`))
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestJSONCodec_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":          `{{`,
		"no messageid":      `{"type":"USER_UPDATE","uuid":"u","coins":1}`,
		"user without uuid": `{"messageid":"x","type":"USER_UPDATE","coins":1}`,
		"bad state":         `{"messageid":"x","type":"MULTIPLIER_DISABLE","multiplier":{"id":1,"scope":"GLOBAL","node":"a","amount":2,"minutes":5,"state":"PAUSED","end_time":0}}`,
		"zero amount":       `{"messageid":"x","type":"MULTIPLIER_UPDATE","multiplier":{"id":1,"scope":"GLOBAL","node":"a","amount":0,"minutes":5,"state":"QUEUED","end_time":0}}`,
		"disable w/o body":  `{"messageid":"x","type":"MULTIPLIER_DISABLE"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := JSONCodec{}.Decode([]byte(raw))
			assert.True(t, errors.Is(err, ErrMalformed), "err=%v", err)
		})
	}
}

func TestEncodeMultiplier_RoundTrip(t *testing.T) {
	m := sampleMultiplier()
	raw, err := EncodeMultiplier(m)
	require.NoError(t, err)
	got, err := DecodeMultiplier(raw)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestCodecByName(t *testing.T) {
	c, err := CodecByName("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	c, err = CodecByName("MsgPack")
	require.NoError(t, err)
	assert.Equal(t, "msgpack", c.Name())

	_, err = CodecByName("xml")
	assert.Error(t, err)
}

func TestNew_AssignsMessageID(t *testing.T) {
	a := New(UserUpdate{UserID: "u", Balance: 1})
	b := New(UserUpdate{UserID: "u", Balance: 1})
	assert.NotEmpty(t, a.MessageID)
	assert.NotEqual(t, a.MessageID, b.MessageID)
}
