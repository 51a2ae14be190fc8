package ws

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/topology"
)

type stubEngine struct {
	states    []api.ClientState
	usernames []*string
	messages  [][]byte
	addresses [][]string
	responses map[uuid.UUID]api.RoleData
	broken    []api.ClientID
	removed   []api.ClientID
}

func newStubEngine() *stubEngine {
	return &stubEngine{responses: make(map[uuid.UUID]api.RoleData)}
}

func (e *stubEngine) AddClient(api.ClientID, topology.ClientHandle) {}

func (e *stubEngine) SetClientState(_ context.Context, _ api.ClientID, state api.ClientState, username *string) {
	e.states = append(e.states, state)
	e.usernames = append(e.usernames, username)
}

func (e *stubEngine) RemoveClient(_ context.Context, id api.ClientID) {
	e.removed = append(e.removed, id)
}

func (e *stubEngine) SetBrokenClient(_ context.Context, id api.ClientID) {
	e.broken = append(e.broken, id)
}

func (e *stubEngine) SendMessage(_ context.Context, addresses []string, content []byte) {
	e.addresses = append(e.addresses, addresses)
	e.messages = append(e.messages, content)
}

func (e *stubEngine) RoleDataResponse(requestID uuid.UUID, data api.RoleData) {
	e.responses[requestID] = data
}

func newTestSession(engine Engine) *Session {
	return NewSession("_c1", nil, engine)
}

func TestDispatchSetClientState(t *testing.T) {
	engine := newStubEngine()
	s := newTestSession(engine)

	s.dispatch(context.Background(), []byte(`{
		"type": "set-client-state",
		"state": {"browser": {"projectId": "p1", "roleId": "r1"}},
		"username": "brian"
	}`))

	require.Len(t, engine.states, 1)
	require.NotNil(t, engine.states[0].Browser)
	assert.Equal(t, api.ProjectID("p1"), engine.states[0].Browser.ProjectID)
	require.NotNil(t, engine.usernames[0])
	assert.Equal(t, "brian", *engine.usernames[0])
}

func TestDispatchMessageForwardsWholeFrame(t *testing.T) {
	engine := newStubEngine()
	s := newTestSession(engine)

	frame := []byte(`{"type":"message","dstId":"role@proj@brian","msgType":"serve","content":{"x":1}}`)
	s.dispatch(context.Background(), frame)

	require.Len(t, engine.messages, 1)
	assert.Equal(t, [][]string{{"role@proj@brian"}}, engine.addresses)
	assert.Equal(t, frame, engine.messages[0])
}

func TestDispatchMessageAddressList(t *testing.T) {
	engine := newStubEngine()
	s := newTestSession(engine)

	s.dispatch(context.Background(), []byte(`{"type":"message","dstId":["a@brian","b@brian#pyblox"]}`))
	require.Len(t, engine.addresses, 1)
	assert.Equal(t, []string{"a@brian", "b@brian#pyblox"}, engine.addresses[0])
}

func TestDispatchRoleDataResponse(t *testing.T) {
	engine := newStubEngine()
	s := newTestSession(engine)
	id := uuid.New()

	s.dispatch(context.Background(), []byte(`{
		"type": "role-data-response",
		"id": "`+id.String()+`",
		"data": {"name": "left", "code": "<code/>", "media": ""}
	}`))

	assert.Equal(t, "left", engine.responses[id].Name)
	assert.Equal(t, "<code/>", engine.responses[id].Code)
}

func TestDispatchTolerantOfGarbage(t *testing.T) {
	engine := newStubEngine()
	s := newTestSession(engine)

	s.dispatch(context.Background(), []byte(`not json`))
	s.dispatch(context.Background(), []byte(`{"type":"message"}`))
	s.dispatch(context.Background(), []byte(`{"type":"set-client-state","state":{"browser":{},"external":{}}}`))
	s.dispatch(context.Background(), []byte(`{"type":"mystery"}`))

	assert.Empty(t, engine.states)
	assert.Empty(t, engine.messages)
}

func TestDispatchPingRepliesPong(t *testing.T) {
	engine := newStubEngine()
	s := newTestSession(engine)

	s.dispatch(context.Background(), []byte(`{"type":"ping"}`))
	select {
	case frame := <-s.out:
		assert.JSONEq(t, `{"type":"pong"}`, string(frame))
	default:
		t.Fatal("no pong queued")
	}
}

func TestSendDropsWhenQueueFull(t *testing.T) {
	s := newTestSession(newStubEngine())

	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, s.Send([]byte("frame")))
	}
	assert.ErrorIs(t, s.Send([]byte("frame")), ErrSendQueueFull)
}
