package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"pairchat/config"
	"pairchat/internal/domain/room"
	"pairchat/internal/repository"
	"pairchat/internal/services"
	"pairchat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayFixture struct {
	relay   *Relay
	hub     *Hub
	rooms   *services.RoomService
	roomID  uuid.UUID
	creator *Client
	joiner  *Client
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:    "test-secret",
		CodeTTL:      30 * 24 * time.Hour,
		RetentionCap: 30,
		ImageTTL:     24 * time.Hour,
	}
	log := logger.NewNop()
	roomRepo := repository.NewMemoryRoomRepository()
	msgRepo := repository.NewMemoryMessageRepository()

	roomSvc := services.NewRoomService(roomRepo, cfg, log)
	msgSvc := services.NewMessageService(msgRepo, services.NewMemoryFileStore(), cfg, log)

	creatorParty := room.Party{UserID: uuid.New(), Email: "alice@example.com"}
	joinerParty := room.Party{UserID: uuid.New(), Email: "bob@example.com"}

	rm, err := roomSvc.CreateRoom(context.Background(), creatorParty)
	require.NoError(t, err)
	joined, err := roomSvc.JoinRoom(context.Background(), rm.Code, joinerParty)
	require.NoError(t, err)
	require.True(t, joined.RoomID.Valid)

	hub := NewHub()
	r := NewRelay(hub, roomSvc, msgSvc, nil, log)

	creator := NewClient(nil, services.Identity{UserID: creatorParty.UserID, Email: creatorParty.Email})
	joiner := NewClient(nil, services.Identity{UserID: joinerParty.UserID, Email: joinerParty.Email})
	hub.Register(creator)
	hub.Register(joiner)

	return &relayFixture{
		relay:   r,
		hub:     hub,
		rooms:   roomSvc,
		roomID:  joined.RoomID.UUID,
		creator: creator,
		joiner:  joiner,
	}
}

func frame(t *testing.T, event string, data interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	raw, err := json.Marshal(Envelope{Event: event, Data: payload})
	require.NoError(t, err)
	return raw
}

// nextEvent pops one queued frame from the client, failing if none is
// pending.
func nextEvent(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	default:
		t.Fatal("no event queued")
		return Envelope{}
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func joinBoth(t *testing.T, f *relayFixture) {
	t.Helper()
	payload := map[string]string{"room_id": f.roomID.String()}
	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventJoinChannel, payload))
	f.relay.Dispatch(context.Background(), f.joiner, frame(t, EventJoinChannel, payload))
	drain(f.creator)
	drain(f.joiner)
}

func TestJoinChannelPresence(t *testing.T) {
	f := newRelayFixture(t)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventJoinChannel, map[string]string{"room_id": f.roomID.String()}))

	env := nextEvent(t, f.creator)
	assert.Equal(t, EventPresenceUpdate, env.Event)

	var p presencePayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "joined", p.Action)
	assert.Equal(t, []string{f.creator.UserID.String()}, p.Participants)
}

func TestJoinChannelForbiddenForOutsider(t *testing.T) {
	f := newRelayFixture(t)
	outsider := NewClient(nil, services.Identity{UserID: uuid.New()})
	f.hub.Register(outsider)

	f.relay.Dispatch(context.Background(), outsider, frame(t, EventJoinChannel, map[string]string{"room_id": f.roomID.String()}))

	env := nextEvent(t, outsider)
	assert.Equal(t, EventError, env.Event)

	var p errorPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "FORBIDDEN", p.Code)
	assert.Empty(t, f.hub.Members(f.roomID))
}

func TestChatMessagePersistsThenBroadcasts(t *testing.T) {
	f := newRelayFixture(t)
	joinBoth(t, f)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventChatMessage, map[string]string{
		"room_id": f.roomID.String(),
		"body":    "hello there",
	}))

	// Both members receive the persisted message, sender included.
	for _, c := range []*Client{f.creator, f.joiner} {
		env := nextEvent(t, c)
		assert.Equal(t, EventChatMessage, env.Event)

		var view map[string]interface{}
		require.NoError(t, json.Unmarshal(env.Data, &view))
		assert.Equal(t, "hello there", view["body"])
		assert.NotEmpty(t, view["id"])
		assert.Equal(t, f.creator.UserID.String(), view["sender_id"])
	}
}

func TestTypingExcludesSender(t *testing.T) {
	f := newRelayFixture(t)
	joinBoth(t, f)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventTyping, map[string]interface{}{
		"room_id":   f.roomID.String(),
		"is_typing": true,
	}))

	env := nextEvent(t, f.joiner)
	assert.Equal(t, EventTyping, env.Event)

	select {
	case <-f.creator.send:
		t.Fatal("sender should not receive its own typing event")
	default:
	}
}

func TestSignalRoutedPointToPoint(t *testing.T) {
	f := newRelayFixture(t)
	joinBoth(t, f)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventSignal, map[string]interface{}{
		"room_id":      f.roomID.String(),
		"recipient_id": f.joiner.UserID.String(),
		"signal_type":  SignalOffer,
		"payload":      json.RawMessage(`{"sdp":"x"}`),
	}))

	env := nextEvent(t, f.joiner)
	assert.Equal(t, EventSignal, env.Event)

	var out signalOut
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, SignalOffer, out.SignalType)
	assert.Equal(t, f.creator.UserID.String(), out.SenderID)
	assert.Empty(t, out.Reason)
}

func TestSignalOfflineRecipientNotice(t *testing.T) {
	f := newRelayFixture(t)
	joinBoth(t, f)
	f.hub.Unregister(f.joiner)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventSignal, map[string]interface{}{
		"room_id":      f.roomID.String(),
		"recipient_id": f.joiner.UserID.String(),
		"signal_type":  SignalCallRequest,
	}))

	env := nextEvent(t, f.creator)
	assert.Equal(t, EventSignal, env.Event)

	var out signalOut
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "recipient not reachable", out.Reason)
}

func TestDisconnectForcesCallEnd(t *testing.T) {
	f := newRelayFixture(t)
	joinBoth(t, f)

	// Joiner starts a call, then drops.
	f.relay.Dispatch(context.Background(), f.joiner, frame(t, EventSignal, map[string]interface{}{
		"room_id":      f.roomID.String(),
		"recipient_id": f.creator.UserID.String(),
		"signal_type":  SignalCallRequest,
	}))
	drain(f.creator)

	f.relay.Disconnect(context.Background(), f.joiner)

	sawCallEnd := false
	sawDeparture := false
	for {
		select {
		case raw := <-f.creator.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			switch env.Event {
			case EventSignal:
				var out signalOut
				require.NoError(t, json.Unmarshal(env.Data, &out))
				if out.SignalType == SignalCallEnd {
					assert.Equal(t, "peer disconnected", out.Reason)
					sawCallEnd = true
				}
			case EventPresenceUpdate:
				var p presencePayload
				require.NoError(t, json.Unmarshal(env.Data, &p))
				if p.Action == "left" {
					sawDeparture = true
				}
			}
		default:
			assert.True(t, sawCallEnd, "expected forced call-end")
			assert.True(t, sawDeparture, "expected departure notice")
			_, active := f.hub.ActiveCall(f.roomID)
			assert.False(t, active)
			return
		}
	}
}

func TestEditMessageBroadcast(t *testing.T) {
	f := newRelayFixture(t)
	joinBoth(t, f)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventChatMessage, map[string]string{
		"room_id": f.roomID.String(),
		"body":    "first",
	}))

	env := nextEvent(t, f.creator)
	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	messageID := view["id"].(string)
	drain(f.joiner)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventEditMessage, map[string]string{
		"room_id":    f.roomID.String(),
		"message_id": messageID,
		"body":       "second",
	}))

	env = nextEvent(t, f.joiner)
	assert.Equal(t, EventEditMessage, env.Event)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "second", view["body"])
	assert.Equal(t, true, view["edited"])
}

func TestEditMessageWrongOwnerErrors(t *testing.T) {
	f := newRelayFixture(t)
	joinBoth(t, f)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventChatMessage, map[string]string{
		"room_id": f.roomID.String(),
		"body":    "mine",
	}))

	env := nextEvent(t, f.creator)
	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	messageID := view["id"].(string)
	drain(f.joiner)

	f.relay.Dispatch(context.Background(), f.joiner, frame(t, EventEditMessage, map[string]string{
		"room_id":    f.roomID.String(),
		"message_id": messageID,
		"body":       "not mine",
	}))

	env = nextEvent(t, f.joiner)
	assert.Equal(t, EventError, env.Event)

	var p errorPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "FORBIDDEN", p.Code)

	// The error stays on the offending connection.
	select {
	case <-f.creator.send:
		t.Fatal("errors must not be broadcast")
	default:
	}
}

// sendChat pushes one chat message from c and returns its server-assigned id,
// draining the fan-out from both fixture clients.
func sendChat(t *testing.T, f *relayFixture, c *Client, body string) string {
	t.Helper()
	f.relay.Dispatch(context.Background(), c, frame(t, EventChatMessage, map[string]string{
		"room_id": f.roomID.String(),
		"body":    body,
	}))
	env := nextEvent(t, c)
	require.Equal(t, EventChatMessage, env.Event)
	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	drain(f.creator)
	drain(f.joiner)
	return view["id"].(string)
}

// secondRoom pairs another room owned by the fixture creator and returns its
// realtime id plus a connected peer client already present in its channel.
func secondRoom(t *testing.T, f *relayFixture) (uuid.UUID, *Client) {
	t.Helper()
	owner := room.Party{UserID: f.creator.UserID, Email: f.creator.Identity.Email}
	peer := room.Party{UserID: uuid.New(), Email: "dave@example.com"}

	rm, err := f.rooms.CreateRoom(context.Background(), owner)
	require.NoError(t, err)
	joined, err := f.rooms.JoinRoom(context.Background(), rm.Code, peer)
	require.NoError(t, err)
	require.True(t, joined.RoomID.Valid)

	bystander := NewClient(nil, services.Identity{UserID: peer.UserID, Email: peer.Email})
	f.hub.Register(bystander)
	f.relay.Dispatch(context.Background(), bystander, frame(t, EventJoinChannel, map[string]string{
		"room_id": joined.RoomID.UUID.String(),
	}))
	drain(bystander)
	return joined.RoomID.UUID, bystander
}

func TestEditRequiresChannelPresence(t *testing.T) {
	f := newRelayFixture(t)
	joinBoth(t, f)
	messageID := sendChat(t, f, f.creator, "original")
	otherRoomID, bystander := secondRoom(t, f)

	// The editor owns the message but never joined the other channel.
	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventEditMessage, map[string]string{
		"room_id":    otherRoomID.String(),
		"message_id": messageID,
		"body":       "smuggled",
	}))

	env := nextEvent(t, f.creator)
	assert.Equal(t, EventError, env.Event)

	var p errorPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "FORBIDDEN", p.Code)

	select {
	case <-bystander.send:
		t.Fatal("edit event leaked into a channel the message does not belong to")
	default:
	}
}

func TestEditBroadcastConfinedToMessageRoom(t *testing.T) {
	f := newRelayFixture(t)
	joinBoth(t, f)
	messageID := sendChat(t, f, f.creator, "original")
	otherRoomID, bystander := secondRoom(t, f)

	// The editor is present in both channels; the claimed room id still
	// must not redirect the fan-out.
	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventJoinChannel, map[string]string{
		"room_id": otherRoomID.String(),
	}))
	drain(f.creator)
	drain(bystander)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventEditMessage, map[string]string{
		"room_id":    otherRoomID.String(),
		"message_id": messageID,
		"body":       "smuggled",
	}))

	env := nextEvent(t, f.joiner)
	assert.Equal(t, EventEditMessage, env.Event)
	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "smuggled", view["body"])
	assert.Equal(t, f.roomID.String(), view["room_id"])

	select {
	case <-bystander.send:
		t.Fatal("edit event leaked into an unrelated channel")
	default:
	}
}

func TestDeleteRequiresChannelPresence(t *testing.T) {
	f := newRelayFixture(t)
	joinBoth(t, f)
	messageID := sendChat(t, f, f.creator, "short lived")
	otherRoomID, bystander := secondRoom(t, f)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventDeleteMessage, map[string]string{
		"room_id":    otherRoomID.String(),
		"message_id": messageID,
	}))

	env := nextEvent(t, f.creator)
	assert.Equal(t, EventError, env.Event)

	select {
	case <-bystander.send:
		t.Fatal("delete event leaked into an unrelated channel")
	default:
	}
}

func TestDeleteMessageBroadcastsTombstone(t *testing.T) {
	f := newRelayFixture(t)
	joinBoth(t, f)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventChatMessage, map[string]string{
		"room_id": f.roomID.String(),
		"body":    "to be removed",
	}))

	env := nextEvent(t, f.creator)
	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	messageID := view["id"].(string)
	drain(f.joiner)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventDeleteMessage, map[string]string{
		"room_id":    f.roomID.String(),
		"message_id": messageID,
	}))

	env = nextEvent(t, f.joiner)
	assert.Equal(t, EventDeleteMessage, env.Event)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, true, view["deleted"])
	assert.Equal(t, "This message was deleted", view["body"])
}

func TestDispatchRejectsMalformedFrame(t *testing.T) {
	f := newRelayFixture(t)

	f.relay.Dispatch(context.Background(), f.creator, []byte("not json"))
	env := nextEvent(t, f.creator)
	assert.Equal(t, EventError, env.Event)

	f.relay.Dispatch(context.Background(), f.creator, frame(t, "unknown-event", map[string]string{}))
	env = nextEvent(t, f.creator)
	assert.Equal(t, EventError, env.Event)
}

func TestChatMessageRequiresPresence(t *testing.T) {
	f := newRelayFixture(t)
	// Nobody joined the channel yet.
	f.relay.Dispatch(context.Background(), f.creator, frame(t, EventChatMessage, map[string]string{
		"room_id": f.roomID.String(),
		"body":    fmt.Sprintf("hello %d", 1),
	}))

	env := nextEvent(t, f.creator)
	assert.Equal(t, EventError, env.Event)
}
