package relay

import (
	"context"
	"encoding/json"

	"pairchat/internal/domain/message"
	"pairchat/internal/domain/room"
	"pairchat/internal/redis"
	"pairchat/internal/services"
	"pairchat/internal/transport/httpdto"
	pairchat_errors "pairchat/pkg/errors"
	"pairchat/pkg/logger"

	"github.com/google/uuid"
)

// Relay dispatches inbound events against the room registry and message
// store, and fans results out through the hub. Persistence happens before
// broadcast within a channel; errors go back to the originating connection
// only.
type Relay struct {
	hub      *Hub
	rooms    *services.RoomService
	messages *services.MessageService
	limiter  *redis.RateLimiter
	log      *logger.Logger
}

func NewRelay(hub *Hub, rooms *services.RoomService, messages *services.MessageService, limiter *redis.RateLimiter, log *logger.Logger) *Relay {
	return &Relay{
		hub:      hub,
		rooms:    rooms,
		messages: messages,
		limiter:  limiter,
		log:      log,
	}
}

// Hub exposes the presence registry, mainly for the connection handler.
func (r *Relay) Hub() *Hub {
	return r.hub
}

// Dispatch routes one inbound frame.
func (r *Relay) Dispatch(ctx context.Context, c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.sendError(c, pairchat_errors.ErrValidation)
		return
	}

	switch env.Event {
	case EventJoinChannel:
		r.handleJoin(ctx, c, env.Data)
	case EventLeaveChannel:
		r.handleLeave(ctx, c, env.Data)
	case EventChatMessage:
		r.handleChat(ctx, c, env.Data)
	case EventTyping:
		r.handleTyping(c, env.Data)
	case EventEditMessage:
		r.handleEdit(ctx, c, env.Data)
	case EventDeleteMessage:
		r.handleDelete(ctx, c, env.Data)
	case EventSignal:
		r.handleSignal(c, env.Data)
	default:
		r.sendError(c, pairchat_errors.ErrValidation)
	}
}

// Disconnect cleans up the client's presence and notifies the rooms it was
// in. An in-progress call in any of those rooms ends with a forced
// "peer disconnected".
func (r *Relay) Disconnect(_ context.Context, c *Client) {
	left := r.hub.Unregister(c)
	for _, roomID := range left {
		r.notifyDeparture(roomID, c.UserID)
		r.forceCallEnd(roomID, c.UserID)
	}
	c.Close()
}

func (r *Relay) handleJoin(ctx context.Context, c *Client, data json.RawMessage) {
	var p joinChannelPayload
	roomID, ok := r.parseRoomID(c, data, &p, func() string { return p.RoomID })
	if !ok {
		return
	}

	rm, err := r.rooms.GetRoomByRoomID(ctx, roomID)
	if err != nil {
		r.sendError(c, err)
		return
	}
	if rm.Status != room.StatusConnected || !rm.HasMember(c.UserID) {
		r.sendError(c, pairchat_errors.ErrForbidden)
		return
	}

	r.hub.JoinRoom(roomID, c)

	participants := r.participantStrings(roomID)
	update := presencePayload{
		RoomID:       roomID.String(),
		UserID:       c.UserID.String(),
		Action:       "joined",
		Participants: participants,
	}
	for _, member := range r.hub.Members(roomID) {
		member.SendEvent(EventPresenceUpdate, update)
	}
}

func (r *Relay) handleLeave(_ context.Context, c *Client, data json.RawMessage) {
	var p leaveChannelPayload
	roomID, ok := r.parseRoomID(c, data, &p, func() string { return p.RoomID })
	if !ok {
		return
	}

	r.hub.LeaveRoom(roomID, c)
	r.notifyDeparture(roomID, c.UserID)
	r.forceCallEnd(roomID, c.UserID)
}

func (r *Relay) handleChat(ctx context.Context, c *Client, data json.RawMessage) {
	var p chatMessagePayload
	roomID, ok := r.parseRoomID(c, data, &p, func() string { return p.RoomID })
	if !ok {
		return
	}
	if !r.memberOf(roomID, c) {
		r.sendError(c, pairchat_errors.ErrForbidden)
		return
	}
	if !r.allowMessage(ctx, c) {
		return
	}

	in := services.SendInput{
		RoomID:   roomID,
		SenderID: c.UserID,
		Body:     p.Body,
		Kind:     message.Kind(p.Kind),
	}
	if p.ReplyTo != nil {
		replyID, err := uuid.Parse(p.ReplyTo.MessageID)
		if err != nil {
			r.sendError(c, pairchat_errors.ErrValidation)
			return
		}
		ref := message.ReplyRef{MessageID: replyID, Snippet: p.ReplyTo.Snippet}
		if p.ReplyTo.SenderID != "" {
			if senderID, err := uuid.Parse(p.ReplyTo.SenderID); err == nil {
				ref.SenderID = senderID
			}
		}
		in.ReplyTo = &ref
	}

	m, err := r.messages.Send(ctx, in)
	if err != nil {
		r.sendError(c, err)
		return
	}

	// Persisted; now fan out to everyone including the sender, so the
	// sender learns the server-assigned id.
	r.broadcast(roomID, EventChatMessage, httpdto.FromMessage(m))
}

func (r *Relay) handleTyping(c *Client, data json.RawMessage) {
	var p typingPayload
	roomID, ok := r.parseRoomID(c, data, &p, func() string { return p.RoomID })
	if !ok {
		return
	}
	if !r.memberOf(roomID, c) {
		return
	}

	out := typingOut{
		RoomID:   roomID.String(),
		UserID:   c.UserID.String(),
		IsTyping: p.IsTyping,
	}
	for _, member := range r.hub.Members(roomID) {
		if member.UserID == c.UserID {
			continue
		}
		member.SendEvent(EventTyping, out)
	}
}

func (r *Relay) handleEdit(ctx context.Context, c *Client, data json.RawMessage) {
	var p editMessagePayload
	roomID, ok := r.parseRoomID(c, data, &p, func() string { return p.RoomID })
	if !ok {
		return
	}
	if !r.memberOf(roomID, c) {
		r.sendError(c, pairchat_errors.ErrForbidden)
		return
	}
	messageID, err := uuid.Parse(p.MessageID)
	if err != nil {
		r.sendError(c, pairchat_errors.ErrValidation)
		return
	}

	m, err := r.messages.Edit(ctx, messageID, c.UserID, p.Body)
	if err != nil {
		r.sendError(c, err)
		return
	}
	// Fan out to the message's own room; the claimed room id in the payload
	// does not pick the audience.
	r.broadcast(m.RoomID, EventEditMessage, httpdto.FromMessage(m))
}

func (r *Relay) handleDelete(ctx context.Context, c *Client, data json.RawMessage) {
	var p deleteMessagePayload
	roomID, ok := r.parseRoomID(c, data, &p, func() string { return p.RoomID })
	if !ok {
		return
	}
	if !r.memberOf(roomID, c) {
		r.sendError(c, pairchat_errors.ErrForbidden)
		return
	}
	messageID, err := uuid.Parse(p.MessageID)
	if err != nil {
		r.sendError(c, pairchat_errors.ErrValidation)
		return
	}

	m, err := r.messages.Delete(ctx, messageID, c.UserID)
	if err != nil {
		r.sendError(c, err)
		return
	}
	r.broadcast(m.RoomID, EventDeleteMessage, httpdto.FromMessage(m))
}

func (r *Relay) handleSignal(c *Client, data json.RawMessage) {
	var p signalPayload
	roomID, ok := r.parseRoomID(c, data, &p, func() string { return p.RoomID })
	if !ok {
		return
	}
	recipientID, err := uuid.Parse(p.RecipientID)
	if err != nil {
		r.sendError(c, pairchat_errors.ErrValidation)
		return
	}
	if !r.memberOf(roomID, c) {
		r.sendError(c, pairchat_errors.ErrForbidden)
		return
	}

	switch p.SignalType {
	case SignalOffer, SignalAnswer, SignalICECandidate,
		SignalCallRequest, SignalCallAccept, SignalCallReject, SignalCallEnd:
	default:
		r.sendError(c, pairchat_errors.ErrValidation)
		return
	}

	// Call bookkeeping so a later disconnect can force call-end.
	switch p.SignalType {
	case SignalCallRequest:
		r.hub.SetCall(roomID, c.UserID)
	case SignalCallReject, SignalCallEnd:
		r.hub.ClearCall(roomID)
	}

	recipient := r.hub.ClientFor(recipientID)
	if recipient == nil {
		c.SendEvent(EventSignal, signalOut{
			RoomID:     roomID.String(),
			SenderID:   c.UserID.String(),
			SignalType: p.SignalType,
			Reason:     "recipient not reachable",
		})
		return
	}

	recipient.SendEvent(EventSignal, signalOut{
		RoomID:     roomID.String(),
		SenderID:   c.UserID.String(),
		SignalType: p.SignalType,
		Payload:    p.Payload,
	})
}

func (r *Relay) broadcast(roomID uuid.UUID, event string, data interface{}) {
	for _, member := range r.hub.Members(roomID) {
		member.SendEvent(event, data)
	}
}

func (r *Relay) notifyDeparture(roomID uuid.UUID, userID uuid.UUID) {
	update := presencePayload{
		RoomID:       roomID.String(),
		UserID:       userID.String(),
		Action:       "left",
		Participants: r.participantStrings(roomID),
	}
	for _, member := range r.hub.Members(roomID) {
		member.SendEvent(EventPresenceUpdate, update)
	}
}

// forceCallEnd ends any in-progress call in the room when a participant
// leaves or drops.
func (r *Relay) forceCallEnd(roomID uuid.UUID, departedID uuid.UUID) {
	if _, active := r.hub.ActiveCall(roomID); !active {
		return
	}
	r.hub.ClearCall(roomID)
	out := signalOut{
		RoomID:     roomID.String(),
		SenderID:   departedID.String(),
		SignalType: SignalCallEnd,
		Reason:     "peer disconnected",
	}
	for _, member := range r.hub.Members(roomID) {
		member.SendEvent(EventSignal, out)
	}
}

func (r *Relay) memberOf(roomID uuid.UUID, c *Client) bool {
	for _, member := range r.hub.Members(roomID) {
		if member == c {
			return true
		}
	}
	return false
}

func (r *Relay) allowMessage(ctx context.Context, c *Client) bool {
	if r.limiter == nil {
		return true
	}
	result, err := r.limiter.AllowMessage(ctx, c.UserID.String())
	if err != nil {
		// Redis being down never blocks chat.
		r.log.WarnfCtx(ctx, "rate limit check failed: %v", err)
		return true
	}
	if !result.Allowed {
		c.SendEvent(EventError, errorPayload{Code: "RATE_LIMITED", Message: "too many messages"})
		return false
	}
	return true
}

func (r *Relay) participantStrings(roomID uuid.UUID) []string {
	ids := r.hub.MemberIDs(roomID)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func (r *Relay) parseRoomID(c *Client, data json.RawMessage, payload interface{}, roomIDField func() string) (uuid.UUID, bool) {
	if err := json.Unmarshal(data, payload); err != nil {
		r.sendError(c, pairchat_errors.ErrValidation)
		return uuid.Nil, false
	}
	roomID, err := uuid.Parse(roomIDField())
	if err != nil {
		r.sendError(c, pairchat_errors.ErrValidation)
		return uuid.Nil, false
	}
	return roomID, true
}

func (r *Relay) sendError(c *Client, err error) {
	c.SendEvent(EventError, errorPayload{
		Code:    httpdto.ErrorCode(err),
		Message: httpdto.ErrorMessage(err),
	})
}
