package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"whiteboard-backend/internal/model"
)

// Client event types.
const (
	EventAuth          = "auth"
	EventDrawingUpdate = "drawing_update"
	EventCursorUpdate  = "cursor_update"
)

// Server event types. drawing_update and cursor_update reuse the
// client-side names on the way out.
const (
	EventAuthSuccess = "auth_success"
	EventError       = "error"
)

var (
	ErrMalformedEvent   = errors.New("malformed event payload")
	ErrUnknownEventType = errors.New("unknown event type")
)

// InboundEvent is one message received from a client. Exactly the fields
// matching Type are populated.
type InboundEvent struct {
	Type   string
	Token  string                // auth
	Board  *model.WhiteboardData // drawing_update
	Cursor *model.CursorPosition // cursor_update
	User   string                // sender id, server-side bookkeeping only
}

// OutboundEvent is one message sent to clients. The sender's user id never
// appears here; broadcasts carry only the payload.
type OutboundEvent struct {
	Type      string
	Message   string                // auth_success, error
	UserToken string                // auth_success
	Board     *model.WhiteboardData // drawing_update
	Cursor    *model.CursorPosition // cursor_update
}

// inboundEnvelope mirrors the client wire format.
type inboundEnvelope struct {
	Type  string          `json:"type"`
	Token string          `json:"token,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	User  string          `json:"user,omitempty"`
}

// outboundEnvelope mirrors the server wire format.
type outboundEnvelope struct {
	Type      string          `json:"type"`
	Message   string          `json:"message,omitempty"`
	UserToken string          `json:"user_token,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// DecodeInbound parses a client frame. Failures are returned as typed
// errors so the caller can answer with an error event or close the
// connection; nothing here panics on bad input.
func DecodeInbound(b []byte) (InboundEvent, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return InboundEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	ev := InboundEvent{Type: env.Type, User: env.User}
	switch env.Type {
	case EventAuth:
		ev.Token = env.Token
	case EventDrawingUpdate:
		var board model.WhiteboardData
		if err := json.Unmarshal(env.Data, &board); err != nil {
			return InboundEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		ev.Board = &board
	case EventCursorUpdate:
		var cursor model.CursorPosition
		if err := json.Unmarshal(env.Data, &cursor); err != nil {
			return InboundEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		ev.Cursor = &cursor
	default:
		return InboundEvent{}, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
	return ev, nil
}

// EncodeOutbound serializes a server event for the wire.
func EncodeOutbound(ev OutboundEvent) ([]byte, error) {
	env := outboundEnvelope{
		Type:      ev.Type,
		Message:   ev.Message,
		UserToken: ev.UserToken,
	}

	var payload any
	switch ev.Type {
	case EventDrawingUpdate:
		payload = ev.Board
	case EventCursorUpdate:
		payload = ev.Cursor
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}

	return json.Marshal(env)
}

// DecodeOutbound parses a server frame back into an event. Clients of this
// package use it to consume broadcasts; the server itself only encodes.
func DecodeOutbound(b []byte) (OutboundEvent, error) {
	var env outboundEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return OutboundEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	ev := OutboundEvent{Type: env.Type, Message: env.Message, UserToken: env.UserToken}
	switch env.Type {
	case EventAuthSuccess, EventError:
	case EventDrawingUpdate:
		var board model.WhiteboardData
		if err := json.Unmarshal(env.Data, &board); err != nil {
			return OutboundEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		ev.Board = &board
	case EventCursorUpdate:
		var cursor model.CursorPosition
		if err := json.Unmarshal(env.Data, &cursor); err != nil {
			return OutboundEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		ev.Cursor = &cursor
	default:
		return OutboundEvent{}, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
	return ev, nil
}

// translations is the complete inbound→outbound policy for authenticated
// connections: which client events get echoed to the room, and implicitly
// which get rejected. Everything not listed here becomes an error event.
var translations = map[string]string{
	EventDrawingUpdate: EventDrawingUpdate,
	EventCursorUpdate:  EventCursorUpdate,
}

// Translate maps a client event to the event broadcast to the room. The
// sender's user id is stripped from the payload; the registry and session
// cache keep it server-side. Events with no translation (a second auth,
// anything unexpected) are turned into an error event instead of tearing
// the connection down.
func Translate(ev InboundEvent) OutboundEvent {
	out, ok := translations[ev.Type]
	if !ok {
		return OutboundEvent{Type: EventError, Message: "Invalid event type for authorizing"}
	}

	switch out {
	case EventDrawingUpdate:
		return OutboundEvent{Type: out, Board: ev.Board}
	case EventCursorUpdate:
		return OutboundEvent{Type: out, Cursor: ev.Cursor}
	}
	return OutboundEvent{Type: EventError, Message: "Invalid event type for authorizing"}
}
