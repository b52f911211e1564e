package lametric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Sound categories understood by the device.
const (
	SoundCategoryAlarms        = "alarms"
	SoundCategoryNotifications = "notifications"
)

// emptySuccess is relayed when a notification produced no success payload.
var emptySuccess = json.RawMessage(`{}`)

// NotificationText is a list of frame texts. It decodes from either a
// single JSON string or an array; null entries are kept as nil so the
// translator can drop them.
type NotificationText []*string

// UnmarshalJSON accepts "text", ["a", null, "b"] or null.
func (t *NotificationText) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*t = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []*string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("notification text: %w", err)
		}
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return fmt.Errorf("notification text: %w", err)
	}
	*t = NotificationText{&s}
	return nil
}

// Texts builds a NotificationText from plain strings.
func Texts(texts ...string) NotificationText {
	out := make(NotificationText, len(texts))
	for i := range texts {
		s := texts[i]
		out[i] = &s
	}
	return out
}

// Passthrough is a request field relayed to the device exactly as
// received, whatever its JSON type. null, false, 0 and "" count as absent.
type Passthrough json.RawMessage

// Pass encodes v as a Passthrough. It panics if v cannot be marshalled.
func Pass(v any) Passthrough {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("lametric: Pass(%v): %v", v, err))
	}
	return data
}

// UnmarshalJSON keeps a copy of the raw value.
func (p *Passthrough) UnmarshalJSON(data []byte) error {
	*p = append((*p)[:0], data...)
	return nil
}

// MarshalJSON writes the raw value, or null when empty.
func (p Passthrough) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

// IsZero reports whether p is absent or a falsy JSON value.
func (p Passthrough) IsZero() bool {
	switch v := string(bytes.TrimSpace(p)); v {
	case "", "null", "false", `""`:
		return true
	default:
		var f float64
		return json.Unmarshal([]byte(v), &f) == nil && f == 0
	}
}

// orNil drops falsy values so omitempty leaves them out.
func (p Passthrough) orNil() Passthrough {
	if p.IsZero() {
		return nil
	}
	return p
}

// NotificationRequest is an inbound "send notification" message.
type NotificationRequest struct {
	Priority string           `json:"priority,omitempty"`
	IconType string           `json:"iconType,omitempty"`
	LifeTime Passthrough      `json:"lifeTime,omitempty"`
	Text     NotificationText `json:"text"`
	Icon     Passthrough      `json:"icon,omitempty"`
	Sound    string           `json:"sound,omitempty"`
	Cycles   Passthrough      `json:"cycles,omitempty"`
}

// NotificationPayload is the body of POST device/notifications.
type NotificationPayload struct {
	Priority string            `json:"priority,omitempty"`
	IconType string            `json:"icon_type,omitempty"`
	Lifetime Passthrough       `json:"lifetime,omitempty"`
	Model    NotificationModel `json:"model"`
}

// NotificationModel is the displayed content of a notification.
type NotificationModel struct {
	Frames []Frame     `json:"frames"`
	Sound  *Sound      `json:"sound,omitempty"`
	Cycles Passthrough `json:"cycles,omitempty"`
}

// Frame is one screen of notification content.
type Frame struct {
	Text string      `json:"text"`
	Icon Passthrough `json:"icon,omitempty"`
}

// Sound selects a built-in notification or alarm sound.
type Sound struct {
	Category string `json:"category"`
	ID       string `json:"id"`
	Repeat   int    `json:"repeat"`
}

// Translate converts a notification request into the device payload.
//
// One frame is produced per text entry; nil and empty entries are skipped.
// The icon is applied to every frame.
func Translate(req NotificationRequest) NotificationPayload {
	payload := NotificationPayload{
		Priority: req.Priority,
		IconType: req.IconType,
		Lifetime: req.LifeTime.orNil(),
		Model: NotificationModel{
			Frames: make([]Frame, 0, len(req.Text)),
			Cycles: req.Cycles.orNil(),
		},
	}
	icon := req.Icon.orNil()

	for _, text := range req.Text {
		if text == nil || *text == "" {
			continue
		}
		payload.Model.Frames = append(payload.Model.Frames, Frame{Text: *text, Icon: icon})
	}

	if req.Sound != "" {
		category := SoundCategoryNotifications
		if strings.Contains(req.Sound, "alarm") {
			category = SoundCategoryAlarms
		}
		payload.Model.Sound = &Sound{Category: category, ID: req.Sound, Repeat: 1}
	}

	return payload
}

// Caller is the device call primitive. Satisfied by *Client.
type Caller interface {
	Call(ctx context.Context, endpoint, method string, payload any) (json.RawMessage, error)
}

// Notifier sends notifications to the device.
type Notifier struct {
	client Caller

	mu     sync.RWMutex
	logger Logger
}

// NewNotifier creates a notifier. logger may be nil.
func NewNotifier(client Caller, logger Logger) *Notifier {
	return &Notifier{client: client, logger: logger}
}

// SetLogger replaces the logger. nil silences the notifier.
func (n *Notifier) SetLogger(logger Logger) {
	n.mu.Lock()
	n.logger = logger
	n.mu.Unlock()
}

func (n *Notifier) currentLogger() Logger {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.logger
}

// Send posts the translated request and returns the device's success
// object. Failures and responses without a success field yield {}.
func (n *Notifier) Send(ctx context.Context, req NotificationRequest) json.RawMessage {
	logger := n.currentLogger()

	resp, err := n.client.Call(ctx, EndpointNotifications, http.MethodPost, Translate(req))
	if err != nil {
		if logger != nil && !isDisabled(err) {
			logger.Error("notification failed", "error", err)
		}
		return emptySuccess
	}

	var envelope struct {
		Success json.RawMessage `json:"success"`
	}
	if err := json.Unmarshal(resp, &envelope); err != nil {
		if logger != nil {
			logger.Warn("notification response not decodable", "error", err)
		}
		return emptySuccess
	}
	if len(envelope.Success) == 0 || bytes.Equal(envelope.Success, []byte("null")) {
		return emptySuccess
	}
	return envelope.Success
}
