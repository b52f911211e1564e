package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-lametric/internal/infrastructure/config"
)

// Unit tests that need no broker. Broker-backed tests live in
// integration_test.go behind the "integration" build tag.

// =============================================================================
// Validation Tests
// =============================================================================

func TestPublishValidation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "a/b", []byte("x"), 3, ErrInvalidQoS},
		{"payload too large", "a/b", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"disconnected", "a/b", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{}
	handler := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{"empty topic", "", 1, handler, ErrInvalidTopic},
		{"invalid qos", "a/b", 5, handler, ErrInvalidQoS},
		{"nil handler", "a/b", 1, nil, ErrSubscribeFailed},
		{"disconnected", "a/b", 1, handler, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Subscribe(tt.topic, tt.qos, tt.handler)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0 after failed subscribes", client.SubscriptionCount())
	}
}

func TestUnsubscribeValidation(t *testing.T) {
	client := &Client{}

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Unsubscribe("a/b"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestTrack(t *testing.T) {
	client := &Client{}
	handler := func(string, []byte) error { return nil }

	client.track("a/#", &subscription{qos: 1, handler: handler})
	client.track("b/+", &subscription{qos: 0, handler: handler})
	if !client.HasSubscription("a/#") || client.SubscriptionCount() != 2 {
		t.Fatalf("after track: count = %d", client.SubscriptionCount())
	}
	if client.HasSubscription("a/b") {
		t.Error("HasSubscription() matched a wildcard expansion")
	}

	client.track("a/#", nil)
	if client.HasSubscription("a/#") || client.SubscriptionCount() != 1 {
		t.Errorf("after forget: count = %d", client.SubscriptionCount())
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	client := &Client{}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	client := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.HealthCheck(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

// =============================================================================
// Handler Wrapping Tests
// =============================================================================

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

var _ pahomqtt.Message = fakeMessage{}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestWrapHandler_RecoversPanic(t *testing.T) {
	logger := &recordingLogger{}
	client := &Client{}
	client.SetLogger(logger)

	wrapped := client.wrapHandler(func(string, []byte) error {
		panic("boom")
	})
	wrapped(nil, fakeMessage{topic: "lametric/x/set/meta/audio/volume"})

	if len(logger.errors) != 1 {
		t.Fatalf("logged %d errors, want 1", len(logger.errors))
	}
}

func TestWrapHandler_LogsReturnedError(t *testing.T) {
	logger := &recordingLogger{}
	client := &Client{}
	client.SetLogger(logger)

	var gotTopic, gotPayload string
	wrapped := client.wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return errors.New("rejected")
	})
	wrapped(nil, fakeMessage{topic: "t/1", payload: []byte("42")})

	if gotTopic != "t/1" || gotPayload != "42" {
		t.Errorf("handler got (%q, %q), want (t/1, 42)", gotTopic, gotPayload)
	}
	if len(logger.warns) != 1 {
		t.Errorf("logged %d warnings, want 1", len(logger.warns))
	}
}

func TestWrapHandler_NoLogger(t *testing.T) {
	client := &Client{}
	wrapped := client.wrapHandler(func(string, []byte) error {
		panic("boom")
	})
	// Must not propagate the panic.
	wrapped(nil, fakeMessage{topic: "t"})
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 8883, ClientID: "lametric-test", TLS: true},
		Auth:   config.MQTTAuthConfig{Username: "user", Password: "secret"},
		QoS:    1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 2,
			MaxDelay:     30,
		},
	}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://broker.local:8883" {
		t.Errorf("Servers = %v, want [ssl://broker.local:8883]", opts.Servers)
	}
	if opts.ClientID != "lametric-test" {
		t.Errorf("ClientID = %q, want lametric-test", opts.ClientID)
	}
	if opts.Username != "user" {
		t.Errorf("Username = %q, want user", opts.Username)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig = nil, want TLS configured")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := pahomqtt.NewClientOptions()
	configureLWT(opts, NewTopics("lametric-0"), "lametric-test")

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != "lametric/lametric-0/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}
	if !strings.Contains(string(opts.WillPayload), `"unexpected_disconnect"`) {
		t.Errorf("WillPayload = %s", opts.WillPayload)
	}
}

func TestStatusPayload(t *testing.T) {
	var online statusMessage
	if err := json.Unmarshal(statusPayload("c1", "online", ""), &online); err != nil {
		t.Fatalf("online payload: %v", err)
	}
	if online.Status != "online" || online.ClientID != "c1" || online.Reason != "" {
		t.Errorf("online payload = %+v", online)
	}

	offline := string(statusPayload("c1", "offline", "graceful_shutdown"))
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload = %s", offline)
	}
}

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := NewTopics("lametric-0")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Root", topics.Root(), "lametric/lametric-0"},
		{"State", topics.State("meta.display.brightness"), "lametric/lametric-0/state/meta/display/brightness"},
		{"StateTopLevel", topics.State("info.connection"), "lametric/lametric-0/state/info/connection"},
		{"Set", topics.Set("meta.audio.volume"), "lametric/lametric-0/set/meta/audio/volume"},
		{"Object", topics.Object("apps.next"), "lametric/lametric-0/object/apps/next"},
		{"Status", topics.Status(), "lametric/lametric-0/status"},
		{"Health", topics.Health(), "lametric/lametric-0/health"},
		{"Request", topics.Request("req-1"), "lametric/lametric-0/request/req-1"},
		{"Response", topics.Response("req-1"), "lametric/lametric-0/response/req-1"},
		{"AllSets", topics.AllSets(), "lametric/lametric-0/set/#"},
		{"AllRequests", topics.AllRequests(), "lametric/lametric-0/request/+"},
		{"AllTopics", topics.AllTopics(), "lametric/lametric-0/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestAddressFromSet(t *testing.T) {
	topics := NewTopics("lametric-0")

	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"lametric/lametric-0/set/meta/display/brightness", "meta.display.brightness", true},
		{"lametric/lametric-0/set/apps/0123456789abcdef0123456789abcdef/radio/play", "apps.0123456789abcdef0123456789abcdef.radio.play", true},
		{"lametric/other/set/meta/audio/volume", "", false},
		{"lametric/lametric-0/state/meta/audio/volume", "", false},
		{"lametric/lametric-0/set/", "", false},
		{"lametric/lametric-0/set/meta//volume", "", false},
		{"lametric/lametric-0/set/meta/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := topics.AddressFromSet(tt.topic)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("AddressFromSet(%q) = (%q, %v), want (%q, %v)", tt.topic, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAddressRoundtrip(t *testing.T) {
	topics := NewTopics("b")
	addr := "meta.display.screensaver.modes.timeBased.startTime"

	got, ok := topics.AddressFromState(topics.State(addr))
	if !ok || got != addr {
		t.Errorf("AddressFromState(State(%q)) = (%q, %v)", addr, got, ok)
	}
}

func TestRequestID(t *testing.T) {
	topics := NewTopics("b")

	if id, ok := topics.RequestID("lametric/b/request/abc"); !ok || id != "abc" {
		t.Errorf("RequestID() = (%q, %v), want (abc, true)", id, ok)
	}
	if _, ok := topics.RequestID("lametric/b/request/abc/def"); ok {
		t.Error("RequestID() accepted nested topic")
	}
	if _, ok := topics.RequestID("lametric/b/response/abc"); ok {
		t.Error("RequestID() accepted response topic")
	}
}
