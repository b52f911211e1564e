package lametric

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-lametric/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-lametric/internal/points"
)

// Bridge operation constants.
const (
	// defaultCommandTimeout bounds one device call triggered by a point write.
	defaultCommandTimeout = 10 * time.Second

	// qosState is used for state, object and response messages.
	qosState byte = 1
)

// Bridge synchronises a LaMetric device with the point tree.
// It handles:
//   - Translating user point writes (ack=false) into device calls
//   - Re-syncing points from device responses and periodic refreshes
//   - Publishing point state and metadata to MQTT and accepting writes
//   - Relaying notification requests
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	bridgeID       string
	commandTimeout time.Duration

	client   DeviceAPI
	registry *points.Registry
	mqtt     MQTTClient
	topics   mqtt.Topics
	health   *HealthReporter
	notifier *Notifier

	unsubscribe func()

	// Shutdown coordination. stopping is set under dispatchMu so no
	// dispatch is added to wg once Stop has begun waiting.
	dispatchMu sync.Mutex
	stopping   bool
	wg         sync.WaitGroup
	stopOnce   sync.Once
	ctx        context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel  context.CancelFunc // Cancel function for ctx

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is the structured logging interface used by the bridge.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// DeviceAPI is the device client used by the bridge. Satisfied by *Client.
type DeviceAPI interface {
	Caller
	DeviceStats
}

// MQTTClient is the interface for MQTT operations.
// Satisfied by *mqtt.Client; mocked in tests.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// BridgeID names this bridge instance in topics and health reports.
	BridgeID string

	// Version is reported in health messages.
	Version string

	// Client is the device API client.
	Client DeviceAPI

	// Registry is the point registry.
	Registry *points.Registry

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// CommandTimeout bounds each device call triggered by a point write.
	// Default: 10 seconds.
	CommandTimeout time.Duration

	// HealthInterval is how often health is published. Default: 30 seconds.
	HealthInterval time.Duration

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.BridgeID == "" {
		return nil, fmt.Errorf("bridge ID is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("device client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("point registry is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}

	ctx, ctxCancel := context.WithCancel(context.Background())
	topics := mqtt.NewTopics(opts.BridgeID)

	b := &Bridge{
		bridgeID:       opts.BridgeID,
		commandTimeout: timeout,
		client:         opts.Client,
		registry:       opts.Registry,
		mqtt:           opts.MQTTClient,
		topics:         topics,
		notifier:       NewNotifier(opts.Client, opts.Logger),
		ctx:            ctx,
		ctxCancel:      ctxCancel,
		logger:         opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:   opts.BridgeID,
		Version:    opts.Version,
		Topic:      topics.Health(),
		Interval:   opts.HealthInterval,
		Publisher:  opts.MQTTClient,
		Device:     opts.Client,
		PointCount: opts.Registry.Count,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start begins bridge operation.
// This watches the registry for user writes, subscribes to MQTT set and
// request topics, publishes the current point tree and starts health
// reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	b.unsubscribe = b.registry.Subscribe(b.handlePointChange)

	setTopic := b.topics.AllSets()
	if err := b.mqtt.Subscribe(setTopic, qosState, b.handleSet); err != nil {
		b.unsubscribe()
		return fmt.Errorf("subscribe to sets: %w", err)
	}
	b.logInfo("subscribed to point writes", "topic", setTopic)

	requestTopic := b.topics.AllRequests()
	if err := b.mqtt.Subscribe(requestTopic, qosState, b.handleRequest); err != nil {
		b.unsubscribe()
		return fmt.Errorf("subscribe to requests: %w", err)
	}
	b.logInfo("subscribed to requests", "topic", requestTopic)

	b.PublishAll()

	b.health.Start(ctx)
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	b.logInfo("bridge started",
		"bridge_id", b.bridgeID,
		"points", b.registry.Count())

	return nil
}

// Stop gracefully shuts down the bridge.
// The connectivity point is set false, in-flight device commands are
// allowed to finish (bounded by the command timeout) and health
// reporting publishes a final "stopping" status.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if err := b.registry.Write(context.Background(), points.AddrConnection, false, true); err != nil {
			b.logError("failed to clear connection point", err)
		}

		b.dispatchMu.Lock()
		b.stopping = true
		b.dispatchMu.Unlock()

		if b.unsubscribe != nil {
			b.unsubscribe()
		}

		b.health.Stop()
		b.wg.Wait()
		b.ctxCancel()

		b.logInfo("bridge stopped")
	})
}

// Health returns the current health message.
func (b *Bridge) Health() HealthMessage {
	return b.health.Message()
}

// SendNotification relays a notification to the device and returns the
// device's success object, or {} on failure.
func (b *Bridge) SendNotification(ctx context.Context, req NotificationRequest) json.RawMessage {
	return b.notifier.Send(ctx, req)
}

// PublishAll publishes object metadata and state for every point.
func (b *Bridge) PublishAll() {
	for _, p := range b.registry.List() {
		b.publishObject(p.Definition)
		b.publishState(p)
	}
}

// handlePointChange is the registry observer. It mirrors every change to
// MQTT and forwards user writes to the device.
func (b *Bridge) handlePointChange(c points.Change) {
	if c.Created {
		b.publishObject(c.Point.Definition)
	}
	b.publishState(c.Point)

	if c.Point.Ack || c.Created {
		return
	}
	b.dispatchAsync(c.Point.Address, c.Point.Value)
}

// dispatchAsync runs Dispatch on its own goroutine so the writer is not
// blocked by the device round trip.
func (b *Bridge) dispatchAsync(address string, value any) {
	b.dispatchMu.Lock()
	if b.stopping {
		b.dispatchMu.Unlock()
		b.logDebug("bridge stopping, dropping write", "address", address)
		return
	}
	b.wg.Add(1)
	b.dispatchMu.Unlock()

	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(b.ctx, b.commandTimeout)
		defer cancel()

		if err := b.Dispatch(ctx, address, value); err != nil {
			b.logError("command failed", fmt.Errorf("%s: %w", address, err))
		}
	}()
}

// handleSet processes a user write from MQTT.
func (b *Bridge) handleSet(topic string, payload []byte) error {
	address, ok := b.topics.AddressFromSet(topic)
	if !ok {
		return fmt.Errorf("invalid set topic: %s", topic)
	}

	value := decodeSetPayload(payload)
	if err := b.registry.Submit(b.ctx, address, value); err != nil {
		return fmt.Errorf("write %s: %w", address, err)
	}

	b.logDebug("received point write", "address", address, "value", value)
	return nil
}

// decodeSetPayload accepts a JSON scalar, {"val": ...} or plain text.
func decodeSetPayload(payload []byte) any {
	trimmed := bytes.TrimSpace(payload)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var msg SetMessage
		if err := json.Unmarshal(trimmed, &msg); err == nil {
			return msg.Value
		}
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err == nil {
		return v
	}
	return string(trimmed)
}

// handleRequest processes a request message and publishes the response.
func (b *Bridge) handleRequest(topic string, payload []byte) error {
	topicID, ok := b.topics.RequestID(topic)
	if !ok {
		return fmt.Errorf("invalid request topic: %s", topic)
	}

	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		b.publishResponse(ResponseMessage{
			RequestID: topicID,
			Error:     &ResponseError{Code: ErrCodeInvalidRequest, Message: err.Error()},
		})
		return fmt.Errorf("parse request: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = topicID
	}

	resp := ResponseMessage{RequestID: req.RequestID, Command: req.Command}

	switch req.Command {
	case CommandNotification:
		var n NotificationRequest
		if err := json.Unmarshal(req.Message, &n); err != nil {
			resp.Error = &ResponseError{Code: ErrCodeInvalidRequest, Message: err.Error()}
			break
		}
		ctx, cancel := context.WithTimeout(b.ctx, b.commandTimeout)
		resp.Data = b.SendNotification(ctx, n)
		cancel()
		resp.Success = true
	default:
		resp.Error = &ResponseError{
			Code:    ErrCodeUnknownCommand,
			Message: fmt.Sprintf("unknown command %q", req.Command),
		}
	}

	b.publishResponse(resp)
	return nil
}

func (b *Bridge) publishResponse(resp ResponseMessage) {
	resp.Timestamp = time.Now().UTC()
	data, err := json.Marshal(resp)
	if err != nil {
		b.logError("failed to marshal response", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.Response(resp.RequestID), data, qosState, false); err != nil {
		b.logError("failed to publish response", err)
	}
}

func (b *Bridge) publishState(p points.Point) {
	data, err := json.Marshal(NewStateMessage(p))
	if err != nil {
		b.logError("failed to marshal state", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.State(p.Address), data, qosState, true); err != nil {
		b.logDebug("state not published", "address", p.Address, "error", err)
	}
}

func (b *Bridge) publishObject(def points.Definition) {
	data, err := json.Marshal(ObjectMessage{Definition: def})
	if err != nil {
		b.logError("failed to marshal object", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.Object(def.Address), data, qosState, true); err != nil {
		b.logDebug("object not published", "address", def.Address, "error", err)
	}
}

// SetLogger sets the logger.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
	b.health.SetLogger(logger)
	b.notifier.SetLogger(logger)
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set. ErrDisabled is not
// an error condition and is dropped.
func (b *Bridge) logError(msg string, err error) {
	if errors.Is(err, ErrDisabled) {
		return
	}
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
