package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic the bridge publishes or consumes.
const TopicPrefix = "lametric"

// Topics builds the MQTT topic tree for a single bridge instance.
//
// Point addresses are dot-separated ("meta.display.brightness"); on the
// wire each dot becomes a topic level:
//
//	topics := mqtt.NewTopics("lametric-0")
//	topics.State("meta.display.brightness")
//	// Returns: "lametric/lametric-0/state/meta/display/brightness"
type Topics struct {
	BridgeID string
}

// NewTopics returns the topic builder for bridgeID.
func NewTopics(bridgeID string) Topics {
	return Topics{BridgeID: bridgeID}
}

// Root returns the topic prefix for this bridge instance.
//
// Example: lametric/lametric-0
func (t Topics) Root() string {
	return fmt.Sprintf("%s/%s", TopicPrefix, t.BridgeID)
}

// =============================================================================
// Point Topics
// =============================================================================

// State returns the retained state topic for a point.
//
// Example: lametric/lametric-0/state/meta/audio/volume
func (t Topics) State(address string) string {
	return fmt.Sprintf("%s/state/%s", t.Root(), addressToPath(address))
}

// Set returns the topic on which users write a point value.
//
// Example: lametric/lametric-0/set/meta/audio/volume
func (t Topics) Set(address string) string {
	return fmt.Sprintf("%s/set/%s", t.Root(), addressToPath(address))
}

// Object returns the retained metadata topic for a point.
//
// Example: lametric/lametric-0/object/meta/audio/volume
func (t Topics) Object(address string) string {
	return fmt.Sprintf("%s/object/%s", t.Root(), addressToPath(address))
}

// =============================================================================
// Bridge Topics
// =============================================================================

// Status returns the online/offline topic (also the LWT topic).
//
// Example: lametric/lametric-0/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/status", t.Root())
}

// Health returns the topic for periodic health reports.
//
// Example: lametric/lametric-0/health
func (t Topics) Health() string {
	return fmt.Sprintf("%s/health", t.Root())
}

// Request returns the topic for an inbound request.
//
// Example: lametric/lametric-0/request/req-abc123
func (t Topics) Request(requestID string) string {
	return fmt.Sprintf("%s/request/%s", t.Root(), requestID)
}

// Response returns the topic for the reply to a request.
//
// Example: lametric/lametric-0/response/req-abc123
func (t Topics) Response(requestID string) string {
	return fmt.Sprintf("%s/response/%s", t.Root(), requestID)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllSets matches every point write.
//
// Pattern: lametric/lametric-0/set/#
func (t Topics) AllSets() string {
	return fmt.Sprintf("%s/set/#", t.Root())
}

// AllRequests matches every inbound request.
//
// Pattern: lametric/lametric-0/request/+
func (t Topics) AllRequests() string {
	return fmt.Sprintf("%s/request/+", t.Root())
}

// AllTopics matches everything under this bridge instance.
//
// Pattern: lametric/lametric-0/#
func (t Topics) AllTopics() string {
	return t.Root() + "/#"
}

// =============================================================================
// Parsing
// =============================================================================

// AddressFromSet extracts the point address from a set topic.
// Returns false if topic is not a set topic for this bridge.
func (t Topics) AddressFromSet(topic string) (string, bool) {
	return t.addressAfter(topic, "set")
}

// AddressFromState extracts the point address from a state topic.
func (t Topics) AddressFromState(topic string) (string, bool) {
	return t.addressAfter(topic, "state")
}

// RequestID extracts the request ID from a request topic.
func (t Topics) RequestID(topic string) (string, bool) {
	prefix := t.Root() + "/request/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (t Topics) addressAfter(topic, kind string) (string, bool) {
	prefix := t.Root() + "/" + kind + "/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(topic, prefix)
	if rest == "" || strings.Contains(rest, "//") || strings.HasSuffix(rest, "/") {
		return "", false
	}
	return strings.ReplaceAll(rest, "/", "."), true
}

func addressToPath(address string) string {
	return strings.ReplaceAll(address, ".", "/")
}
