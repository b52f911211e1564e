// Package mqtt provides MQTT client connectivity for the LaMetric bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - The bridge's topic tree (see Topics)
//
// # Architecture
//
// The home automation side never talks to the display directly. It reads
// retained point state and writes point values over MQTT:
//
//	Home automation ↔ MQTT Broker ↔ LaMetric bridge ↔ LaMetric device (HTTP)
//
// # Topic Tree
//
//	lametric/{bridge}/status           online/offline (retained, LWT)
//	lametric/{bridge}/health           health report (retained)
//	lametric/{bridge}/state/{path}     point value (retained)
//	lametric/{bridge}/object/{path}    point metadata (retained)
//	lametric/{bridge}/set/{path}       user write (ack=false)
//	lametric/{bridge}/request/{id}     notification request
//	lametric/{bridge}/response/{id}    notification reply
//
// {path} is the point address with dots replaced by slashes.
//
// # Security Considerations
//
//   - TLS should be enabled outside a trusted LAN (cfg.Broker.TLS=true)
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.NewTopics(cfg.Bridge.ID))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllSets(), 1,
//	    func(topic string, payload []byte) error {
//	        addr, _ := client.Topics().AddressFromSet(topic)
//	        return registry.Submit(ctx, addr, value)
//	    })
package mqtt
