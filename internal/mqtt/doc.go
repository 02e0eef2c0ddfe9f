// Package mqtt publishes scan session events to an MQTT broker.
//
// Client wraps paho.mqtt.golang with an availability topic: it publishes a
// retained "online" status on connect, a graceful "offline" on Close, and
// registers an "offline" last will for crashes.
//
// Publisher implements session.Observer and mirrors events under a topic
// prefix (see Topics):
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	pub := mqtt.NewPublisher(client, client.Topics(), cfg.MQTT.QoS)
//	defer pub.Close()
//
//	ctrl := session.New(session.Options{..., Observer: pub})
package mqtt
