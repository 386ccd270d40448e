// Package publish forwards gesture events to the show-control network over
// MQTT. Delivery is QoS 0 fire-and-forget: a missed event is cheaper for
// the show than a stalled tick loop.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/crowd-organ/gesture.host/internal/gesture"
)

// DefaultTopicPrefix is the root of the event topic tree. Events land on
// <prefix>/<kind>, e.g. room/gesture/voice.
const DefaultTopicPrefix = "room/gesture"

const publishTimeout = 2 * time.Second

// Publisher emits gesture events as JSON MQTT messages. It implements the
// engine's EventSink.
type Publisher struct {
	client      *paho.Client
	topicPrefix string
}

// Options configures a Publisher.
type Options struct {
	// BrokerAddr is the broker's host:port.
	BrokerAddr string
	// ClientID identifies this host to the broker.
	ClientID string
	// TopicPrefix overrides DefaultTopicPrefix when non-empty.
	TopicPrefix string
}

// Dial connects to the broker and returns a ready Publisher.
func Dial(ctx context.Context, opts Options) (*Publisher, error) {
	conn, err := net.Dial("tcp", opts.BrokerAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial MQTT broker %s: %w", opts.BrokerAddr, err)
	}

	clientID := opts.ClientID
	if clientID == "" {
		clientID = "gesture-host"
	}

	client := paho.NewClient(paho.ClientConfig{
		Conn:     conn,
		ClientID: clientID,
	})

	connack, err := client.Connect(ctx, &paho.Connect{
		ClientID:   clientID,
		KeepAlive:  30,
		CleanStart: true,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("MQTT connect failed: %w", err)
	}
	if connack.ReasonCode != 0 {
		conn.Close()
		return nil, fmt.Errorf("MQTT connect refused: reason code %d", connack.ReasonCode)
	}

	topicPrefix := opts.TopicPrefix
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}

	log.Printf("publishing gestures to mqtt://%s under %s/", opts.BrokerAddr, topicPrefix)
	return &Publisher{client: client, topicPrefix: topicPrefix}, nil
}

// Emit publishes one event. Failures are logged and swallowed; the event
// stream carries no delivery guarantee.
func (p *Publisher) Emit(event gesture.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to encode gesture event %s: %v", event.ID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	topic := fmt.Sprintf("%s/%s", p.topicPrefix, event.Kind)
	if _, err := p.client.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     0,
		Payload: payload,
	}); err != nil {
		log.Printf("failed to publish %s to %s: %v", event.Type, topic, err)
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	return p.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
