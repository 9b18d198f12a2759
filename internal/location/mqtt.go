package location

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/co2quest/carbon-tracker/internal/models"
)

// FixTopic is the MQTT topic a user's device publishes position fixes to.
func FixTopic(userID string) string {
	return fmt.Sprintf("carbon/%s/fixes", userID)
}

// MQTTProvider subscribes to per-user fix topics on a shared broker
// connection. Devices publish JSON-encoded GeoSamples.
type MQTTProvider struct {
	client mqtt.Client
}

// ConnectMQTT connects to the broker and returns a provider backed by it.
func ConnectMQTT(brokerURL, clientID string) (*MQTTProvider, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout: %s", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &MQTTProvider{client: client}, nil
}

// Subscribe opens the fix stream for one user. A broker refusal is reported
// as ErrPermissionDenied so the trip stays Idle.
func (p *MQTTProvider) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	topic := FixTopic(userID)
	sub := &mqttSubscription{
		client: p.client,
		topic:  topic,
		fixes:  make(chan models.GeoSample, 64),
	}

	token := p.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var fix models.GeoSample
		if err := json.Unmarshal(msg.Payload(), &fix); err != nil {
			log.WithError(err).WithField("topic", topic).Warn("Dropping malformed fix")
			return
		}
		if fix.CapturedAt.IsZero() {
			fix.CapturedAt = time.Now()
		}
		sub.deliver(fix)
	})
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt subscribe timeout: %s", topic)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	log.WithFields(log.Fields{"user_id": userID, "topic": topic}).Info("Location stream opened")
	return sub, nil
}

// Close disconnects the shared broker connection.
func (p *MQTTProvider) Close() {
	p.client.Disconnect(250)
}

type mqttSubscription struct {
	client mqtt.Client
	topic  string
	fixes  chan models.GeoSample

	mu     sync.Mutex
	once   sync.Once
	closed bool
}

func (s *mqttSubscription) Fixes() <-chan models.GeoSample {
	return s.fixes
}

// deliver appends a fix unless the subscription is cancelled. A full buffer
// drops the oldest pending fix rather than blocking the broker callback.
func (s *mqttSubscription) deliver(fix models.GeoSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.fixes <- fix:
	default:
		select {
		case <-s.fixes:
		default:
		}
		s.fixes <- fix
	}
}

// Cancel releases the topic subscription and closes the fix channel. Safe to
// call more than once and from any exit path.
func (s *mqttSubscription) Cancel() {
	s.once.Do(func() {
		if s.client != nil {
			s.client.Unsubscribe(s.topic)
		}
		s.mu.Lock()
		s.closed = true
		close(s.fixes)
		s.mu.Unlock()
	})
}
