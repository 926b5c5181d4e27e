package events

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

const publishTimeout = 5 * time.Second

// FaultMessage is the payload published for every newly inserted fault.
type FaultMessage struct {
	RunID      string          `json:"run_id"`
	Fault      domain.FaultRow `json:"fault"`
	InsertedAt time.Time       `json:"inserted_at"`
}

// Publisher fans inserted faults out to an MQTT topic.
type Publisher struct {
	client mqtt.Client
	topic  string
	logger zerolog.Logger
}

// Connect dials the broker. The returned publisher owns the connection.
func Connect(broker, topic string, logger zerolog.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("geotab-sync-" + fmt.Sprint(time.Now().UnixNano())).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return NewPublisher(client, topic, logger), nil
}

// NewPublisher creates a new fault event publisher
func NewPublisher(client mqtt.Client, topic string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		client: client,
		topic:  topic,
		logger: logger.With().Str("component", "mqtt").Str("topic", topic).Logger(),
	}
}

// PublishFaults sends one message per row at QoS 0. It stops at the first
// failure.
func (p *Publisher) PublishFaults(runID string, rows []domain.FaultRow) error {
	now := time.Now().UTC()
	for _, f := range rows {
		payload, err := json.Marshal(FaultMessage{RunID: runID, Fault: f, InsertedAt: now})
		if err != nil {
			return fmt.Errorf("encode fault %s: %w", f.ID, err)
		}
		token := p.client.Publish(p.topic, 0, false, payload)
		if !token.WaitTimeout(publishTimeout) {
			return fmt.Errorf("publish fault %s: timed out", f.ID)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish fault %s: %w", f.ID, err)
		}
	}
	p.logger.Debug().Int("count", len(rows)).Msg("published faults")
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
