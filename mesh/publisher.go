package mesh

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Publisher publishes reconstruction summaries to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	log           *zap.Logger
}

// NewPublisher creates a result publisher. The topic prefix comes from
// MQTT_PUBLISH_PREFIX, then config, then "roofmesh". If client is nil,
// publishing is disabled.
func NewPublisher(client mqtt.Client, config *Config, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		client:        client,
		publishPrefix: publishPrefix(config),
		qos:           0,    // summaries are replaced by the next run
		retain:        true, // late subscribers see the latest result
		log:           log,
	}
}

// Topic is the topic a building's summary is published to.
func (p *Publisher) Topic(building string) string {
	return fmt.Sprintf("%s/buildings/%s", p.publishPrefix, building)
}

// PublishResult publishes the summary of r to <prefix>/buildings/<name>.
func (p *Publisher) PublishResult(r *Result) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(r.Summary())
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}

	topic := p.Topic(r.Name)
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	p.log.Debug("published result", zap.String("topic", topic), zap.String("run", r.RunID))
	return nil
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
