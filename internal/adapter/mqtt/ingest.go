// internal/adapter/mqtt/ingest.go

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"livetrack/internal/config"
	"livetrack/internal/domain/location"
)

// Ingestor subscribes to device topics and feeds every payload into the
// location ingest path
type Ingestor struct {
	client   paho.Client
	cfg      config.MQTTConfig
	ingestor location.Ingestor
	timeout  time.Duration
	logger   *zap.Logger
}

// NewIngestor creates an MQTT ingestor. The broker is not contacted until Start.
func NewIngestor(cfg config.MQTTConfig, ingestor location.Ingestor, timeout time.Duration, logger *zap.Logger) *Ingestor {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	i := &Ingestor{
		cfg:      cfg,
		ingestor: ingestor,
		timeout:  timeout,
		logger:   logger,
	}

	// Resubscribe after every (re)connect since the session is clean
	opts.SetOnConnectHandler(func(c paho.Client) {
		if token := c.Subscribe(cfg.Topic, byte(cfg.QoS), i.onMessage); token.Wait() && token.Error() != nil {
			logger.Error("Failed to subscribe to MQTT topic", zap.String("topic", cfg.Topic), zap.Error(token.Error()))
			return
		}
		logger.Info("MQTT ingest subscribed", zap.String("topic", cfg.Topic))
	})

	i.client = paho.NewClient(opts)

	return i
}

// Start connects to the broker
func (i *Ingestor) Start() error {
	if token := i.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return nil
}

// Stop unsubscribes and disconnects
func (i *Ingestor) Stop() {
	if !i.client.IsConnected() {
		return
	}

	if token := i.client.Unsubscribe(i.cfg.Topic); token.WaitTimeout(time.Second) && token.Error() != nil {
		i.logger.Error("Failed to unsubscribe", zap.Error(token.Error()))
	}
	i.client.Disconnect(250)

	i.logger.Info("MQTT ingest stopped")
}

func (i *Ingestor) onMessage(_ paho.Client, msg paho.Message) {
	if err := i.handle(msg.Topic(), msg.Payload()); err != nil {
		i.logger.Warn("Dropped MQTT location message",
			zap.String("topic", msg.Topic()),
			zap.Error(err),
		)
	}
}

// handle decodes one device payload and ingests it
func (i *Ingestor) handle(topic string, payload []byte) error {
	var in location.FixInput
	if err := json.Unmarshal(payload, &in); err != nil {
		return fmt.Errorf("error decoding payload: %w", err)
	}

	if in.TrackID == "" {
		in.TrackID = trackIDFromTopic(topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
	defer cancel()

	if _, err := i.ingestor.Ingest(ctx, in); err != nil {
		return err
	}

	return nil
}

// trackIDFromTopic returns the second segment of a tracking/<trackId>/location topic
func trackIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}
