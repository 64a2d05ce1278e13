package mqttbridge

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/logging"
	"go.uber.org/zap"
)

const (
	// defaultConnectTimeout is the maximum time to wait for the initial connection
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout bounds how long a publish result is awaited
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time in milliseconds allowed for pending work on disconnect
	defaultDisconnectQuiesce = 250

	defaultKeepAlive = 60 * time.Second

	statusOnline  = "online"
	statusOffline = "offline"
)

// Config holds the broker connection and topic settings
type Config struct {
	Broker      string // e.g. "tcp://localhost:1883"
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// Publisher is the subset of pahomqtt.Client the bridge publishes through
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

// Bridge publishes registry events to MQTT. It implements registry.Observer.
type Bridge struct {
	pub    Publisher
	prefix string
	qos    byte
	logger *zap.Logger

	mu        sync.Mutex
	published map[string]struct{} // retained device topics to clear on Clear
}

// New creates a bridge publishing through pub
func New(pub Publisher, cfg Config) *Bridge {
	prefix := strings.Trim(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = "ledsync"
	}
	return &Bridge{
		pub:       pub,
		prefix:    prefix,
		qos:       cfg.QoS,
		logger:    logging.Named("mqtt"),
		published: make(map[string]struct{}),
	}
}

// Connect dials the broker and returns a bridge over the connected client.
// The broker publishes an offline status if the process goes away without
// calling Close.
func Connect(cfg Config) (*Bridge, pahomqtt.Client, error) {
	b := New(nil, cfg)

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetWill(b.StatusTopic(), statusOffline, 1, true)
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		c.Publish(b.StatusTopic(), 1, true, statusOnline)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		b.logger.Warn("MQTT connection lost", zap.Error(err))
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, nil, fmt.Errorf("connect to %s: timeout after %v", cfg.Broker, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	b.pub = client
	b.logger.Info("Connected to MQTT broker",
		zap.String("broker", cfg.Broker),
		zap.String("prefix", b.prefix),
	)
	return b, client, nil
}

// Close publishes an offline status and disconnects client
func (b *Bridge) Close(client pahomqtt.Client) {
	if client == nil {
		return
	}
	token := client.Publish(b.StatusTopic(), 1, true, statusOffline)
	token.WaitTimeout(defaultPublishTimeout)
	client.Disconnect(defaultDisconnectQuiesce)
}

// DeviceTopic returns the retained topic for the device at address
func (b *Bridge) DeviceTopic(address string) string {
	return b.prefix + "/devices/" + sanitizeLevel(address)
}

// ClearedTopic returns the topic rediscovery events are published on
func (b *Bridge) ClearedTopic() string {
	return b.prefix + "/events/cleared"
}

// StatusTopic returns the bridge online/offline topic
func (b *Bridge) StatusTopic() string {
	return b.prefix + "/status"
}

// OnDeviceDiscovered publishes the device state
func (b *Bridge) OnDeviceDiscovered(device *discovery.Device) {
	b.publishDevice(device)
}

// OnDeviceUpdated publishes the new device state
func (b *Bridge) OnDeviceUpdated(device *discovery.Device) {
	b.publishDevice(device)
}

// OnDevicesCleared removes every retained device topic and announces the
// rediscovery
func (b *Bridge) OnDevicesCleared() {
	b.mu.Lock()
	topics := make([]string, 0, len(b.published))
	for t := range b.published {
		topics = append(topics, t)
	}
	b.published = make(map[string]struct{})
	b.mu.Unlock()

	sort.Strings(topics)
	for _, t := range topics {
		// An empty retained payload deletes the retained message
		b.publish(t, true, []byte{})
	}

	payload, _ := json.Marshal(struct {
		Timestamp time.Time `json:"timestamp"`
	}{time.Now().UTC()})
	b.publish(b.ClearedTopic(), false, payload)
}

func (b *Bridge) publishDevice(device *discovery.Device) {
	payload, err := json.Marshal(device.Info())
	if err != nil {
		b.logger.Error("Failed to marshal device", zap.Error(err))
		return
	}

	topic := b.DeviceTopic(device.Address())
	b.mu.Lock()
	b.published[topic] = struct{}{}
	b.mu.Unlock()

	b.publish(topic, true, payload)
}

// publish hands the message to the client without waiting; observers run
// while the registry is serializing notifications
func (b *Bridge) publish(topic string, retained bool, payload []byte) {
	if b.pub == nil {
		return
	}
	token := b.pub.Publish(topic, b.qos, retained, payload)
	metricPublished.Inc()
	go func() {
		if !token.WaitTimeout(defaultPublishTimeout) {
			b.logger.Warn("MQTT publish timed out", zap.String("topic", topic))
			metricPublishFailures.Inc()
			return
		}
		if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish failed", zap.String("topic", topic), zap.Error(err))
			metricPublishFailures.Inc()
		}
	}()
}

// sanitizeLevel makes s safe as a single topic level
func sanitizeLevel(s string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
