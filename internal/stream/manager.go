// Package stream maintains the push-channel connection that delivers live
// device samples to the dashboard.
package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"telemetry-dashboard/internal/telemetry"
	"telemetry-dashboard/pkg/utils"
)

// DefaultTopic matches the per-device telemetry topics the simulators
// publish on.
const DefaultTopic = "devices/+/telemetry"

const (
	defaultLivenessInterval = 10 * time.Second
	connectTimeout          = 5 * time.Second
	connectRetryInterval    = 5 * time.Second
	maxReconnectInterval    = 15 * time.Second
	keepAlive               = 30 * time.Second
	disconnectGraceMillis   = 250
)

// SampleSink receives validated live samples. The telemetry window
// satisfies it.
type SampleSink interface {
	ApplyLive(telemetry.Sample)
}

// Options configures a Manager.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	// Topic overrides DefaultTopic.
	Topic string
	// LivenessInterval overrides how often connectivity is re-read from
	// the transport.
	LivenessInterval time.Duration
	// OnSample, when set, observes every accepted sample after it reached
	// the sink.
	OnSample func(telemetry.Sample)
}

// Manager owns one push-channel connection for the lifetime of a mounted
// view. It is never shared across views: acquire with NewManager/Connect,
// release with Close on every exit path.
//
// The underlying transport reconnects with its own backoff; the manager
// only mirrors the transport's truth into the connectivity flag.
type Manager struct {
	l        *slog.Logger
	client   mqtt.Client
	sink     SampleSink
	onSample func(telemetry.Sample)
	topic    string

	connected     atomic.Bool
	lastEventNano atomic.Int64

	livenessInterval time.Duration
	done             chan struct{}
	closeOnce        sync.Once
}

// NewManager creates a manager for the given broker. It does not connect.
func NewManager(l *slog.Logger, sink SampleSink, opts Options) (*Manager, error) {
	if opts.BrokerURL == "" {
		return nil, errors.New("broker URL is required")
	}

	if opts.ClientID == "" {
		return nil, errors.New("client ID is required")
	}

	if sink == nil {
		return nil, errors.New("sample sink is required")
	}

	m := &Manager{
		l:                l.With(slog.String("component", "stream-manager")),
		sink:             sink,
		onSample:         opts.OnSample,
		topic:            opts.Topic,
		livenessInterval: opts.LivenessInterval,
		done:             make(chan struct{}),
	}

	if m.topic == "" {
		m.topic = DefaultTopic
	}

	if m.livenessInterval <= 0 {
		m.livenessInterval = defaultLivenessInterval
	}

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.BrokerURL)
	clientOpts.SetClientID(opts.ClientID)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}

	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	// Retry every 5 seconds, max interval 15 seconds
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectTimeout(connectTimeout)
	clientOpts.SetConnectRetryInterval(connectRetryInterval)
	clientOpts.SetMaxReconnectInterval(maxReconnectInterval)
	clientOpts.SetKeepAlive(keepAlive)

	clientOpts.SetOnConnectHandler(m.onConnect)
	clientOpts.SetConnectionLostHandler(m.onConnectionLost)
	clientOpts.SetReconnectingHandler(m.onReconnecting)

	m.client = mqtt.NewClient(clientOpts)

	m.l.Info("stream manager created", slog.String("broker", opts.BrokerURL), slog.String("topic", m.topic))

	return m, nil
}

// Connect starts the connection attempt and the liveness check. The
// transport retries in the background, so a broker that is down at startup
// surfaces through the connectivity flag instead of blocking the caller.
func (m *Manager) Connect() error {
	token := m.client.Connect()

	go m.livenessLoop()

	if !token.WaitTimeout(connectTimeout) {
		m.l.Warn("broker not reachable yet, retrying in background")

		return nil
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	return nil
}

// Connected reports the current connectivity as last observed from the
// transport.
func (m *Manager) Connected() bool {
	return m.connected.Load()
}

// LastEvent returns when the last telemetry event arrived, or the zero time
// if none has.
func (m *Manager) LastEvent() time.Time {
	nano := m.lastEventNano.Load()
	if nano == 0 {
		return time.Time{}
	}

	return time.Unix(0, nano)
}

// Close tears the connection down: stops the liveness check, removes the
// subscription and disconnects. Safe to call multiple times and on every
// exit path.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)

		if m.client.IsConnected() {
			if token := m.client.Unsubscribe(m.topic); token.Wait() && token.Error() != nil {
				m.l.Warn("failed to unsubscribe", utils.ErrAttr(token.Error()))
			}

			m.client.Disconnect(disconnectGraceMillis)
		}

		m.connected.Store(false)
		m.l.Info("stream manager closed")
	})
}

// onConnect runs on every successful connect and reconnect. Connectivity
// flips immediately, before any data has arrived.
func (m *Manager) onConnect(client mqtt.Client) {
	m.connected.Store(true)
	m.l.Info("connected to broker, subscribing", slog.String("topic", m.topic))

	token := client.Subscribe(m.topic, 1, m.handleEvent)
	token.Wait()

	if err := token.Error(); err != nil {
		m.l.Error("failed to subscribe", slog.String("topic", m.topic), utils.ErrAttr(err))
	}
}

func (m *Manager) onConnectionLost(_ mqtt.Client, err error) {
	m.connected.Store(false)
	m.l.Warn("connection to broker lost", utils.ErrAttr(err))
}

func (m *Manager) onReconnecting(_ mqtt.Client, opts *mqtt.ClientOptions) {
	m.l.Info("reconnecting to broker", slog.String("broker", opts.Servers[0].String()))
}

// handleEvent validates and forwards one push-channel event. Malformed
// payloads are dropped without touching connectivity: partial input from a
// producer is not a connection problem.
func (m *Manager) handleEvent(_ mqtt.Client, msg mqtt.Message) {
	sample, err := telemetry.DecodeSample(msg.Payload())
	if err != nil {
		m.l.Warn("dropping malformed telemetry event", slog.String("topic", msg.Topic()), utils.ErrAttr(err))
		return
	}

	m.lastEventNano.Store(time.Now().UnixNano())
	// Data arriving proves the link even if a connect callback was missed
	m.connected.Store(true)

	m.sink.ApplyLive(sample)

	if m.onSample != nil {
		m.onSample(sample)
	}
}

// livenessLoop periodically re-reads connectivity from the transport so an
// idle but healthy connection is not shown as disconnected.
func (m *Manager) livenessLoop() {
	ticker := time.NewTicker(m.livenessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.connected.Store(m.client.IsConnectionOpen())
		}
	}
}
