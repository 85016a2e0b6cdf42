// The simulator publishes synthetic device telemetry for local development.
// It can embed its own MQTT broker so a single process is enough to light
// up the dashboard's live stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	mqttbroker "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"

	"telemetry-dashboard/internal/telemetry"
	"telemetry-dashboard/pkg/utils"
)

const connectTimeout = 5 * time.Second

func main() {
	var (
		brokerURL   = flag.String("broker", "tcp://127.0.0.1:1883", "MQTT broker to publish to")
		embedded    = flag.Bool("embedded-broker", false, "run an embedded MQTT broker on -broker-addr")
		brokerAddr  = flag.String("broker-addr", ":1883", "listen address for the embedded broker")
		sensors     = flag.Int("sensors", 2, "number of environment sensors")
		endDevices  = flag.Int("end-devices", 1, "number of end devices reporting system metrics")
		interval    = flag.Duration("interval", 2*time.Second, "publish interval per device")
		malformed   = flag.Float64("malformed", 0, "fraction of payloads to corrupt (0..1), for resilience testing")
		logLevelStr = flag.String("log-level", "INFO", "log level")
	)
	flag.Parse()

	logger := getLogger(*logLevelStr)

	sigCtx, sigCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer sigCancel()

	if *embedded {
		broker, err := startBroker(logger, *brokerAddr)
		fatalIfErr(logger, err)

		defer func() {
			if err := broker.Close(); err != nil {
				logger.Error("embedded broker shutdown failed", utils.ErrAttr(err))
			}
		}()
	}

	client, err := connectPublisher(logger, *brokerURL)
	fatalIfErr(logger, err)

	defer client.Disconnect(250)

	for i := range *sensors {
		id := fmt.Sprintf("sensor-%02d", i+1)
		go publishLoop(sigCtx, logger, client, newSensorProfile(id), *interval, *malformed)
	}

	for i := range *endDevices {
		id := fmt.Sprintf("end-device-%02d", i+1)
		go publishLoop(sigCtx, logger, client, newEndDeviceProfile(id), *interval, *malformed)
	}

	logger.Info("simulator running",
		slog.Int("sensors", *sensors),
		slog.Int("end_devices", *endDevices),
		slog.Duration("interval", *interval),
	)

	<-sigCtx.Done()
	logger.Info("simulator exiting")
}

// profile produces one telemetry sample per tick. Values drift with a
// small random walk so the charts look alive.
type profile struct {
	deviceID string
	next     func(now time.Time) telemetry.Sample
}

func newSensorProfile(deviceID string) profile {
	temp := 18 + rand.Float64()*8
	humidity := 40 + rand.Float64()*20

	return profile{
		deviceID: deviceID,
		next: func(now time.Time) telemetry.Sample {
			temp += rand.Float64()*0.6 - 0.3
			humidity += rand.Float64()*2 - 1
			humidity = clamp(humidity, 10, 95)

			return telemetry.Sample{
				DeviceID:    deviceID,
				Temperature: utils.Ptr(round1(temp)),
				Humidity:    utils.Ptr(round1(humidity)),
				Status:      utils.Ptr("active"),
				Timestamp:   now.UTC().Format(time.RFC3339),
				EventType:   utils.Ptr("device.data"),
			}
		},
	}
}

func newEndDeviceProfile(deviceID string) profile {
	cpu := 10 + rand.Float64()*40
	mem := 30 + rand.Float64()*30
	disk := 20 + rand.Float64()*50

	return profile{
		deviceID: deviceID,
		next: func(now time.Time) telemetry.Sample {
			cpu = clamp(cpu+rand.Float64()*10-5, 1, 100)
			mem = clamp(mem+rand.Float64()*4-2, 5, 99)
			disk = clamp(disk+rand.Float64()*0.2-0.05, 5, 99)

			return telemetry.Sample{
				DeviceID:      deviceID,
				CPU:           utils.Ptr(round1(cpu)),
				MemoryPercent: utils.Ptr(round1(mem)),
				DiskPercent:   utils.Ptr(round1(disk)),
				Status:        utils.Ptr("active"),
				Timestamp:     now.UTC().Format(time.RFC3339),
				EventType:     utils.Ptr("device.data"),
			}
		},
	}
}

func publishLoop(ctx context.Context, l *slog.Logger, client mqtt.Client, p profile, interval time.Duration, malformed float64) {
	topic := fmt.Sprintf("devices/%s/telemetry", p.deviceID)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			payload, err := buildPayload(p, now, malformed)
			if err != nil {
				l.Error("failed to encode sample", utils.ErrAttr(err))

				continue
			}

			token := client.Publish(topic, 1, false, payload)
			token.Wait()

			if err := token.Error(); err != nil {
				l.Warn("publish failed", slog.String("topic", topic), utils.ErrAttr(err))
			}
		}
	}
}

func buildPayload(p profile, now time.Time, malformed float64) ([]byte, error) {
	if malformed > 0 && rand.Float64() < malformed {
		// Truncated JSON; the dashboard must drop it without flinching.
		return []byte(`{"device_id":`), nil
	}

	return utils.ToJSON(p.next(now))
}

func startBroker(l *slog.Logger, addr string) (*mqttbroker.Server, error) {
	server := mqttbroker.New(&mqttbroker.Options{
		Logger: l.With(slog.String("component", "mqtt-broker")),
	})
	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: addr})

	if err := server.AddListener(tcp); err != nil {
		return nil, err
	}

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, err
	}

	go func() {
		l.Info("embedded MQTT broker listening", slog.String("address", addr))

		if err := server.Serve(); err != nil {
			l.Error("embedded broker failed", utils.ErrAttr(err))
		}
	}()

	return server, nil
}

func connectPublisher(l *slog.Logger, brokerURL string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("telemetry-simulator-%d", os.Getpid()))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to %s", brokerURL)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", brokerURL, err)
	}

	l.Info("connected to MQTT broker", slog.String("broker", brokerURL))

	return client, nil
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func getLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	logOptions := slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: utils.SlogReplacer,
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &logOptions))
}

func fatalIfErr(l *slog.Logger, err error) {
	if err == nil {
		return
	}

	l.Error("error", utils.ErrAttr(err))
	os.Exit(1)
}
