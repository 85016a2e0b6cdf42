package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"telemetry-dashboard/internal/stream"
	"telemetry-dashboard/internal/telemetry"
)

type EnvKey string

const (
	EnvPort     EnvKey = "PORT"
	EnvLogLevel EnvKey = "LOG_LEVEL"

	EnvBackendURL   EnvKey = "BACKEND_URL"
	EnvBackendToken EnvKey = "BACKEND_TOKEN"

	EnvMQTTBroker   EnvKey = "MQTT_BROKER"
	EnvMQTTClientID EnvKey = "MQTT_CLIENT_ID"
	EnvMQTTUsername EnvKey = "MQTT_USERNAME"
	EnvMQTTPassword EnvKey = "MQTT_PASSWORD"
	EnvMQTTTopic    EnvKey = "MQTT_TOPIC"

	EnvWeatherCity EnvKey = "WEATHER_CITY"
	EnvWeatherLat  EnvKey = "WEATHER_LAT"
	EnvWeatherLon  EnvKey = "WEATHER_LON"

	EnvWindowCapacity EnvKey = "WINDOW_CAPACITY"
)

type Config struct {
	Port      int
	LogLevel  slog.Leveler
	LogOutput io.Writer

	BackendURL   string
	BackendToken string

	// MQTT configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string

	// Default location for the weather panels
	WeatherCity string
	WeatherLat  float64
	WeatherLon  float64

	WindowCapacity int
}

func New() (*Config, error) {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	return &Config{
		Port:           getIntEnv(EnvPort, 8090),
		LogLevel:       getLogLevelEnv(EnvLogLevel, slog.LevelInfo),
		LogOutput:      os.Stdout,
		BackendURL:     getStringEnv(EnvBackendURL, "http://127.0.0.1:8000"),
		BackendToken:   getStringEnv(EnvBackendToken, ""),
		MQTTBroker:     getStringEnv(EnvMQTTBroker, "tcp://127.0.0.1:1883"),
		MQTTClientID:   getStringEnv(EnvMQTTClientID, "telemetry-dashboard"),
		MQTTUsername:   getStringEnv(EnvMQTTUsername, ""),
		MQTTPassword:   getStringEnv(EnvMQTTPassword, ""),
		MQTTTopic:      getStringEnv(EnvMQTTTopic, stream.DefaultTopic),
		WeatherCity:    getStringEnv(EnvWeatherCity, "Athens"),
		WeatherLat:     getFloatEnv(EnvWeatherLat, 37.98),
		WeatherLon:     getFloatEnv(EnvWeatherLon, 23.72),
		WindowCapacity: getIntEnv(EnvWindowCapacity, telemetry.DefaultCapacity),
	}, nil
}

func getStringEnv(key EnvKey, defaultVal string) string {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	return val
}

func getIntEnv(key EnvKey, defaultVal int) int {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	if intVal, err := strconv.Atoi(val); err == nil {
		return intVal
	}

	return defaultVal
}

func getFloatEnv(key EnvKey, defaultVal float64) float64 {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
		return floatVal
	}

	return defaultVal
}

func getLogLevelEnv(key EnvKey, defaultVal slog.Leveler) slog.Leveler {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	switch strings.ToUpper(val) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}

	return defaultVal
}
