// Package config loads client configuration from an optional YAML file and
// IPCSYNC_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
	cipc "github.com/next-trace/scg-ipc-sync/contract/ipc"
	"github.com/spf13/viper"
)

// Transport names. Kafka only carries pushes, so it is valid as Push and not as Transport.
const (
	TransportMemory    = "memory"
	TransportNATS      = "nats"
	TransportRabbitMQ  = "rabbitmq"
	TransportKafka     = "kafka"
	TransportWebsocket = "websocket"
)

const envPrefix = "IPCSYNC"

// Config holds client configuration.
type Config struct {
	Transport string          `mapstructure:"transport"`
	Push      string          `mapstructure:"push"`
	Dev       bool            `mapstructure:"dev"`
	LogLevel  string          `mapstructure:"logLevel"`
	PushTopic string          `mapstructure:"pushTopic"`
	NATS      NATSConfig      `mapstructure:"nats"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Websocket WebsocketConfig `mapstructure:"websocket"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Name          string        `mapstructure:"name"`
	ConnTimeout   time.Duration `mapstructure:"connTimeout"`
	MaxReconnects int           `mapstructure:"maxReconnects"`
	SubjectPrefix string        `mapstructure:"subjectPrefix"`
}

type RabbitMQConfig struct {
	URL             string        `mapstructure:"url"`
	ConnTimeout     time.Duration `mapstructure:"connTimeout"`
	RequestExchange string        `mapstructure:"requestExchange"`
	RoutingPrefix   string        `mapstructure:"routingPrefix"`
	PushQueue       string        `mapstructure:"pushQueue"`
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	Group    string   `mapstructure:"group"`
	ClientID string   `mapstructure:"clientID"`
}

type WebsocketConfig struct {
	URL              string        `mapstructure:"url"`
	HandshakeTimeout time.Duration `mapstructure:"handshakeTimeout"`
	PingInterval     time.Duration `mapstructure:"pingInterval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("transport", TransportMemory)
	v.SetDefault("push", "")
	v.SetDefault("dev", false)
	v.SetDefault("logLevel", "info")
	v.SetDefault("pushTopic", cipc.DefaultPushTopic)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.name", "ipc-sync")
	v.SetDefault("nats.connTimeout", 5*time.Second)
	v.SetDefault("nats.maxReconnects", 10)
	v.SetDefault("nats.subjectPrefix", "ipc.")

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.connTimeout", 5*time.Second)
	v.SetDefault("rabbitmq.requestExchange", "")
	v.SetDefault("rabbitmq.routingPrefix", "ipc.")
	v.SetDefault("rabbitmq.pushQueue", "")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "")
	v.SetDefault("kafka.group", "")
	v.SetDefault("kafka.clientID", "ipc-sync")

	v.SetDefault("websocket.url", "")
	v.SetDefault("websocket.handshakeTimeout", 10*time.Second)
	v.SetDefault("websocket.pingInterval", 30*time.Second)
}

// Load reads configuration from path (or $IPCSYNC_CONFIG when path is empty)
// and the environment. Env var overrides use prefix IPCSYNC_ with dots replaced
// by underscores, e.g. IPCSYNC_NATS_URL. The result is validated.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")

	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

// Validate reports every missing or malformed value, wrapped in ErrConfigurationInvalid.
func (c Config) Validate() error {
	var errs []error

	if c.PushTopic == "" {
		errs = append(errs, errors.New("pushTopic is empty"))
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	switch c.Transport {
	case TransportMemory:
	case TransportNATS:
		if c.NATS.URL == "" {
			errs = append(errs, errors.New("nats.url is required"))
		}
	case TransportRabbitMQ:
		if c.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("rabbitmq.url is required"))
		}
	case TransportWebsocket:
		if c.Websocket.URL == "" {
			errs = append(errs, errors.New("websocket.url is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}

	switch c.Push {
	case "", c.Transport:
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is required"))
		}

		if c.Kafka.Topic == "" {
			errs = append(errs, errors.New("kafka.topic is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("push source %q differs from transport %q", c.Push, c.Transport))
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("config: %w", errors.Join(append([]error{berr.ErrConfigurationInvalid}, errs...)...))
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}

	return l
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logLevel: %w", err)
	}

	return l, nil
}
