package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Delivery channels understood by SMS_CHANNEL.
const (
	DeliveryChannelInfobip = "infobip"
	DeliveryChannelSMTP    = "smtp"
	DeliveryChannelLog     = "log"
)

// Storage drivers understood by STORAGE_DRIVER.
const (
	StorageDriverMongo  = "mongo"
	StorageDriverMemory = "memory"
)

// AccountServiceConfig holds every setting of the account service.
type AccountServiceConfig struct {
	ServiceName   string         `env:"SERVICE_NAME"   envDefault:"account-service"`
	StorageDriver string         `env:"STORAGE_DRIVER" envDefault:"mongo"`
	HTTP          HTTPConfig     `envPrefix:"HTTP_"`
	GRPC          GRPCConfig     `envPrefix:"GRPC_"`
	Mongo         MongoConfig    `envPrefix:"MONGO_"`
	Token         TokenConfig
	Delivery      DeliveryConfig `envPrefix:"SMS_"`
	Consul        ConsulConfig   `envPrefix:"CONSUL_"`
	Log           LogConfig      `envPrefix:"LOG_"`
}

type HTTPConfig struct {
	Host            string        `env:"HOST"             envDefault:"0.0.0.0"`
	Port            int           `env:"PORT"             envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"     envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"    envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS"     envDefault:"*"`
}

// Address returns the host:port pair for the HTTP server to bind to.
func (c HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type GRPCConfig struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"9090"`
}

// Address returns the host:port pair for the gRPC health server.
func (c GRPCConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type MongoConfig struct {
	URI              string        `env:"URI"               envDefault:"mongodb://localhost:27017"`
	Database         string        `env:"DATABASE"          envDefault:"phone_auth"`
	OperationTimeout time.Duration `env:"OPERATION_TIMEOUT" envDefault:"5s"`
}

// TokenConfig holds the secrets used for session tokens. Both secrets are mandatory.
// ExpiresIn of zero issues tokens without an exp claim; they stay valid until the next login.
type TokenConfig struct {
	EncryptionKey string        `env:"ENCRYPTION_KEY"`
	SecretKey     string        `env:"JWT_SECRET_KEY"`
	Issuer        string        `env:"JWT_ISSUER"               envDefault:"phone-auth-api"`
	Audience      string        `env:"JWT_AUDIENCE"             envDefault:"phone-auth-api"`
	ExpiresIn     time.Duration `env:"SESSION_TOKEN_EXPIRES_IN" envDefault:"0s"`
}

// DeliveryConfig selects the OTP delivery channel. Timeout is read from the same SMS_TIMEOUT
// variable as the Infobip client and bounds a whole send on every channel.
type DeliveryConfig struct {
	Channel string        `env:"CHANNEL" envDefault:"infobip"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type ConsulConfig struct {
	Address        string `env:"ADDRESS"`
	ServiceAddress string `env:"SERVICE_ADDRESS"`
}

type LogConfig struct {
	Level  string `env:"LEVEL"  envDefault:"info"`
	Pretty bool   `env:"PRETTY" envDefault:"false"`
}

// NewAccountServiceConfig parses the configuration from environment variables.
// Any invalid or missing mandatory setting terminates the process.
func NewAccountServiceConfig(logger *zerolog.Logger) *AccountServiceConfig {
	cfg, err := Parse()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load account service configuration")
	}

	return cfg
}

// Parse reads and validates the configuration from environment variables.
func Parse() (*AccountServiceConfig, error) {
	cfg, err := env.ParseAs[AccountServiceConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks if the configuration is valid.
func (c *AccountServiceConfig) validate() error {
	if c.Token.EncryptionKey == "" {
		return fmt.Errorf("missing ENCRYPTION_KEY environment variable")
	}
	if c.Token.SecretKey == "" {
		return fmt.Errorf("missing JWT_SECRET_KEY environment variable")
	}
	if c.Token.ExpiresIn < 0 {
		return fmt.Errorf("SESSION_TOKEN_EXPIRES_IN must not be negative")
	}

	switch c.StorageDriver {
	case StorageDriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("missing MONGO_URI environment variable")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("missing MONGO_DATABASE environment variable")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.Delivery.Channel {
	case DeliveryChannelInfobip, DeliveryChannelSMTP, DeliveryChannelLog:
	default:
		return fmt.Errorf("unsupported SMS_CHANNEL %q", c.Delivery.Channel)
	}
	if c.Delivery.Timeout <= 0 {
		return fmt.Errorf("SMS_TIMEOUT must be positive")
	}

	if c.HTTP.Port <= 0 {
		return fmt.Errorf("HTTP_PORT must be positive")
	}

	return nil
}
