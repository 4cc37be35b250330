package config

import (
	"encoding/base64"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddr     string
	MongoURI       string
	MongoDatabase  string
	SigningKey     []byte
	AllowedOrigins []string
	AiEndpoint     string
	AiApiKey       string
}

// envOverrides are optional HAICHAT_* environment variables that take
// precedence over flag values, useful for containerized deploys.
type envOverrides struct {
	ServerAddr     string   `envconfig:"SERVER_ADDR"`
	MongoURI       string   `envconfig:"MONGO_URI"`
	MongoDatabase  string   `envconfig:"MONGO_DATABASE"`
	SigningKey     string   `envconfig:"SIGNING_KEY"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
	AiEndpoint     string   `envconfig:"AI_ENDPOINT"`
	AiApiKey       string   `envconfig:"AI_API_KEY"`
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, fmt.Errorf("empty signing secret")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, mongoURI, mongoDatabase, base64Secret string, allowedOrigins []string) (*Config, error) {
	var env envOverrides
	if err := envconfig.Process("haichat", &env); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if env.ServerAddr != "" {
		serverAddr = env.ServerAddr
	}
	if env.MongoURI != "" {
		mongoURI = env.MongoURI
	}
	if env.MongoDatabase != "" {
		mongoDatabase = env.MongoDatabase
	}
	if env.SigningKey != "" {
		base64Secret = env.SigningKey
	}
	if len(env.AllowedOrigins) > 0 {
		allowedOrigins = env.AllowedOrigins
	}

	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if mongoURI == "" {
		return nil, fmt.Errorf("mongo URI cannot be empty")
	}
	if mongoDatabase == "" {
		return nil, fmt.Errorf("mongo database cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		MongoURI:       mongoURI,
		MongoDatabase:  mongoDatabase,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		AiEndpoint:     env.AiEndpoint,
		AiApiKey:       env.AiApiKey,
	}, nil
}
