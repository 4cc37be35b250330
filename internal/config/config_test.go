package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	var (
		addr = "localhost:8080"
		uri  = "mongodb://localhost:27017"
		db   = "haichat"
		key  = "c29tZV9zZWNyZXQ="
		orig = []string{"http://localhost:3000"}
	)

	tcases := []struct {
		name string
		addr string
		uri  string
		db   string
		key  string
		orig []string
		err  bool
	}{
		{
			name: "valid config",
			addr: addr,
			uri:  uri,
			db:   db,
			key:  key,
			orig: orig,
			err:  false,
		},
		{
			name: "empty address",
			addr: "",
			uri:  uri,
			db:   db,
			key:  key,
			orig: orig,
			err:  true,
		},
		{
			name: "empty mongo URI",
			addr: addr,
			uri:  "",
			db:   db,
			key:  key,
			orig: orig,
			err:  true,
		},
		{
			name: "empty database name",
			addr: addr,
			uri:  uri,
			db:   "",
			key:  key,
			orig: orig,
			err:  true,
		},
		{
			name: "empty signing key",
			addr: addr,
			uri:  uri,
			db:   db,
			key:  "",
			orig: orig,
			err:  true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			config, err := NewConfig(tc.addr, tc.uri, tc.db, tc.key, tc.orig)
			if tc.err {
				assert.Error(t, err, "expected error for config: %s", tc.name)
				return
			}
			assert.NoError(t, err, "expected no error for config: %s", tc.name)

			assert.Equal(t, tc.addr, config.ServerAddr, "expected server address to match")
			assert.Equal(t, tc.uri, config.MongoURI, "expected mongo URI to match")
			assert.Equal(t, tc.db, config.MongoDatabase, "expected database name to match")
			assert.Equal(t, tc.orig, config.AllowedOrigins, "expected allowed origins to match")
			assert.NotEmpty(t, config.SigningKey, "expected signing key to be decoded and not empty")
		})
	}
}

func TestNewConfigEnvOverrides(t *testing.T) {
	t.Setenv("HAICHAT_SERVER_ADDR", "0.0.0.0:9000")
	t.Setenv("HAICHAT_MONGO_DATABASE", "haichat_env")
	t.Setenv("HAICHAT_AI_API_KEY", "env-key")

	config, err := NewConfig("localhost:8080", "mongodb://localhost:27017", "haichat",
		"c29tZV9zZWNyZXQ=", []string{"http://localhost:3000"})
	assert.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", config.ServerAddr, "expected env to override flag value")
	assert.Equal(t, "haichat_env", config.MongoDatabase, "expected env to override database name")
	assert.Equal(t, "mongodb://localhost:27017", config.MongoURI, "expected unset env to keep flag value")
	assert.Equal(t, "env-key", config.AiApiKey, "expected ai key from environment")
}

func Test_decodeSigningSecret(t *testing.T) {
	tcases := []struct {
		name         string
		base64Secret string
		expectedKey  []byte
		expectError  bool
	}{
		{
			name:         "valid base64 secret",
			base64Secret: "c29tZV9zZWNyZXQ=",
			expectedKey:  []byte("some_secret"),
			expectError:  false,
		},
		{
			name:         "invalid base64 secret",
			base64Secret: "invalid_base64",
			expectedKey:  nil,
			expectError:  true,
		},
		{
			name:         "empty base64 secret",
			base64Secret: "",
			expectedKey:  nil,
			expectError:  true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := decodeSigningSecret(tc.base64Secret)
			if tc.expectError {
				assert.Error(t, err, "expected error for base64 secret: %s", tc.base64Secret)
			} else {
				assert.NoError(t, err, "expected no error for base64 secret: %s", tc.base64Secret)
				assert.Equal(t, tc.expectedKey, key, "expected decoded key to match for base64 secret: %s", tc.base64Secret)
			}
		})
	}
}
