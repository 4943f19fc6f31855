package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeConfig struct {
	URL     string        `env:"TEST_STORE_URL" envDefault:"http://localhost:8003"`
	Timeout time.Duration `env:"TEST_STORE_TIMEOUT" envDefault:"10s"`
	Brokers []string      `env:"TEST_STORE_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Secret  string        `env:"TEST_STORE_SECRET,required"`
}

func (c *storeConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("TEST_STORE_TIMEOUT must be positive")
	}
	return nil
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, c storeConfig)
	}{
		{
			name: "defaults",
			env:  map[string]string{"TEST_STORE_SECRET": "s"},
			check: func(t *testing.T, c storeConfig) {
				assert.Equal(t, "http://localhost:8003", c.URL)
				assert.Equal(t, 10*time.Second, c.Timeout)
				assert.Equal(t, []string{"localhost:9092"}, c.Brokers)
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"TEST_STORE_SECRET":  "s",
				"TEST_STORE_TIMEOUT": "250ms",
				"TEST_STORE_BROKERS": "k1:9092,k2:9092",
			},
			check: func(t *testing.T, c storeConfig) {
				assert.Equal(t, 250*time.Millisecond, c.Timeout)
				assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Brokers)
			},
		},
		{name: "required missing", wantErr: "parse config"},
		{name: "bad duration", env: map[string]string{"TEST_STORE_SECRET": "s", "TEST_STORE_TIMEOUT": "soon"}, wantErr: "parse config"},
		{name: "validator rejects", env: map[string]string{"TEST_STORE_SECRET": "s", "TEST_STORE_TIMEOUT": "-1s"}, wantErr: "invalid config: TEST_STORE_TIMEOUT must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			var cfg storeConfig
			err := Load(&cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_DOTENV_STORE=from-file\nTEST_DOTENV_PORT=1111\n"), 0o600))
	t.Setenv("TEST_DOTENV_PORT", "2222")
	t.Cleanup(func() { _ = os.Unsetenv("TEST_DOTENV_STORE") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))

	assert.Equal(t, "from-file", os.Getenv("TEST_DOTENV_STORE"))
	assert.Equal(t, "2222", os.Getenv("TEST_DOTENV_PORT"), "the real environment wins")
}
