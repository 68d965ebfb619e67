package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	testCases := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		expected     string
	}{
		{
			name:         "should return env value when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "from_env",
			expected:     "from_env",
		},
		{
			name:         "should return default when env not set",
			key:          "MISSING_KEY",
			defaultValue: "default_value",
			envValue:     "",
			expected:     "default_value",
		},
		{
			name:         "should return empty string default",
			key:          "EMPTY_KEY",
			defaultValue: "",
			envValue:     "",
			expected:     "",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			result := GetEnvWithDefault(tt.key, tt.defaultValue)

			if result != tt.expected {
				t.Errorf("GetEnvWithDefault() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	setTestEnv := func() {
		os.Setenv("APP_PORT", "9000")
		os.Setenv("APP_HOST", "0.0.0.0")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("DB_DRIVER", "sqlite")
	}

	cleanupTestEnv := func() {
		vars := []string{
			"APP_PORT", "APP_HOST", "LOG_LEVEL", "DB_DRIVER", "DATABASE_URL",
			"OAUTH_ACCESS_TOKEN_LIFETIME_MIN", "OAUTH_PREFIX",
		}
		for _, v := range vars {
			os.Unsetenv(v)
		}
	}

	t.Run("successful config load with all env vars", func(t *testing.T) {
		setTestEnv()
		defer cleanupTestEnv()

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() returned error: %v", err)
		}
		if cfg.Port != 9000 {
			t.Errorf("Port = %d, expected 9000", cfg.Port)
		}
		if cfg.Host != "0.0.0.0" {
			t.Errorf("Host = %s, expected 0.0.0.0", cfg.Host)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %s, expected debug", cfg.LogLevel)
		}
	})

	t.Run("should fail with invalid port", func(t *testing.T) {
		cleanupTestEnv()
		os.Setenv("APP_PORT", "not_a_number")
		defer cleanupTestEnv()

		cfg, err := LoadConfig()
		if err == nil {
			t.Error("LoadConfig() should return error when APP_PORT is invalid")
		}
		if cfg != nil {
			t.Error("Config should be nil when error occurs")
		}
	})

	t.Run("should fail without DATABASE_URL for non-sqlite driver", func(t *testing.T) {
		cleanupTestEnv()
		os.Setenv("DB_DRIVER", "postgres")
		defer cleanupTestEnv()

		_, err := LoadConfig()
		if err == nil {
			t.Error("LoadConfig() should return error when DATABASE_URL is missing for postgres")
		}
	})

	t.Run("should use defaults when optional env vars not set", func(t *testing.T) {
		cleanupTestEnv()
		defer cleanupTestEnv()

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() returned unexpected error: %v", err)
		}
		if cfg.Port != 8080 {
			t.Errorf("Port = %d, expected default 8080", cfg.Port)
		}
		if cfg.Host != "localhost" {
			t.Errorf("Host = %s, expected default localhost", cfg.Host)
		}
		if cfg.Prefix != "/oauth" {
			t.Errorf("Prefix = %s, expected default /oauth", cfg.Prefix)
		}
		if cfg.AccessTokenLifetime != 60*time.Minute {
			t.Errorf("AccessTokenLifetime = %v, expected 60m", cfg.AccessTokenLifetime)
		}
		if cfg.PruneRevokedAfterDays != 7 {
			t.Errorf("PruneRevokedAfterDays = %d, expected 7", cfg.PruneRevokedAfterDays)
		}
	})
}

func BenchmarkGetEnvWithDefault(b *testing.B) {
	os.Setenv("BENCH_KEY", "test_value")
	defer os.Unsetenv("BENCH_KEY")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GetEnvWithDefault("BENCH_KEY", "default")
	}
}
