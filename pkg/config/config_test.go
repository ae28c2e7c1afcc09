package config

import (
	"testing"
)

func validConfig() Config {
	return Config{
		App:  AppConfig{Name: "heatgrid"},
		HTTP: HTTPConfig{Port: 8080},
		Log:  LogConfig{Level: "info"},
		Topology: TopologyConfig{
			QuantizeTolerance: 1e-3,
			DemandAttachment:  "terminal_segment",
			MaxStreets:        1000,
			MaxAssets:         1000,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing app name",
			mutate:  func(c *Config) { c.App.Name = "" },
			wantErr: true,
		},
		{
			name:    "invalid port - zero",
			mutate:  func(c *Config) { c.HTTP.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port - too high",
			mutate:  func(c *Config) { c.HTTP.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Log.Level = "invalid" },
			wantErr: true,
		},
		{
			name:    "empty log level defaults to info",
			mutate:  func(c *Config) { c.Log.Level = "" },
			wantErr: false,
		},
		{
			name:    "zero quantize tolerance",
			mutate:  func(c *Config) { c.Topology.QuantizeTolerance = 0 },
			wantErr: true,
		},
		{
			name:    "unknown demand attachment",
			mutate:  func(c *Config) { c.Topology.DemandAttachment = "nowhere" },
			wantErr: true,
		},
		{
			name:    "service_connection attachment",
			mutate:  func(c *Config) { c.Topology.DemandAttachment = "service_connection" },
			wantErr: false,
		},
		{
			name:    "zero max streets",
			mutate:  func(c *Config) { c.Topology.MaxStreets = 0 },
			wantErr: true,
		},
		{
			name:    "auth enabled without secret",
			mutate:  func(c *Config) { c.Auth.Enabled = true },
			wantErr: true,
		},
		{
			name: "auth enabled with secret",
			mutate: func(c *Config) {
				c.Auth.Enabled = true
				c.Auth.JWTSecret = "secret"
			},
			wantErr: false,
		},
		{
			name:    "api keys enabled without hashes",
			mutate:  func(c *Config) { c.Auth.APIKeysEnable = true },
			wantErr: true,
		},
		{
			name: "api keys enabled with hashes",
			mutate: func(c *Config) {
				c.Auth.APIKeysEnable = true
				c.Auth.APIKeys = map[string]string{"cli-1": "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"dev", true},
		{"production", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsProduction(); got != tt.want {
			t.Errorf("IsProduction() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "testdb",
		Username: "user",
		Password: "pass",
		SSLMode:  "disable",
	}

	expect := "host=localhost port=5432 user=user password=pass dbname=testdb sslmode=disable"
	if dsn := cfg.DSN(); dsn != expect {
		t.Errorf("expected DSN %s, got %s", expect, dsn)
	}
}

func TestCacheConfig_Address(t *testing.T) {
	cfg := CacheConfig{
		Host: "redis.local",
		Port: 6379,
	}

	addr := cfg.Address()
	if addr != "redis.local:6379" {
		t.Errorf("expected 'redis.local:6379', got %s", addr)
	}
}

func TestCORSConfig(t *testing.T) {
	cfg := CORSConfig{
		Enabled:          true,
		AllowedOrigins:   []string{"http://localhost:3000", "https://example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           86400,
	}

	if !cfg.Enabled {
		t.Error("expected CORS to be enabled")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %d", len(cfg.AllowedOrigins))
	}
}
