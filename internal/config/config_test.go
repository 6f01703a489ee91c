package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":3000")
	}
	if cfg.UpstreamBaseURL != "https://mis.fly.dev/api/v1" {
		t.Errorf("UpstreamBaseURL = %q, want default", cfg.UpstreamBaseURL)
	}
	if cfg.TokenStore != TokenStoreMemory {
		t.Errorf("TokenStore = %q, want %q", cfg.TokenStore, TokenStoreMemory)
	}
	if cfg.RoutePolicy != RoutePolicyBuiltin {
		t.Errorf("RoutePolicy = %q, want %q", cfg.RoutePolicy, RoutePolicyBuiltin)
	}
	if !cfg.SerializeSessionWrites {
		t.Error("SerializeSessionWrites should default to true")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.Secure() {
		t.Error("Secure should be false outside production")
	}
	if cfg.HealthGRPCAddr != "" {
		t.Errorf("HealthGRPCAddr = %q, want empty", cfg.HealthGRPCAddr)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("UPSTREAM_BASE_URL", "http://localhost:4000/api/v1/")
	os.Setenv("APP_ENV", "production")
	os.Setenv("SESSION_SERIALIZE_WRITES", "false")
	os.Setenv("ROUTE_POLICY", "OPA")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.UpstreamBaseURL != "http://localhost:4000/api/v1" {
		t.Errorf("UpstreamBaseURL = %q, want trailing slash trimmed", cfg.UpstreamBaseURL)
	}
	if !cfg.Secure() {
		t.Error("Secure should be true when APP_ENV=production")
	}
	if cfg.SerializeSessionWrites {
		t.Error("SerializeSessionWrites should be false")
	}
	if cfg.RoutePolicy != RoutePolicyOPA {
		t.Errorf("RoutePolicy = %q, want %q", cfg.RoutePolicy, RoutePolicyOPA)
	}
}

func TestLoad_InvalidUpstream(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{"relative", "/api/v1"},
		{"ftp", "ftp://example.com"},
		{"no host", "https://"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("UPSTREAM_BASE_URL", tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load with UPSTREAM_BASE_URL=%q should fail", tc.value)
			}
		})
	}
}

func TestLoad_TokenStore(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		want string
		err  bool
	}{
		{"memory", map[string]string{"TOKEN_STORE": "memory"}, TokenStoreMemory, false},
		{"sqlite", map[string]string{"TOKEN_STORE": "sqlite"}, TokenStoreSQLite, false},
		{"redis without addr", map[string]string{"TOKEN_STORE": "redis"}, "", true},
		{"redis", map[string]string{"TOKEN_STORE": "redis", "REDIS_ADDR": "localhost:6379"}, TokenStoreRedis, false},
		{"postgres without dsn", map[string]string{"TOKEN_STORE": "postgres"}, "", true},
		{"postgres", map[string]string{"TOKEN_STORE": "Postgres", "DATABASE_URL": "postgres://localhost/mis"}, TokenStorePostgres, false},
		{"unknown", map[string]string{"TOKEN_STORE": "etcd"}, "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tc.env {
				os.Setenv(k, v)
			}
			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.TokenStore != tc.want {
				t.Errorf("TokenStore = %q, want %q", cfg.TokenStore, tc.want)
			}
		})
	}
}

func TestLoad_RoutePolicyInvalid(t *testing.T) {
	os.Clearenv()
	os.Setenv("ROUTE_POLICY", "casbin")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should reject unknown ROUTE_POLICY")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestUpstreamTimeoutDuration(t *testing.T) {
	testCases := []struct {
		value string
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"invalid", 15 * time.Second},
		{"0", 15 * time.Second},
		{"-1s", 15 * time.Second},
	}
	for _, tc := range testCases {
		t.Run(tc.value, func(t *testing.T) {
			cfg := &Config{UpstreamTimeout: tc.value}
			if got := cfg.UpstreamTimeoutDuration(); got != tc.want {
				t.Errorf("UpstreamTimeoutDuration = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTokenStoreTTLDuration(t *testing.T) {
	cfg := &Config{TokenStoreTTL: "48h"}
	if got := cfg.TokenStoreTTLDuration(); got != 48*time.Hour {
		t.Errorf("TokenStoreTTLDuration = %v, want 48h", got)
	}
	cfg.TokenStoreTTL = ""
	if got := cfg.TokenStoreTTLDuration(); got != 720*time.Hour {
		t.Errorf("TokenStoreTTLDuration = %v, want 720h default", got)
	}
}
