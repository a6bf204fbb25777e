package config

import (
	"os"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("TOKEN_ACCESS_SECRET", "access-secret")
	os.Setenv("TOKEN_REFRESH_SECRET", "refresh-secret")
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want default", cfg.RedisAddr)
	}
	if cfg.AccessTTLRaw != "10m" {
		t.Errorf("AccessTTLRaw = %q, want %q", cfg.AccessTTLRaw, "10m")
	}
	if cfg.RefreshTTLRaw != "60m" {
		t.Errorf("RefreshTTLRaw = %q, want %q", cfg.RefreshTTLRaw, "60m")
	}
	if cfg.RefreshCookieName != "refresh_token" {
		t.Errorf("RefreshCookieName = %q, want %q", cfg.RefreshCookieName, "refresh_token")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	setRequired(t)
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("REFRESH_COOKIE_NAME", "rt")
	os.Setenv("BCRYPT_COST", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.RefreshCookieName != "rt" {
		t.Errorf("RefreshCookieName = %q, want %q", cfg.RefreshCookieName, "rt")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
}

func TestLoad_SecretsRequired(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when token secrets are unset")
	}
}

func TestLoad_SecretsMustDiffer(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("TOKEN_ACCESS_SECRET", "same")
	os.Setenv("TOKEN_REFRESH_SECRET", "same")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when both token secrets are identical")
	}
}

func TestLoad_RefreshTTLMustExceedAccessTTL(t *testing.T) {
	os.Clearenv()
	setRequired(t)
	os.Setenv("TOKEN_ACCESS_TTL", "1h")
	os.Setenv("TOKEN_REFRESH_TTL", "30m")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when refresh TTL does not exceed access TTL")
	}
}

func TestLoad_RejectsMalformedTTL(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{"access wrong unit", "TOKEN_ACCESS_TTL", "10minutes"},
		{"access bare number", "TOKEN_ACCESS_TTL", "600"},
		{"access negative", "TOKEN_ACCESS_TTL", "-10m"},
		{"access zero", "TOKEN_ACCESS_TTL", "0"},
		{"refresh wrong unit", "TOKEN_REFRESH_TTL", "1hr"},
		{"refresh negative", "TOKEN_REFRESH_TTL", "-1h"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			setRequired(t)
			os.Setenv(tc.key, tc.value)

			if _, err := Load(); err == nil {
				t.Fatalf("Load should reject %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestLoad_BcryptCostRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false}, // falls back to the default
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			setRequired(t)
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

func TestAccessTTL(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "30m", 30 * time.Minute},
		{"invalid", "invalid", 10 * time.Minute},
		{"zero", "0", 10 * time.Minute},
		{"negative", "-5m", 10 * time.Minute},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{AccessTTLRaw: tc.value}
			if got := cfg.AccessTTL(); got != tc.want {
				t.Errorf("AccessTTL = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRefreshTTL(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "12h", 12 * time.Hour},
		{"invalid", "invalid", 60 * time.Minute},
		{"zero", "0", 60 * time.Minute},
		{"negative", "-1h", 60 * time.Minute},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{RefreshTTLRaw: tc.value}
			if got := cfg.RefreshTTL(); got != tc.want {
				t.Errorf("RefreshTTL = %v, want %v", got, tc.want)
			}
		})
	}
}
