package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 {
		t.Errorf("database defaults wrong: %+v", cfg.Database)
	}
	if cfg.Generator.Provider != "gemini" {
		t.Errorf("provider = %q, want gemini", cfg.Generator.Provider)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORYQUIZ_PORT", "9090")
	t.Setenv("STORYQUIZ_DATABASE_HOST", "db.internal")
	t.Setenv("STORYQUIZ_GENERATOR_PROVIDER", "mock")
	t.Setenv("STORYQUIZ_JWT_SIGNING_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("database host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.Generator.Provider != "mock" {
		t.Errorf("provider = %q, want mock", cfg.Generator.Provider)
	}
	if cfg.JWTSigningKey != "test-key" {
		t.Errorf("jwt key = %q, want test-key", cfg.JWTSigningKey)
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=h port=5433 user=u password=p dbname=n sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}
