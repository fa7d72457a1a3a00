package cfg

import (
	"flag"
	"strings"
	"testing"
	"time"
)

func wantErrContains(t *testing.T, err error, sub string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got <nil>", sub)
	}
	if !strings.Contains(err.Error(), sub) {
		t.Fatalf("error %q does not contain %q", err.Error(), sub)
	}
}

// newTestConfig registers flags on a fresh FlagSet and parses args.
func newTestConfig(t *testing.T, args []string) (App, *flag.FlagSet) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var c App
	Register(fs, &c)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	return c, fs
}

func validConfig(t *testing.T) App {
	t.Helper()
	c, _ := newTestConfig(t, []string{"-s3-bucket", "sites-bucket", "-admin-token", "letmein"})
	return c
}

func TestRegister_Defaults(t *testing.T) {
	c, _ := newTestConfig(t, nil)

	if !c.LogJSON {
		t.Error("LogJSON: want true")
	}
	if c.HTTPPort != 8080 || c.AdminPort != 9000 {
		t.Errorf("ports = %d/%d, want 8080/9000", c.HTTPPort, c.AdminPort)
	}
	if c.SiteID != "default" {
		t.Errorf("SiteID = %q, want default", c.SiteID)
	}
	if c.PreferredVariant != "published" {
		t.Errorf("PreferredVariant = %q, want published", c.PreferredVariant)
	}
	if c.PresignExpiry != 300*time.Second {
		t.Errorf("PresignExpiry = %s, want 5m0s", c.PresignExpiry)
	}
	if c.MockMode {
		t.Error("MockMode: want false")
	}
	if c.DrainDelay != time.Minute {
		t.Errorf("DrainDelay = %s, want 1m0s", c.DrainDelay)
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validConfig(t)); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_MockModeWithoutBucket(t *testing.T) {
	c, _ := newTestConfig(t, []string{"-mock-mode", "-admin-query-param"})
	if err := Validate(c); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*App)
		want   string
	}{
		{"bucket", func(c *App) { c.S3Bucket = "" }, "S3_BUCKET"},
		{"ports equal", func(c *App) { c.AdminPort = c.HTTPPort }, "must differ"},
		{"bad level", func(c *App) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"site id", func(c *App) { c.SiteID = "Acme Bakery" }, "SITE_ID"},
		{"variant", func(c *App) { c.PreferredVariant = "staging" }, "PREFERRED_VARIANT"},
		{"admin gate", func(c *App) { c.AdminToken = "" }, "ADMIN_TOKEN"},
		{"presign", func(c *App) { c.PresignExpiry = 2 * time.Hour }, "PRESIGN_EXPIRY"},
		{"cdn", func(c *App) { c.CDNBase = "cdn.example.com" }, "CDN_BASE"},
		{"tracing", func(c *App) { c.EnableTracing = true }, "OTLP_ENDPOINT"},
		{"trace sample", func(c *App) { c.TraceSample = 1.5 }, "TRACE_SAMPLE"},
		{"pyroscope", func(c *App) { c.EnablePyroscope = true }, "PYRO_SERVER"},
		{"drain", func(c *App) { c.DrainDelay = -time.Second }, "DRAIN_DELAY"},
		{"error links", func(c *App) { c.ErrorLinks = 65 }, "ERROR_LINKS"},
		{"stack level", func(c *App) { c.StackLevel = "always" }, "STACK_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig(t)
			tt.mutate(&c)
			wantErrContains(t, Validate(c), tt.want)
		})
	}
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	c := validConfig(t)
	c.S3Bucket = ""
	c.SiteID = ""
	err := Validate(c)
	wantErrContains(t, err, "S3_BUCKET")
	wantErrContains(t, err, "SITE_ID")
}

func TestFillFromEnv_Precedence(t *testing.T) {
	t.Setenv("SITEBUILDER_SITE_ID", "acme-bakery")
	t.Setenv("SITEBUILDER_HTTP_PORT", "9090")
	t.Setenv("SITEBUILDER_MOCK_MODE", "true")

	c, fs := newTestConfig(t, []string{"-http-port", "8181"})
	var logged []string
	FillFromEnv(fs, EnvPrefix, func(f string, args ...any) { logged = append(logged, f) })

	if c.SiteID != "acme-bakery" {
		t.Errorf("SiteID = %q, want env value", c.SiteID)
	}
	if c.HTTPPort != 8181 {
		t.Errorf("HTTPPort = %d, cli flag should win over env", c.HTTPPort)
	}
	if !c.MockMode {
		t.Error("MockMode should be set from env")
	}
	if len(logged) != 1 {
		t.Errorf("logged %d overrides, want 1", len(logged))
	}
}

func TestFillFromEnv_InvalidValueKeepsDefault(t *testing.T) {
	t.Setenv("SITEBUILDER_PRESIGN_EXPIRY", "soon")

	c, fs := newTestConfig(t, nil)
	FillFromEnv(fs, EnvPrefix, nil)

	if c.PresignExpiry != 300*time.Second {
		t.Fatalf("PresignExpiry = %s, want default kept", c.PresignExpiry)
	}
}
