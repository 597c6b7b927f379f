package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv deja el entorno SMTP/dispatch limpio para el test; t.Setenv con
// valor vacío cuenta como "no seteado" para los overrides.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "LOG_LEVEL", "SERVER_ADDR", "STORAGE_DSN",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS",
		"EMAIL_FROM_NAME", "SMTP_TLS", "SMTP_INSECURE_SKIP_VERIFY",
		"DISPATCH_SEND_DELAY", "DISPATCH_DEFAULT_ACTION",
		"TRIGGER_SECRET", "RATE_ENABLED", "RATE_MAX_REQUESTS", "RATE_WINDOW",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := Load("")
	require.NoError(t, err)

	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, "smtp.gmail.com", c.SMTP.Host)
	require.Equal(t, 465, c.SMTP.Port)
	require.Equal(t, "auto", c.SMTP.TLS)
	require.Equal(t, "Sistema Académico", c.SMTP.FromName)
	require.Equal(t, time.Second, c.Dispatch.SendDelay)
	require.Equal(t, "nuevas_inscripciones", c.Dispatch.DefaultAction)
	require.Equal(t, time.Minute, c.RateWindow())
	require.Equal(t, "smtp.gmail.com:465", c.SMTPAddr())
	require.False(t, c.SMTPConfigured())
}

func TestLoad_MissingFileIsNotError(t *testing.T) {
	clearEnv(t)

	_, err := Load("/tmp/no-existe-este-config.yaml")
	require.NoError(t, err)
}

func TestLoad_YAMLThenEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
smtp:
  host: mail.interno.edu
  port: 587
  username: yaml-user
dispatch:
  send_delay: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("SMTP_USER", "notificaciones@uni.edu")
	t.Setenv("SMTP_PASS", "app-password")
	t.Setenv("SMTP_PORT", "2525")

	c, err := Load(path)
	require.NoError(t, err)

	// El env pisa al YAML; lo no overrideado queda como en el archivo.
	require.Equal(t, "mail.interno.edu", c.SMTP.Host)
	require.Equal(t, 2525, c.SMTP.Port)
	require.Equal(t, "notificaciones@uni.edu", c.SMTP.Username)
	require.Equal(t, "app-password", c.SMTP.Password)
	require.Equal(t, 250*time.Millisecond, c.Dispatch.SendDelay)
	require.True(t, c.SMTPConfigured())
}

func TestLoad_InvalidRateWindow(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_WINDOW", "treinta segundos")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_ProdForcesTLSVerification(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SMTP_INSECURE_SKIP_VERIFY", "true")

	c, err := Load("")
	require.NoError(t, err)
	require.False(t, c.SMTP.InsecureSkipVerify)

	t.Setenv("APP_ENV", "dev")
	c, err = Load("")
	require.NoError(t, err)
	require.True(t, c.SMTP.InsecureSkipVerify)
}

func TestSMTPConfigured_RequiresBothCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMTP_USER", "solo-user@uni.edu")

	c, err := Load("")
	require.NoError(t, err)
	require.False(t, c.SMTPConfigured())
}
