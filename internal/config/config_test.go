package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z9cFIU7D3i1Hbjg5S8Z9VtKu"

func noLegacy(string) (string, bool) { return "", false }

func baseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SITE_SESSION__HASH_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("SITE_ADMIN__EMAIL", "admin@example.com")
	t.Setenv("SITE_ADMIN__PASSWORD_HASH", testHash)
}

func TestLoadDefaults(t *testing.T) {
	baseEnv(t)

	cfg, err := Load(WithPath(""), WithLookup(noLegacy))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, DriverFile, cfg.Storage.Driver)
	require.Equal(t, "data/site.json", cfg.Storage.Path)
	require.Equal(t, 465, cfg.Relay.SMTP.Port)
	require.Equal(t, "https://api.web3forms.com/submit", cfg.Relay.Web3Forms.Endpoint)
	require.Equal(t, "fr", cfg.Locale.Default)
	require.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
}

func TestLoadFileThenEnvOverlay(t *testing.T) {
	baseEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	yaml := []byte(`
server:
  addr: ":9000"
  read_timeout: 5s
storage:
  driver: sqlite
  path: /var/lib/site.db
relay:
  contact: smtp
locale:
  default: en
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))
	t.Setenv("SITE_SERVER__ADDR", ":9100")
	t.Setenv("SITE_LOG__LEVEL", "debug")

	cfg, err := Load(WithPath(path), WithLookup(noLegacy))
	require.NoError(t, err)

	require.Equal(t, ":9100", cfg.Server.Addr)
	require.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, DriverSQLite, cfg.Storage.Driver)
	require.Equal(t, "/var/lib/site.db", cfg.Storage.Path)
	require.Equal(t, RelaySMTP, cfg.Relay.Contact)
	require.Equal(t, "en", cfg.Locale.Default)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadLegacyMailVariables(t *testing.T) {
	baseEnv(t)
	legacy := map[string]string{
		"EMAIL_HOST":           "smtp.example.com",
		"EMAIL_USER":           "office@example.com",
		"EMAIL_PASS":           "secret",
		"WEB3FORMS_ACCESS_KEY": "key-123",
	}
	lookup := func(key string) (string, bool) {
		v, ok := legacy[key]
		return v, ok
	}

	cfg, err := Load(WithPath(""), WithLookup(lookup))
	require.NoError(t, err)

	require.Equal(t, "smtp.example.com", cfg.Relay.SMTP.Host)
	require.Equal(t, "office@example.com", cfg.Relay.SMTP.Username)
	require.Equal(t, "office@example.com", cfg.Relay.SMTP.To)
	require.Equal(t, "secret", cfg.Relay.SMTP.Password)
	require.Equal(t, "key-123", cfg.Relay.Web3Forms.AccessKey)
}

func TestLoadPrefersExplicitOverLegacy(t *testing.T) {
	baseEnv(t)
	t.Setenv("SITE_RELAY__SMTP__HOST", "mail.internal")
	lookup := func(key string) (string, bool) {
		if key == "EMAIL_HOST" {
			return "smtp.example.com", true
		}
		return "", false
	}

	cfg, err := Load(WithPath(""), WithLookup(lookup))
	require.NoError(t, err)
	require.Equal(t, "mail.internal", cfg.Relay.SMTP.Host)
}

func TestValidateReportsFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Driver = "postgres"
	cfg.Locale.Default = "de"
	cfg.Relay.Contact = "fax"

	err := cfg.Validate()
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, []string{
		"admin.email",
		"admin.password_hash",
		"locale.default",
		"relay.contact",
		"session.hash_key",
		"storage.driver",
	}, vErr.Fields())
}

func TestValidateFirestoreRequiresProject(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.HashKey = "0123456789abcdef0123456789abcdef"
	cfg.Admin.Email = "admin@example.com"
	cfg.Admin.PasswordHash = testHash
	cfg.Storage.Driver = DriverFirestore

	err := cfg.Validate()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, []string{"storage.firestore.project_id"}, vErr.Fields())

	cfg.Storage.Firestore.ProjectID = "cabinet-prod"
	require.NoError(t, cfg.Validate())
}

func TestLoadWithoutValidation(t *testing.T) {
	t.Setenv("SITE_STORAGE__DRIVER", "sqlite")
	t.Setenv("SITE_STORAGE__PATH", "/tmp/site.db")

	_, err := Load(WithPath(""), WithLookup(noLegacy))
	require.Error(t, err)

	cfg, err := Load(WithPath(""), WithLookup(noLegacy), WithoutValidation())
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, cfg.Storage.Driver)
	require.Equal(t, "/tmp/site.db", cfg.Storage.Path)
}

func TestResolveSecrets(t *testing.T) {
	t.Setenv("SITE_SESSION__HASH_KEY", "secret://session-hash")
	t.Setenv("SITE_ADMIN__EMAIL", "admin@example.com")
	t.Setenv("SITE_ADMIN__PASSWORD_HASH", "secret://admin-hash")
	t.Setenv("SITE_RELAY__SMTP__PASSWORD", "secret://smtp-pass?version=3")

	cfg, err := Load(WithPath(""), WithLookup(noLegacy))
	require.NoError(t, err)
	require.True(t, cfg.HasSecretRefs())

	values := map[string]string{
		"secret://session-hash":        "0123456789abcdef0123456789abcdef",
		"secret://admin-hash":          testHash,
		"secret://smtp-pass?version=3": "hunter2",
	}
	err = cfg.ResolveSecrets(context.Background(), func(_ context.Context, ref string) (string, error) {
		v, ok := values[ref]
		if !ok {
			return "", errors.New("unknown " + ref)
		}
		return v, nil
	})
	require.NoError(t, err)
	require.False(t, cfg.HasSecretRefs())
	require.Equal(t, testHash, cfg.Admin.PasswordHash)
	require.Equal(t, "hunter2", cfg.Relay.SMTP.Password)
}

func TestResolveSecretsRevalidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.HashKey = "secret://short"
	cfg.Admin.Email = "admin@example.com"
	cfg.Admin.PasswordHash = testHash
	require.NoError(t, cfg.Validate())

	err := cfg.ResolveSecrets(context.Background(), func(context.Context, string) (string, error) {
		return "too-short", nil
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, []string{"session.hash_key"}, vErr.Fields())
}
