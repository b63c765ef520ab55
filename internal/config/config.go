package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "SITE_"
	defaultConfigFile = "site.yaml"
	defaultPort       = "8080"
	secretScheme      = "secret://"
)

// Storage drivers understood by storage.Open.
const (
	DriverMemory    = "memory"
	DriverFile      = "file"
	DriverSQLite    = "sqlite"
	DriverFirestore = "firestore"
)

// Relay providers that can serve a form type.
const (
	RelaySMTP       = "smtp"
	RelayWeb3Forms  = "web3forms"
	RelayAppsScript = "appsscript"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Session SessionConfig `koanf:"session"`
	Admin   AdminConfig   `koanf:"admin"`
	Storage StorageConfig `koanf:"storage"`
	Relay   RelayConfig   `koanf:"relay"`
	Locale  LocaleConfig  `koanf:"locale"`
	Log     LogConfig     `koanf:"log"`
	Secrets SecretsConfig `koanf:"secrets"`
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	DevMode         bool          `koanf:"dev_mode"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
}

// SessionConfig controls the admin session cookie.
type SessionConfig struct {
	CookieName  string        `koanf:"cookie_name"`
	HashKey     string        `koanf:"hash_key"`
	BlockKey    string        `koanf:"block_key"`
	Secure      bool          `koanf:"secure"`
	IdleTimeout time.Duration `koanf:"idle_timeout"`
}

// AdminConfig holds the single admin credential.
type AdminConfig struct {
	Email        string `koanf:"email"`
	PasswordHash string `koanf:"password_hash"`
}

// StorageConfig selects and configures the content persistence adapter.
type StorageConfig struct {
	Driver    string          `koanf:"driver"`
	Path      string          `koanf:"path"`
	Watch     bool            `koanf:"watch"`
	Firestore FirestoreConfig `koanf:"firestore"`
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string `koanf:"project_id"`
	EmulatorHost string `koanf:"emulator_host"`
	Collection   string `koanf:"collection"`
	DocumentID   string `koanf:"document_id"`
}

// RelayConfig configures where public form submissions are forwarded.
type RelayConfig struct {
	Contact     string           `koanf:"contact"`
	Appointment string           `koanf:"appointment"`
	Timeout     time.Duration    `koanf:"timeout"`
	SMTP        SMTPConfig       `koanf:"smtp"`
	Web3Forms   Web3FormsConfig  `koanf:"web3forms"`
	AppsScript  AppsScriptConfig `koanf:"appsscript"`
}

// SMTPConfig holds mail server credentials.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	To       string `koanf:"to"`
}

// Web3FormsConfig holds the forms API access key.
type Web3FormsConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
}

// AppsScriptConfig points at a deployed Apps Script web app.
type AppsScriptConfig struct {
	URL string `koanf:"url"`
}

// LocaleConfig lists the default language for visitors without a preference.
type LocaleConfig struct {
	Default string `koanf:"default"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `koanf:"level"`
}

// SecretsConfig controls how secret:// values are resolved.
type SecretsConfig struct {
	ProjectID    string `koanf:"project_id"`
	FallbackFile string `koanf:"fallback_file"`
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":" + defaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			CookieName:  "cabinet_session",
			Secure:      true,
			IdleTimeout: 30 * time.Minute,
		},
		Storage: StorageConfig{
			Driver: DriverFile,
			Path:   "data/site.json",
			Firestore: FirestoreConfig{
				Collection: "site",
				DocumentID: "content",
			},
		},
		Relay: RelayConfig{
			Contact:     RelayWeb3Forms,
			Appointment: RelaySMTP,
			Timeout:     10 * time.Second,
			SMTP:        SMTPConfig{Port: 465},
			Web3Forms:   Web3FormsConfig{Endpoint: "https://api.web3forms.com/submit"},
		},
		Locale:  LocaleConfig{Default: "fr"},
		Log:     LogConfig{Level: "info"},
		Secrets: SecretsConfig{FallbackFile: ".secrets.local"},
	}
}

// Option customises Load.
type Option func(*loadOptions)

type loadOptions struct {
	path           string
	lookup         func(string) (string, bool)
	skipValidation bool
}

// WithPath overrides the YAML file location. An empty path disables the file layer.
func WithPath(path string) Option {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithLookup replaces os.LookupEnv for the legacy variable fallbacks.
func WithLookup(fn func(string) (string, bool)) Option {
	return func(o *loadOptions) {
		if fn != nil {
			o.lookup = fn
		}
	}
}

// WithoutValidation returns the configuration even when server-only fields
// are missing. Offline tools use it to reach the storage settings.
func WithoutValidation() Option {
	return func(o *loadOptions) {
		o.skipValidation = true
	}
}

// Load reads configuration from an optional YAML file, then overlays SITE_*
// environment variables. Nested keys use a double underscore:
// SITE_STORAGE__DRIVER=sqlite sets storage.driver.
func Load(opts ...Option) (*Config, error) {
	o := loadOptions{lookup: os.LookupEnv}
	if p, ok := os.LookupEnv(envPrefix + "CONFIG"); ok {
		o.path = p
	} else {
		o.path = defaultConfigFile
	}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")
	cfg := DefaultConfig()

	if o.path != "" {
		if _, err := os.Stat(o.path); err == nil {
			if err := k.Load(file.Provider(o.path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", o.path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("accessing config %s: %w", o.path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	applyLegacyEnv(cfg, o.lookup)
	cfg.normalise()

	if o.skipValidation {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// applyLegacyEnv honours the variable names used by the serverless mail handlers.
func applyLegacyEnv(cfg *Config, lookup func(string) (string, bool)) {
	fill := func(dst *string, key string) {
		if strings.TrimSpace(*dst) != "" {
			return
		}
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	fill(&cfg.Relay.SMTP.Host, "EMAIL_HOST")
	fill(&cfg.Relay.SMTP.Username, "EMAIL_USER")
	fill(&cfg.Relay.SMTP.Password, "EMAIL_PASS")
	fill(&cfg.Relay.Web3Forms.AccessKey, "WEB3FORMS_ACCESS_KEY")
	fill(&cfg.Relay.AppsScript.URL, "APPS_SCRIPT_URL")
	fill(&cfg.Log.Level, "LOG_LEVEL")
}

func (c *Config) normalise() {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Relay.Contact = strings.ToLower(strings.TrimSpace(c.Relay.Contact))
	c.Relay.Appointment = strings.ToLower(strings.TrimSpace(c.Relay.Appointment))
	c.Locale.Default = strings.ToLower(strings.TrimSpace(c.Locale.Default))
	if c.Relay.SMTP.To == "" {
		c.Relay.SMTP.To = c.Relay.SMTP.Username
	}
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	var missing []string

	if strings.TrimSpace(c.Server.Addr) == "" {
		missing = append(missing, "server.addr")
	}
	if !isSecretRef(c.Session.HashKey) && len(c.Session.HashKey) < 32 {
		missing = append(missing, "session.hash_key")
	}
	if c.Session.BlockKey != "" && !isSecretRef(c.Session.BlockKey) {
		switch len(c.Session.BlockKey) {
		case 16, 24, 32:
		default:
			missing = append(missing, "session.block_key")
		}
	}
	if strings.TrimSpace(c.Admin.Email) == "" {
		missing = append(missing, "admin.email")
	}
	if !isSecretRef(c.Admin.PasswordHash) && !strings.HasPrefix(c.Admin.PasswordHash, "$2") {
		missing = append(missing, "admin.password_hash")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			missing = append(missing, "storage.path")
		}
	case DriverFirestore:
		if c.Storage.Firestore.ProjectID == "" {
			missing = append(missing, "storage.firestore.project_id")
		}
		if c.Storage.Firestore.Collection == "" {
			missing = append(missing, "storage.firestore.collection")
		}
	default:
		missing = append(missing, "storage.driver")
	}

	for key, provider := range map[string]string{"relay.contact": c.Relay.Contact, "relay.appointment": c.Relay.Appointment} {
		switch provider {
		case "", RelaySMTP, RelayWeb3Forms, RelayAppsScript:
		default:
			missing = append(missing, key)
		}
	}

	switch c.Locale.Default {
	case "fr", "en", "ar":
	default:
		missing = append(missing, "locale.default")
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{fields: missing}
	}
	return nil
}

// HasSecretRefs reports whether any credential field holds a secret:// reference.
func (c *Config) HasSecretRefs() bool {
	for _, f := range c.secretFields() {
		if isSecretRef(*f) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces secret:// references in credential fields using
// resolve, then validates the result.
func (c *Config) ResolveSecrets(ctx context.Context, resolve func(context.Context, string) (string, error)) error {
	for _, f := range c.secretFields() {
		if !isSecretRef(*f) {
			continue
		}
		v, err := resolve(ctx, *f)
		if err != nil {
			return err
		}
		*f = v
	}
	if c.Relay.SMTP.To == "" {
		c.Relay.SMTP.To = c.Relay.SMTP.Username
	}
	return c.Validate()
}

func (c *Config) secretFields() []*string {
	return []*string{
		&c.Session.HashKey,
		&c.Session.BlockKey,
		&c.Admin.PasswordHash,
		&c.Relay.SMTP.Username,
		&c.Relay.SMTP.Password,
		&c.Relay.Web3Forms.AccessKey,
		&c.Relay.AppsScript.URL,
	}
}

func isSecretRef(v string) bool {
	return strings.HasPrefix(strings.TrimSpace(v), secretScheme)
}
