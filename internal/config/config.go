package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "LEFTMOVE_WEB"
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultLocale          = "en"
	defaultReadHeader      = 10 * time.Second
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultRequestTimeout  = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultDeliverTimeout  = 5 * time.Second
	defaultCollection      = "contactMessages"
)

// Sink names accepted in SUBMISSION_SINKS.
const (
	SinkLog       = "log"
	SinkWebhook   = "webhook"
	SinkPubSub    = "pubsub"
	SinkFirestore = "firestore"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Env        string
	Dev        bool
	LogLevel   string
	Server     ServerConfig
	Paths      PathsConfig
	Locale     LocaleConfig
	Session    SessionConfig
	Site       SiteConfig
	Analytics  AnalyticsConfig
	Submission SubmissionConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
}

// PathsConfig locates on-disk resources.
type PathsConfig struct {
	Templates string
	Public    string
	Content   string
	Locales   string
}

// LocaleConfig lists the languages the site is translated into.
type LocaleConfig struct {
	Default   string
	Supported []string
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	SigningKey string
	Secure     bool
}

// SiteConfig holds public URLs.
type SiteConfig struct {
	BaseURL string
}

// AnalyticsConfig holds client instrumentation ids.
type AnalyticsConfig struct {
	GA4MeasurementID string
	GTMContainerID   string
	Debug            bool
}

// SubmissionConfig selects where validated contact submissions go.
type SubmissionConfig struct {
	Sinks               []string
	WebhookURL          string
	ProjectID           string
	PubSubTopic         string
	FirestoreCollection string
	DeliverTimeout      time.Duration
}

// Production reports whether the config targets a production deployment.
func (c Config) Production() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret calls f.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	return slices.Clone(e.fields)
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap injects explicit values keyed like environment variables. They win over
// everything else.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv stops Load from reading the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// keys maps viper keys to the environment variables that feed them, most specific first.
var keys = map[string][]string{
	"env":                             {envPrefix + "_ENV"},
	"dev":                             {envPrefix + "_DEV", "DEV"},
	"log_level":                       {envPrefix + "_LOG_LEVEL", "LOG_LEVEL"},
	"server.port":                     {envPrefix + "_PORT", "PORT"},
	"server.read_header_timeout":      {envPrefix + "_READ_HEADER_TIMEOUT"},
	"server.read_timeout":             {envPrefix + "_READ_TIMEOUT"},
	"server.write_timeout":            {envPrefix + "_WRITE_TIMEOUT"},
	"server.idle_timeout":             {envPrefix + "_IDLE_TIMEOUT"},
	"server.request_timeout":          {envPrefix + "_REQUEST_TIMEOUT"},
	"server.shutdown_timeout":         {envPrefix + "_SHUTDOWN_TIMEOUT"},
	"paths.templates":                 {envPrefix + "_TEMPLATES_DIR"},
	"paths.public":                    {envPrefix + "_PUBLIC_DIR"},
	"paths.content":                   {envPrefix + "_CONTENT_DIR"},
	"paths.locales":                   {envPrefix + "_LOCALES_DIR"},
	"locale.default":                  {envPrefix + "_DEFAULT_LOCALE"},
	"locale.supported":                {envPrefix + "_SUPPORTED_LOCALES"},
	"session.signing_key":             {envPrefix + "_SESSION_SIGNING_KEY"},
	"session.secure":                  {envPrefix + "_SESSION_SECURE"},
	"site.base_url":                   {envPrefix + "_BASE_URL"},
	"analytics.ga4":                   {envPrefix + "_GA_MEASUREMENT_ID"},
	"analytics.gtm":                   {envPrefix + "_GTM_CONTAINER_ID"},
	"analytics.debug":                 {envPrefix + "_ANALYTICS_DEBUG"},
	"submission.sinks":                {envPrefix + "_SUBMISSION_SINKS"},
	"submission.webhook_url":          {envPrefix + "_SUBMISSION_WEBHOOK_URL"},
	"submission.project_id":           {envPrefix + "_GCP_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
	"submission.pubsub_topic":         {envPrefix + "_PUBSUB_TOPIC"},
	"submission.firestore_collection": {envPrefix + "_FIRESTORE_COLLECTION"},
	"submission.deliver_timeout":      {envPrefix + "_SUBMISSION_TIMEOUT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("dev", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("server.port", defaultPort)
	v.SetDefault("server.read_header_timeout", defaultReadHeader)
	v.SetDefault("server.read_timeout", defaultReadTimeout)
	v.SetDefault("server.write_timeout", defaultWriteTimeout)
	v.SetDefault("server.idle_timeout", defaultIdleTimeout)
	v.SetDefault("server.request_timeout", defaultRequestTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("paths.templates", "templates")
	v.SetDefault("paths.public", "public")
	v.SetDefault("paths.content", "content")
	v.SetDefault("paths.locales", "locales")
	v.SetDefault("locale.default", defaultLocale)
	v.SetDefault("locale.supported", "en,fr")
	v.SetDefault("session.secure", false)
	v.SetDefault("submission.sinks", SinkLog)
	v.SetDefault("submission.firestore_collection", defaultCollection)
	v.SetDefault("submission.deliver_timeout", defaultDeliverTimeout)
}

// Load assembles the configuration: defaults < .env file < process env < WithEnvMap values.
// Secret references in SESSION_SIGNING_KEY and SUBMISSION_WEBHOOK_URL are resolved last.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	v := viper.New()
	setDefaults(v)

	dotEnv, err := readDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}
	// .env values replace the defaults; the process env and explicit map still win
	applyEnvValues(dotEnv, v.SetDefault)

	if options.useSystemEnv {
		for key, names := range keys {
			args := append([]string{key}, names...)
			if err := v.BindEnv(args...); err != nil {
				return Config{}, fmt.Errorf("config: bind %s: %w", key, err)
			}
		}
	}
	applyEnvValues(options.envMap, v.Set)

	cfg := Config{
		Env:      strings.TrimSpace(v.GetString("env")),
		Dev:      v.GetBool("dev"),
		LogLevel: strings.TrimSpace(v.GetString("log_level")),
		Server: ServerConfig{
			Port:              strings.TrimSpace(v.GetString("server.port")),
			ReadHeaderTimeout: v.GetDuration("server.read_header_timeout"),
			ReadTimeout:       v.GetDuration("server.read_timeout"),
			WriteTimeout:      v.GetDuration("server.write_timeout"),
			IdleTimeout:       v.GetDuration("server.idle_timeout"),
			RequestTimeout:    v.GetDuration("server.request_timeout"),
			ShutdownTimeout:   v.GetDuration("server.shutdown_timeout"),
		},
		Paths: PathsConfig{
			Templates: v.GetString("paths.templates"),
			Public:    v.GetString("paths.public"),
			Content:   v.GetString("paths.content"),
			Locales:   v.GetString("paths.locales"),
		},
		Locale: LocaleConfig{
			Default:   strings.ToLower(strings.TrimSpace(v.GetString("locale.default"))),
			Supported: lowerAll(splitCSV(v.GetString("locale.supported"))),
		},
		Session: SessionConfig{
			SigningKey: v.GetString("session.signing_key"),
			Secure:     v.GetBool("session.secure"),
		},
		Site: SiteConfig{
			BaseURL: strings.TrimRight(strings.TrimSpace(v.GetString("site.base_url")), "/"),
		},
		Analytics: AnalyticsConfig{
			GA4MeasurementID: v.GetString("analytics.ga4"),
			GTMContainerID:   v.GetString("analytics.gtm"),
			Debug:            v.GetBool("analytics.debug"),
		},
		Submission: SubmissionConfig{
			Sinks:               lowerAll(splitCSV(v.GetString("submission.sinks"))),
			WebhookURL:          strings.TrimSpace(v.GetString("submission.webhook_url")),
			ProjectID:           strings.TrimSpace(v.GetString("submission.project_id")),
			PubSubTopic:         strings.TrimSpace(v.GetString("submission.pubsub_topic")),
			FirestoreCollection: strings.TrimSpace(v.GetString("submission.firestore_collection")),
			DeliverTimeout:      v.GetDuration("submission.deliver_timeout"),
		},
	}

	if cfg.Session.SigningKey, err = resolveSecret(ctx, cfg.Session.SigningKey, options.secret); err != nil {
		return Config{}, err
	}
	if cfg.Submission.WebhookURL, err = resolveSecret(ctx, cfg.Submission.WebhookURL, options.secret); err != nil {
		return Config{}, err
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvValues feeds environment-style keys (LEFTMOVE_WEB_PORT, PORT, ...) into set under
// their viper key. The prefixed name wins when both forms are present.
func applyEnvValues(values map[string]string, set func(string, any)) {
	if len(values) == 0 {
		return
	}
	for key, names := range keys {
		for _, name := range names {
			if value, ok := values[name]; ok {
				set(key, value)
				break
			}
		}
	}
}

// readDotEnv parses a .env file through viper's dotenv codec. A missing file is not an error.
func readDotEnv(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	fv := viper.New()
	fv.SetConfigFile(abs)
	fv.SetConfigType("env")
	if err := fv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", abs, err)
	}
	// viper lower-cases keys read from files
	out := make(map[string]string)
	for _, k := range fv.AllKeys() {
		out[strings.ToUpper(k)] = fv.GetString(k)
	}
	return out, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !IsSecretReference(value) {
		return value, nil
	}
	normalized := NormalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Locale.Default == "" {
		missing = append(missing, "Locale.Default")
	} else if !slices.Contains(cfg.Locale.Supported, cfg.Locale.Default) {
		missing = append(missing, "Locale.Supported")
	}
	if cfg.Production() && strings.TrimSpace(cfg.Session.SigningKey) == "" {
		missing = append(missing, "Session.SigningKey")
	}
	if len(cfg.Submission.Sinks) == 0 {
		missing = append(missing, "Submission.Sinks")
	}
	for _, sink := range cfg.Submission.Sinks {
		switch sink {
		case SinkLog:
		case SinkWebhook:
			if cfg.Submission.WebhookURL == "" {
				missing = append(missing, "Submission.WebhookURL")
			}
		case SinkPubSub:
			if cfg.Submission.ProjectID == "" {
				missing = append(missing, "Submission.ProjectID")
			}
			if cfg.Submission.PubSubTopic == "" {
				missing = append(missing, "Submission.PubSubTopic")
			}
		case SinkFirestore:
			if cfg.Submission.ProjectID == "" {
				missing = append(missing, "Submission.ProjectID")
			}
		default:
			missing = append(missing, fmt.Sprintf("Submission.Sinks[%s]", sink))
		}
	}
	if cfg.Submission.DeliverTimeout <= 0 {
		missing = append(missing, "Submission.DeliverTimeout")
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return &ValidationError{fields: slices.Compact(missing)}
	}
	return nil
}

// IsSecretReference reports whether value points at Secret Manager.
func IsSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

// NormalizeSecretReference rewrites sm:// references to secret://.
func NormalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	for i, s := range in {
		in[i] = strings.ToLower(s)
	}
	return in
}
