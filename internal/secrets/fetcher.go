package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"leftmove.org/leftmove-web/internal/observability"
)

var secretManagerClientFactory = func(ctx context.Context, opts ...option.ClientOption) (secretManagerClient, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// ErrNoProject is returned when a reference names no project and no default is configured.
var ErrNoProject = errors.New("secrets: no project for reference")

// Fetcher resolves secret:// references through Google Secret Manager and caches the
// values for the life of the process.
type Fetcher struct {
	logger     *zap.Logger
	project    string
	clientOpts []option.ClientOption

	clientMu   sync.Mutex
	client     secretManagerClient
	ownsClient bool

	mu    sync.RWMutex
	cache map[string]string
}

type fetcherConfig struct {
	logger     *zap.Logger
	project    string
	client     secretManagerClient
	clientOpts []option.ClientOption
}

// Option customises Fetcher construction.
type Option func(*fetcherConfig)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *fetcherConfig) { cfg.logger = logger }
}

// WithDefaultProject sets the project used for references that do not name one.
func WithDefaultProject(projectID string) Option {
	return func(cfg *fetcherConfig) { cfg.project = strings.TrimSpace(projectID) }
}

// WithSecretManagerClient injects a preconfigured client (primarily for tests).
func WithSecretManagerClient(client secretManagerClient) Option {
	return func(cfg *fetcherConfig) { cfg.client = client }
}

// WithClientOptions forwards Cloud client options when constructing the client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(cfg *fetcherConfig) { cfg.clientOpts = append(cfg.clientOpts, opts...) }
}

// NewFetcher builds a Fetcher. Without an injected client, one is dialled on the first
// Resolve, so configurations without references never need Google credentials.
func NewFetcher(opts ...Option) *Fetcher {
	cfg := fetcherConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return &Fetcher{
		logger:     cfg.logger,
		project:    cfg.project,
		clientOpts: cfg.clientOpts,
		client:     cfg.client,
		cache:      make(map[string]string),
	}
}

// Close releases the client if the fetcher created it.
func (f *Fetcher) Close() error {
	f.clientMu.Lock()
	defer f.clientMu.Unlock()
	if f.ownsClient && f.client != nil {
		err := f.client.Close()
		f.client = nil
		f.ownsClient = false
		return err
	}
	return nil
}

// ResolveSecret satisfies config.SecretResolver.
func (f *Fetcher) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f.Resolve(ctx, ref)
}

// Resolve returns the payload of the secret version named by ref. Accepted forms:
//
//	secret://name
//	secret://name?version=3&project=other
//	secret://projects/<p>/secrets/<name>/versions/<v>
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	parsed, err := parseReference(ref)
	if err != nil {
		return "", err
	}
	project := parsed.Project
	if project == "" {
		project = f.project
	}
	if project == "" {
		return "", fmt.Errorf("%w %s", ErrNoProject, parsed.Secret)
	}
	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, parsed.Secret, parsed.Version)

	if value, ok := f.lookupCache(resource); ok {
		return value, nil
	}

	ctx, span := observability.StartSpan(ctx, "secrets.Resolve", attribute.String("secret.name", parsed.Secret))
	defer span.End()

	client, err := f.ensureClient(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "client")
		return "", fmt.Errorf("secrets: secret manager client: %w", err)
	}
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "access")
		return "", fmt.Errorf("secrets: access %s: %w", parsed.Secret, err)
	}
	if resp == nil || resp.GetPayload() == nil {
		return "", fmt.Errorf("secrets: empty payload for %s", parsed.Secret)
	}
	value := string(resp.GetPayload().GetData())
	f.storeCache(resource, value)
	f.logger.Debug("secrets: resolved", zap.String("secret", parsed.Secret), zap.String("version", parsed.Version))
	return value, nil
}

func (f *Fetcher) ensureClient(ctx context.Context) (secretManagerClient, error) {
	f.clientMu.Lock()
	defer f.clientMu.Unlock()
	if f.client != nil {
		return f.client, nil
	}
	client, err := secretManagerClientFactory(ctx, f.clientOpts...)
	if err != nil {
		return nil, err
	}
	f.client = client
	f.ownsClient = true
	return client, nil
}

func (f *Fetcher) lookupCache(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.cache[key]
	return v, ok
}

func (f *Fetcher) storeCache(key, value string) {
	f.mu.Lock()
	f.cache[key] = value
	f.mu.Unlock()
}

type parsedReference struct {
	Secret  string
	Version string
	Project string
}

func parseReference(ref string) (parsedReference, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return parsedReference{}, errors.New("secrets: empty reference")
	}
	if strings.HasPrefix(ref, "sm://") {
		ref = "secret://" + strings.TrimPrefix(ref, "sm://")
	}
	u, err := url.Parse(ref)
	if err != nil {
		return parsedReference{}, fmt.Errorf("secrets: invalid reference %q: %w", ref, err)
	}
	if u.Scheme != "secret" {
		return parsedReference{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}
	path := strings.Trim(u.Host+u.Path, "/")
	if path == "" {
		return parsedReference{}, fmt.Errorf("secrets: missing secret name in %q", ref)
	}

	out := parsedReference{
		Version: strings.TrimSpace(u.Query().Get("version")),
		Project: strings.TrimSpace(u.Query().Get("project")),
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		out.Secret = parts[0]
	case len(parts) >= 4 && parts[0] == "projects" && parts[2] == "secrets":
		out.Project = parts[1]
		out.Secret = parts[3]
		if len(parts) == 6 && parts[4] == "versions" {
			out.Version = parts[5]
		} else if len(parts) != 4 {
			return parsedReference{}, fmt.Errorf("secrets: malformed resource name in %q", ref)
		}
	default:
		return parsedReference{}, fmt.Errorf("secrets: malformed reference %q", ref)
	}
	if out.Secret == "" {
		return parsedReference{}, fmt.Errorf("secrets: missing secret name in %q", ref)
	}
	if out.Version == "" {
		out.Version = "latest"
	}
	return out, nil
}
