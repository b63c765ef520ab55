// Package secrets resolves secret://NAME[?version=V&project=P] references in
// configuration through Google Secret Manager, with a local KEY=VALUE file as
// fallback for development.
package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Scheme prefixes a secret reference.
const Scheme = "secret://"

const defaultFallbackPath = ".secrets.local"

// IsReference reports whether value is a secret:// reference.
func IsReference(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), Scheme)
}

type accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves and caches secret references.
type Fetcher struct {
	client     accessor
	ownsClient bool
	project    string
	logger     *zap.Logger

	fallbackPath string
	fallbackOnce sync.Once
	fallback     map[string]string

	mu    sync.RWMutex
	cache map[string]string

	latency metric.Float64Histogram
}

type options struct {
	logger       *zap.Logger
	project      string
	fallbackPath string
	client       accessor
	clientOpts   []option.ClientOption
}

// Option customises NewFetcher.
type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithProject sets the project used when a reference names none.
func WithProject(id string) Option {
	return func(o *options) { o.project = strings.TrimSpace(id) }
}

// WithFallbackFile overrides the local fallback file. An empty path disables it.
func WithFallbackFile(path string) Option {
	return func(o *options) { o.fallbackPath = strings.TrimSpace(path) }
}

// WithClientOptions forwards options to the Secret Manager client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

func withClient(c accessor) Option {
	return func(o *options) { o.client = c }
}

// NewFetcher builds a Fetcher. When no Secret Manager client can be created
// it runs on the fallback file alone.
func NewFetcher(ctx context.Context, opts ...Option) *Fetcher {
	o := options{logger: zap.NewNop(), fallbackPath: defaultFallbackPath}
	for _, opt := range opts {
		opt(&o)
	}
	f := &Fetcher{
		client:       o.client,
		project:      o.project,
		logger:       o.logger,
		fallbackPath: o.fallbackPath,
		cache:        map[string]string{},
	}
	if h, err := otel.Meter("github.com/khbm0110/JUUUU/internal/secrets").Float64Histogram(
		"secrets.fetch.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency of secret fetches"),
	); err == nil {
		f.latency = h
	}
	if f.client == nil && f.project != "" {
		client, err := secretmanager.NewClient(ctx, o.clientOpts...)
		if err != nil {
			f.logger.Warn("secret manager unavailable, using fallback file", zap.Error(err))
		} else {
			f.client = client
			f.ownsClient = true
		}
	}
	return f
}

// Close releases the Secret Manager client.
func (f *Fetcher) Close() error {
	if f.ownsClient && f.client != nil {
		return f.client.Close()
	}
	return nil
}

// Resolve returns the value behind ref. Plain values are returned unchanged.
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	if !IsReference(ref) {
		return ref, nil
	}
	start := time.Now()
	parsed, err := parse(ref)
	if err != nil {
		return "", err
	}
	key := parsed.name + "#" + parsed.version

	f.mu.RLock()
	v, ok := f.cache[key]
	f.mu.RUnlock()
	if ok {
		f.record(ctx, start, "cache")
		return v, nil
	}

	project := parsed.project
	if project == "" {
		project = f.project
	}
	if f.client != nil && project != "" {
		name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, parsed.name, parsed.version)
		resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
		switch {
		case err == nil && resp.GetPayload() != nil:
			v = string(resp.GetPayload().GetData())
			f.store(key, v)
			f.record(ctx, start, "remote")
			return v, nil
		case err == nil:
			return "", fmt.Errorf("secrets: empty payload for %s", name)
		case !fallbackAllowed(err):
			f.record(ctx, start, "error")
			return "", fmt.Errorf("secrets: fetch %s: %w", parsed.name, err)
		}
		f.logger.Debug("secret manager fetch failed, trying fallback", zap.String("secret", parsed.name), zap.Error(err))
	}

	f.fallbackOnce.Do(f.loadFallback)
	if v, ok := f.fallback[parsed.name]; ok {
		f.store(key, v)
		f.record(ctx, start, "fallback")
		return v, nil
	}
	f.record(ctx, start, "error")
	return "", fmt.Errorf("secrets: %s not found", parsed.name)
}

func (f *Fetcher) store(key, value string) {
	f.mu.Lock()
	f.cache[key] = value
	f.mu.Unlock()
}

func (f *Fetcher) record(ctx context.Context, start time.Time, source string) {
	if f.latency == nil {
		return
	}
	f.latency.Record(ctx, float64(time.Since(start))/float64(time.Millisecond),
		metric.WithAttributes(attribute.String("source", source)))
}

func (f *Fetcher) loadFallback() {
	f.fallback = map[string]string{}
	if f.fallbackPath == "" {
		return
	}
	file, err := os.Open(f.fallbackPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("open secrets fallback", zap.String("path", f.fallbackPath), zap.Error(err))
		}
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimPrefix(strings.TrimSpace(key), Scheme)
		f.fallback[key] = strings.TrimSpace(value)
	}
}

// fallbackAllowed is true for errors that mean Secret Manager is unreachable
// or unusable here, as opposed to a missing secret.
func fallbackAllowed(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.PermissionDenied, codes.Unauthenticated, codes.DeadlineExceeded:
		return true
	}
	return false
}

type reference struct {
	name    string
	version string
	project string
}

func parse(ref string) (reference, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return reference{}, fmt.Errorf("secrets: invalid reference %q: %w", ref, err)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" {
		return reference{}, fmt.Errorf("secrets: missing secret name in %q", ref)
	}
	version := strings.TrimSpace(u.Query().Get("version"))
	if version == "" {
		version = "latest"
	}
	return reference{name: name, version: version, project: strings.TrimSpace(u.Query().Get("project"))}, nil
}
