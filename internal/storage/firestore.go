package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/khbm0110/JUUUU/internal/config"
	"github.com/khbm0110/JUUUU/internal/content"
)

const (
	defaultDialTimeout = 10 * time.Second
	envEmulatorHost    = "FIRESTORE_EMULATOR_HOST"
	envGoogleProjectID = "GOOGLE_CLOUD_PROJECT"
)

// ErrProviderClosed is returned after Close.
var ErrProviderClosed = errors.New("firestore: provider is closed")

// contentDoc is the stored shape. The site document is kept as one JSON
// string so its schema can evolve without Firestore field mapping.
type contentDoc struct {
	Payload   string    `firestore:"payload"`
	UpdatedAt time.Time `firestore:"updatedAt,serverTimestamp"`
}

// Firestore stores the document at <collection>/<documentID>. The client is
// created lazily on first use.
type Firestore struct {
	cfg         config.FirestoreConfig
	dialTimeout time.Duration
	clientOpts  []option.ClientOption

	mu     sync.Mutex
	client *firestore.Client
	closed bool
}

// FirestoreOption customises the adapter.
type FirestoreOption func(*Firestore)

// WithDialTimeout overrides the timeout used when creating the client.
func WithDialTimeout(timeout time.Duration) FirestoreOption {
	return func(f *Firestore) {
		if timeout > 0 {
			f.dialTimeout = timeout
		}
	}
}

// WithClientOptions appends client options applied during initialisation.
func WithClientOptions(opts ...option.ClientOption) FirestoreOption {
	return func(f *Firestore) {
		f.clientOpts = append(f.clientOpts, opts...)
	}
}

// NewFirestore constructs the adapter from configuration.
func NewFirestore(cfg config.FirestoreConfig, opts ...FirestoreOption) *Firestore {
	if cfg.Collection == "" {
		cfg.Collection = "site"
	}
	if cfg.DocumentID == "" {
		cfg.DocumentID = "content"
	}
	f := &Firestore{cfg: cfg, dialTimeout: defaultDialTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

func (f *Firestore) doc(ctx context.Context) (*firestore.DocumentRef, error) {
	client, err := f.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(f.cfg.Collection).Doc(f.cfg.DocumentID), nil
}

func (f *Firestore) Load(ctx context.Context) ([]byte, error) {
	ref, err := f.doc(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, content.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore: get %s: %w", ref.Path, err)
	}
	var doc contentDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore: decode %s: %w", ref.Path, err)
	}
	if doc.Payload == "" {
		return nil, content.ErrNotFound
	}
	return []byte(doc.Payload), nil
}

func (f *Firestore) Save(ctx context.Context, payload []byte) error {
	ref, err := f.doc(ctx)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, contentDoc{Payload: string(payload)}); err != nil {
		return fmt.Errorf("firestore: set %s: %w", ref.Path, err)
	}
	return nil
}

// Client returns the lazily initialised Firestore client.
func (f *Firestore) Client(ctx context.Context) (*firestore.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrProviderClosed
	}
	if f.client != nil {
		return f.client, nil
	}
	client, err := f.createClient(ctx)
	if err != nil {
		return nil, err
	}
	f.client = client
	return client, nil
}

func (f *Firestore) createClient(ctx context.Context) (*firestore.Client, error) {
	if f.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.dialTimeout)
		defer cancel()
	}

	projectID := strings.TrimSpace(f.cfg.ProjectID)
	if projectID == "" {
		projectID = strings.TrimSpace(os.Getenv(envGoogleProjectID))
	}
	if projectID == "" {
		return nil, errors.New("firestore: project id is required")
	}

	opts := append([]option.ClientOption(nil), f.clientOpts...)
	if host := f.emulatorHost(); host != "" {
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}
	return client, nil
}

func (f *Firestore) emulatorHost() string {
	if trimmed := strings.TrimSpace(f.cfg.EmulatorHost); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(os.Getenv(envEmulatorHost))
}

// Close releases the client. The adapter cannot be reused afterwards.
func (f *Firestore) Close() error {
	f.mu.Lock()
	client := f.client
	f.client = nil
	f.closed = true
	f.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}
