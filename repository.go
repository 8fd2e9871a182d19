package jackalope

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/itempath"
	"github.com/jackalope/jackalope.go/pkg/logger"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
	"github.com/jackalope/jackalope.go/pkg/transport"
	"github.com/jackalope/jackalope.go/pkg/transport/filestore"
	"github.com/jackalope/jackalope.go/pkg/transport/memory"
	"github.com/jackalope/jackalope.go/pkg/transport/sqlite"
	"github.com/jackalope/jackalope.go/pkg/transport/wsrpc"
)

// Descriptor keys reported by Repository.Descriptor.
const (
	DescriptorSpecVersion       = "jcr.specification.version"
	DescriptorSpecName          = "jcr.specification.name"
	DescriptorRepositoryName    = "jcr.repository.name"
	DescriptorRepositoryVersion = "jcr.repository.version"
	DescriptorTransport         = "jackalope.transport"
)

// Repository is the entry point: it holds a transport and opens sessions on it.
type Repository struct {
	transport transport.Transport
	config    *Config
	logger    logger.Logger
}

// New creates a Repository on an existing transport.
func New(cfg *Config, tr transport.Transport) *Repository {
	l := cfg.Logger
	if l == nil {
		l = logger.Nop()
	}
	return &Repository{transport: tr, config: cfg, logger: l}
}

// Connect parses endpoint and opens the transport its scheme names.
//
//	mem://                  in-memory repository
//	sqlite:///var/lib/x.db  SQLite database file
//	file:///srv/content     YAML snapshot directory
//	ws://host:port/rpc      remote repository over websocket
func Connect(ctx context.Context, endpoint string) (*Repository, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	return FromConfig(ctx, NewConfig(u))
}

// FromConfig opens the transport cfg.URL names.
func FromConfig(ctx context.Context, cfg *Config) (*Repository, error) {
	l := cfg.Logger
	if l == nil {
		l = logger.Nop()
	}
	var (
		tr  transport.Transport
		err error
	)
	switch cfg.URL.Scheme {
	case constants.MemoryScheme:
		tr, err = memory.New(memory.WithLogger(l))
	case constants.SQLiteScheme:
		tr, err = sqlite.Open(ctx, localPath(&cfg.URL), sqlite.WithLogger(l))
	case constants.FileScheme:
		tr, err = filestore.Open(ctx, localPath(&cfg.URL), filestore.WithLogger(l))
	case constants.WebsocketScheme, constants.WebsocketSecureScheme:
		u := cfg.URL
		q := u.Query()
		q.Del("workspace")
		u.RawQuery = q.Encode()
		tr, err = wsrpc.Dial(ctx, u.String(), wsrpc.WithLogger(l), wsrpc.WithTimeout(cfg.Timeout))
	default:
		return nil, fmt.Errorf("%w: scheme %q", constants.ErrUnsupportedURL, cfg.URL.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.URL.Redacted(), err)
	}
	l.Debug("repository connected", "url", cfg.URL.Redacted())
	return New(cfg, tr), nil
}

// localPath accepts both sqlite:///abs/path and sqlite://relative/path.
func localPath(u *url.URL) string {
	return filepath.FromSlash(u.Host + u.Path)
}

func (r *Repository) Transport() transport.Transport { return r.transport }

// Login opens a session on workspace, or on the configured default workspace when it is
// empty. A nil creds logs in as guest.
func (r *Repository) Login(ctx context.Context, creds Credentials, workspace string) (*Session, error) {
	if workspace == "" {
		workspace = r.config.Workspace
	}
	if workspace == "" {
		workspace = constants.DefaultWorkspace
	}
	if creds == nil {
		creds = GuestCredentials{}
	}
	if _, err := r.transport.FetchNode(ctx, workspace, itempath.Root); err != nil {
		return nil, fmt.Errorf("%w: login to workspace %q: %w", constants.ErrRepository, workspace, err)
	}

	s := &Session{
		repository:  r,
		credentials: creds,
		namespaces:  newNamespaces(),
		logger:      r.logger,
		live:        true,
	}
	s.workspace = &Workspace{
		name:      workspace,
		session:   s,
		nodeTypes: nodetype.NewManager(r.transport, nodetype.WithLogger(r.logger)),
	}
	s.om = newObjectManager(s, r.transport, workspace, r.logger)
	r.logger.Debug("session opened", "workspace", workspace, "user", s.UserID())
	return s, nil
}

// RegisterNodeTypes stores definitions in the backend, for transports that support it.
// Sessions opened afterwards resolve them lazily.
func (r *Repository) RegisterNodeTypes(ctx context.Context, defs []nodetype.Definition) error {
	reg, ok := r.transport.(transport.NodeTypeRegistrar)
	if !ok {
		return notImplemented("Repository.RegisterNodeTypes")
	}
	return reg.RegisterNodeTypes(ctx, defs)
}

func (r *Repository) DescriptorKeys() []string {
	return []string{DescriptorSpecVersion, DescriptorSpecName, DescriptorRepositoryName, DescriptorRepositoryVersion, DescriptorTransport}
}

// Descriptor returns "" for unknown keys.
func (r *Repository) Descriptor(key string) string {
	switch key {
	case DescriptorSpecVersion:
		return "2.0"
	case DescriptorSpecName:
		return "Content Repository for Java Technology API"
	case DescriptorRepositoryName:
		return "jackalope.go"
	case DescriptorRepositoryVersion:
		return Version
	case DescriptorTransport:
		return r.config.URL.Scheme
	}
	return ""
}

// Close closes the transport. Open sessions become unusable.
func (r *Repository) Close(ctx context.Context) error {
	return r.transport.Close(ctx)
}
