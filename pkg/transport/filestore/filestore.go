// Package filestore keeps each workspace as a YAML snapshot in a directory. Processes
// sharing the directory serialize on a lock file; snapshots are replaced by rename, so a
// reader never sees a partial write.
//
// Layout:
//
//	<dir>/.lock
//	<dir>/workspaces/<workspace>.yaml
//	<dir>/nodetypes/*.yaml, *.xml    definitions loaded on Open
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/logger"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
	"github.com/jackalope/jackalope.go/pkg/transport"
	"github.com/jackalope/jackalope.go/pkg/transport/memory"
)

const (
	lockRetryDelay     = 100 * time.Millisecond
	defaultLockTimeout = 3 * time.Second
	snapshotVersion    = "1"
	registeredFile     = "registered.yaml"
)

type Option func(t *Transport)

func WithLogger(l logger.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

// WithLockTimeout bounds how long an operation waits for the directory lock.
func WithLockTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.lockTimeout = d
	}
}

type snapshot struct {
	Version   string        `yaml:"version"`
	Workspace string        `yaml:"workspace"`
	UpdatedAt time.Time     `yaml:"updatedAt"`
	Nodes     []memory.Node `yaml:"nodes"`
}

type Transport struct {
	dir         string
	fileLock    *flock.Flock
	mu          sync.Mutex
	closed      bool
	lockTimeout time.Duration

	definitions *transport.DefinitionSet
	logger      logger.Logger
}

var (
	_ transport.Transport         = (*Transport)(nil)
	_ transport.NodeTypeRegistrar = (*Transport)(nil)
)

// Open uses dir as repository, creating it when missing.
func Open(ctx context.Context, dir string, opts ...Option) (*Transport, error) {
	for _, sub := range []string{"workspaces", "nodetypes"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", constants.ErrRepository, err)
		}
	}
	defs, err := transport.NewDefinitionSet()
	if err != nil {
		return nil, err
	}
	t := &Transport{
		dir:         dir,
		fileLock:    flock.New(filepath.Join(dir, ".lock")),
		lockTimeout: defaultLockTimeout,
		definitions: defs,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	err = t.withLock(ctx, func() error {
		return t.loadDefinitions()
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// loadDefinitions reads every definition file of the nodetypes directory in name order.
// Files may refer to each other's types.
func (t *Transport) loadDefinitions() error {
	entries, err := os.ReadDir(filepath.Join(t.dir, "nodetypes"))
	if err != nil {
		return fmt.Errorf("%w: %w", constants.ErrRepository, err)
	}
	var all []nodetype.Definition
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var parse func([]byte) ([]nodetype.Definition, error)
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			parse = nodetype.ParseYAML
		case ".xml":
			parse = nodetype.ParseXML
		default:
			continue
		}
		data, err := os.ReadFile(filepath.Join(t.dir, "nodetypes", e.Name()))
		if err != nil {
			return fmt.Errorf("%w: %w", constants.ErrRepository, err)
		}
		defs, err := parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		t.logger.Debug("node types read", "file", e.Name(), "count", len(defs))
		all = append(all, defs...)
	}
	if err := t.definitions.Validate(all); err != nil {
		return err
	}
	t.definitions.Add(all...)
	return nil
}

// withLock runs fn holding both the in-process mutex and the directory lock.
func (t *Transport) withLock(ctx context.Context, fn func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return constants.ErrTransportClosed
	}

	ctx, cancel := context.WithTimeout(ctx, t.lockTimeout)
	defer cancel()
	locked, err := t.fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: acquire %s", constants.ErrTimeout, t.fileLock.Path())
		}
		return fmt.Errorf("%w: acquire lock: %w", constants.ErrRepository, err)
	}
	if !locked {
		return fmt.Errorf("%w: acquire %s", constants.ErrTimeout, t.fileLock.Path())
	}
	defer func() { _ = t.fileLock.Unlock() }()
	return fn()
}

func workspaceName(name string) string {
	if name == "" {
		return constants.DefaultWorkspace
	}
	return name
}

func (t *Transport) snapshotPath(workspace string) (string, error) {
	if strings.ContainsAny(workspace, `/\`) || workspace == "." || workspace == ".." {
		return "", fmt.Errorf("%w: invalid workspace name %q", constants.ErrRepository, workspace)
	}
	return filepath.Join(t.dir, "workspaces", workspace+".yaml"), nil
}

func (t *Transport) load(workspace string) (*memory.Tree, error) {
	path, err := t.snapshotPath(workspace)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0) {
		return memory.NewTree(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrRepository, err)
	}
	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", constants.ErrRepository, filepath.Base(path), err)
	}
	return memory.TreeFromNodes(snap.Nodes)
}

func (t *Transport) store(workspace string, tree *memory.Tree) error {
	path, err := t.snapshotPath(workspace)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(snapshot{
		Version:   snapshotVersion,
		Workspace: workspace,
		UpdatedAt: time.Now().UTC(),
		Nodes:     tree.Nodes(),
	})
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write temp file: %w", constants.ErrRepository, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: rename: %w", constants.ErrRepository, err)
	}
	return nil
}

func (t *Transport) FetchNode(ctx context.Context, workspace, path string) (*models.RawNode, error) {
	var raw *models.RawNode
	err := t.withLock(ctx, func() error {
		tree, err := t.load(workspaceName(workspace))
		if err != nil {
			return err
		}
		raw, err = tree.Node(path)
		return err
	})
	return raw, err
}

func (t *Transport) FetchNodeByIdentifier(ctx context.Context, workspace, id string) (*models.RawNode, error) {
	var raw *models.RawNode
	err := t.withLock(ctx, func() error {
		tree, err := t.load(workspaceName(workspace))
		if err != nil {
			return err
		}
		raw, err = tree.NodeByIdentifier(id)
		return err
	})
	return raw, err
}

func (t *Transport) FetchNodeTypeDefinitions(_ context.Context, name string) ([]nodetype.Definition, error) {
	return t.definitions.Closure(name)
}

// RegisterNodeTypes merges defs into nodetypes/registered.yaml.
func (t *Transport) RegisterNodeTypes(ctx context.Context, defs []nodetype.Definition) error {
	if err := t.definitions.Validate(defs); err != nil {
		return err
	}
	return t.withLock(ctx, func() error {
		path := filepath.Join(t.dir, "nodetypes", registeredFile)
		var stored []nodetype.Definition
		if data, err := os.ReadFile(path); err == nil {
			if stored, err = nodetype.ParseYAML(data); err != nil {
				return fmt.Errorf("%s: %w", registeredFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %w", constants.ErrRepository, err)
		}
		for _, d := range defs {
			i := slices.IndexFunc(stored, func(s nodetype.Definition) bool { return s.Name == d.Name })
			if i >= 0 {
				stored[i] = d
			} else {
				stored = append(stored, d)
			}
		}
		data, err := nodetype.MarshalYAML(stored)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(path, data); err != nil {
			return err
		}
		t.definitions.Add(defs...)
		return nil
	})
}

func (t *Transport) Dispatch(ctx context.Context, cs *models.ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	ws := workspaceName(cs.Workspace)
	err := t.withLock(ctx, func() error {
		tree, err := t.load(ws)
		if err != nil {
			return err
		}
		next, err := tree.Apply(cs.Operations)
		if err != nil {
			return err
		}
		return t.store(ws, next)
	})
	if err != nil {
		t.logger.Warn("change set rejected", "workspace", ws, "error", err)
		return fmt.Errorf("dispatch: %w", err)
	}
	t.logger.Debug("change set applied", "workspace", ws, "operations", len(cs.Operations))
	return nil
}

func (t *Transport) Close(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return t.fileLock.Close()
}
