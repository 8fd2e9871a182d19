// Package memory is a process-local transport. Every workspace is a Tree replaced as a
// whole on each successful dispatch, so readers never observe half-applied change sets.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/logger"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
	"github.com/jackalope/jackalope.go/pkg/transport"
)

type Option func(t *Transport)

func WithLogger(l logger.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

// WithNodeTypes adds definitions on top of the built-in ones.
func WithNodeTypes(defs ...nodetype.Definition) Option {
	return func(t *Transport) {
		t.definitions.Add(defs...)
	}
}

type Transport struct {
	mu         sync.RWMutex
	workspaces map[string]*Tree
	closed     bool

	definitions *transport.DefinitionSet
	logger      logger.Logger
}

var (
	_ transport.Transport         = (*Transport)(nil)
	_ transport.NodeTypeRegistrar = (*Transport)(nil)
)

// New returns an empty repository. Workspaces are created on first access.
func New(opts ...Option) (*Transport, error) {
	defs, err := transport.NewDefinitionSet()
	if err != nil {
		return nil, err
	}
	t := &Transport{
		workspaces:  make(map[string]*Tree),
		definitions: defs,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// workspace must be called with mu held for writing when create is set.
func (t *Transport) workspace(name string, create bool) (*Tree, error) {
	if t.closed {
		return nil, constants.ErrTransportClosed
	}
	if name == "" {
		name = constants.DefaultWorkspace
	}
	tree, ok := t.workspaces[name]
	if !ok {
		tree = NewTree()
		if create {
			t.workspaces[name] = tree
		}
	}
	return tree, nil
}

func (t *Transport) FetchNode(_ context.Context, workspace, path string) (*models.RawNode, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tree, err := t.workspace(workspace, false)
	if err != nil {
		return nil, err
	}
	return tree.Node(path)
}

func (t *Transport) FetchNodeByIdentifier(_ context.Context, workspace, id string) (*models.RawNode, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tree, err := t.workspace(workspace, false)
	if err != nil {
		return nil, err
	}
	return tree.NodeByIdentifier(id)
}

func (t *Transport) FetchNodeTypeDefinitions(_ context.Context, name string) ([]nodetype.Definition, error) {
	return t.definitions.Closure(name)
}

func (t *Transport) RegisterNodeTypes(_ context.Context, defs []nodetype.Definition) error {
	if err := t.definitions.Validate(defs); err != nil {
		return err
	}
	t.definitions.Add(defs...)
	return nil
}

func (t *Transport) Dispatch(ctx context.Context, cs *models.ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	tree, err := t.workspace(cs.Workspace, true)
	if err != nil {
		return err
	}
	next, err := tree.Apply(cs.Operations)
	if err != nil {
		t.logger.Warn("change set rejected", "workspace", cs.Workspace, "error", err)
		return fmt.Errorf("dispatch: %w", err)
	}
	t.workspaces[workspaceName(cs.Workspace)] = next
	t.logger.Debug("change set applied", "workspace", cs.Workspace, "operations", len(cs.Operations))
	return nil
}

// Snapshot returns the nodes of a workspace, sorted by path.
func (t *Transport) Snapshot(workspace string) []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tree, err := t.workspace(workspace, false)
	if err != nil {
		return nil
	}
	return tree.Nodes()
}

func (t *Transport) Close(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func workspaceName(name string) string {
	if name == "" {
		return constants.DefaultWorkspace
	}
	return name
}
