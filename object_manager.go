package jackalope

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/itempath"
	"github.com/jackalope/jackalope.go/pkg/logger"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/transport"
)

// objectManager owns the item cache of one session and the log of operations waiting for
// the next save. Cached paths are always current paths: the log is consulted to translate
// them to backend paths when something has to be fetched.
type objectManager struct {
	session   *Session
	transport transport.Transport
	workspace string
	logger    logger.Logger

	nodes map[string]*Node
	ids   map[string]*Node
	ops   []models.Operation
}

func newObjectManager(s *Session, tr transport.Transport, workspace string, l logger.Logger) *objectManager {
	return &objectManager{
		session:   s,
		transport: tr,
		workspace: workspace,
		logger:    l,
		nodes:     make(map[string]*Node),
		ids:       make(map[string]*Node),
	}
}

func (om *objectManager) nodeByPath(ctx context.Context, path string) (*Node, error) {
	if n, ok := om.nodes[path]; ok {
		return n, nil
	}
	remote, ok := om.remotePath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", constants.ErrItemNotFound, path)
	}
	om.logger.Debug("fetching node", "workspace", om.workspace, "path", remote)
	raw, err := om.transport.FetchNode(ctx, om.workspace, remote)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	if err := raw.Normalize(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	raw.Path = path
	n := newNodeFromRaw(om.session, raw)
	om.cache(n)
	return n, nil
}

func (om *objectManager) nodeByIdentifier(ctx context.Context, id string) (*Node, error) {
	if n, ok := om.ids[id]; ok {
		return n, nil
	}
	om.logger.Debug("fetching node by identifier", "workspace", om.workspace, "identifier", id)
	raw, err := om.transport.FetchNodeByIdentifier(ctx, om.workspace, id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	path, ok := om.localPath(raw.Path)
	if !ok {
		return nil, fmt.Errorf("%w: %s was removed", constants.ErrItemNotFound, id)
	}
	if n, ok := om.nodes[path]; ok {
		return n, nil
	}
	if err := raw.Normalize(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	raw.Path = path
	n := newNodeFromRaw(om.session, raw)
	om.cache(n)
	return n, nil
}

func (om *objectManager) propertyByPath(ctx context.Context, path string) (*Property, error) {
	if path == itempath.Root {
		return nil, fmt.Errorf("%w: the root is not a property", constants.ErrItemNotFound)
	}
	n, err := om.nodeByPath(ctx, itempath.Parent(path))
	if err != nil {
		return nil, err
	}
	p, ok := n.properties[itempath.Name(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", constants.ErrItemNotFound, path)
	}
	return p, nil
}

// itemByPath prefers a node over a property of the same path.
func (om *objectManager) itemByPath(ctx context.Context, path string) (Item, error) {
	n, err := om.nodeByPath(ctx, path)
	if err == nil {
		return n, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return om.propertyByPath(ctx, path)
}

func (om *objectManager) hasIdentifier(id string) bool {
	_, ok := om.ids[id]
	return ok
}

// remotePath maps a current path to the path the backend knows, walking the log backwards.
// It reports false for paths that only exist locally or were removed.
func (om *objectManager) remotePath(path string) (string, bool) {
	for i := len(om.ops) - 1; i >= 0; i-- {
		op := om.ops[i]
		switch op.Kind {
		case models.OpMove:
			if within(path, op.Destination) {
				path = itempath.Rebase(path, op.Destination, op.Path)
			} else if within(path, op.Path) {
				return "", false
			}
		case models.OpRemove, models.OpAddNode:
			if within(path, op.Path) {
				return "", false
			}
		}
	}
	return path, true
}

// localPath maps a backend path to the current path.
func (om *objectManager) localPath(path string) (string, bool) {
	for _, op := range om.ops {
		switch op.Kind {
		case models.OpMove:
			path = itempath.Rebase(path, op.Path, op.Destination)
		case models.OpRemove:
			if within(path, op.Path) {
				return "", false
			}
		}
	}
	return path, true
}

func within(path, ancestor string) bool {
	return path == ancestor || itempath.IsDescendant(path, ancestor)
}

func (om *objectManager) cache(n *Node) {
	om.nodes[n.path] = n
	if n.identifier != "" {
		if _, ok := om.ids[n.identifier]; !ok {
			om.ids[n.identifier] = n
		}
	}
}

func (om *objectManager) record(op models.Operation) {
	om.ops = append(om.ops, op)
}

func (om *objectManager) addNode(n *Node) {
	om.cache(n)
	om.record(models.AddNodeOp(n.path, n.primaryType, n.identifier))
}

func (om *objectManager) setProperty(p *Property) {
	om.record(models.SetPropertyOp(p.Path(), p.typ, p.multiple, slices.Clone(p.values)))
}

func (om *objectManager) removeProperty(p *Property) {
	om.record(models.RemoveOp(p.Path()))
}

// removeNode evicts n and its cached descendants.
func (om *objectManager) removeNode(n *Node) {
	path := n.path
	for p, c := range om.nodes {
		if within(p, path) {
			delete(om.nodes, p)
			if c.identifier != "" && om.ids[c.identifier] == c {
				delete(om.ids, c.identifier)
			}
			c.state = StateRemoved
		}
	}
	om.record(models.RemoveOp(path))
}

// moveNode rebases every cached node below src onto dest.
func (om *objectManager) moveNode(src, dest string) {
	var moved []*Node
	for p, c := range om.nodes {
		if within(p, src) {
			delete(om.nodes, p)
			moved = append(moved, c)
		}
	}
	for _, c := range moved {
		c.path = itempath.Rebase(c.path, src, dest)
		om.nodes[c.path] = c
	}
	om.record(models.MoveOp(src, dest))
}

func (om *objectManager) reorder(parent *Node, child, before string) {
	om.record(models.ReorderOp(parent.path, child, before))
}

func (om *objectManager) hasPendingChanges() bool {
	return len(om.ops) > 0
}

// save dispatches every pending operation as one change set. On failure nothing is marked
// saved and the log stays intact.
func (om *objectManager) save(ctx context.Context) error {
	if len(om.ops) == 0 {
		return nil
	}
	cs := &models.ChangeSet{Workspace: om.workspace, Operations: slices.Clone(om.ops)}
	if err := om.transport.Dispatch(ctx, cs); err != nil {
		om.logger.Warn("save rejected", "workspace", om.workspace, "operations", len(cs.Operations), "error", err)
		return fmt.Errorf("save: %w", err)
	}
	om.logger.Debug("saved", "workspace", om.workspace, "operations", len(cs.Operations))
	om.ops = nil
	for _, n := range om.nodes {
		n.state = StateClean
		for _, p := range n.properties {
			p.state = StateClean
		}
	}
	return nil
}

// refresh with keepChanges evicts the clean nodes so they are fetched again; without it the
// whole cache and the log are dropped.
func (om *objectManager) refresh(keepChanges bool) {
	if !keepChanges {
		om.nodes = make(map[string]*Node)
		om.ids = make(map[string]*Node)
		om.ops = nil
		return
	}
	for p, n := range om.nodes {
		if n.state == StateClean {
			delete(om.nodes, p)
			if n.identifier != "" && om.ids[n.identifier] == n {
				delete(om.ids, n.identifier)
			}
		}
	}
}
