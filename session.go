package jackalope

import (
	"context"
	"fmt"
	"io"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/itempath"
	"github.com/jackalope/jackalope.go/pkg/logger"
)

// Session is one user's view of one workspace. It buffers changes until Save.
// A Session is not safe for concurrent use.
type Session struct {
	repository  *Repository
	workspace   *Workspace
	om          *objectManager
	credentials Credentials
	namespaces  namespaces
	logger      logger.Logger
	live        bool
}

func (s *Session) checkLive() error {
	if !s.live {
		return fmt.Errorf("%w: session is logged out", constants.ErrRepository)
	}
	return nil
}

func (s *Session) Repository() *Repository { return s.repository }
func (s *Session) Workspace() *Workspace   { return s.workspace }
func (s *Session) IsLive() bool            { return s.live }

func (s *Session) ValueFactory() ValueFactory { return ValueFactory{} }

// UserID returns the user of simple credentials, or "" for guests.
func (s *Session) UserID() string {
	if c, ok := s.credentials.(*SimpleCredentials); ok {
		return c.UserID
	}
	return ""
}

func (s *Session) AttributeNames() []string {
	if c, ok := s.credentials.(*SimpleCredentials); ok {
		return c.AttributeNames()
	}
	return nil
}

func (s *Session) Attribute(name string) any {
	if c, ok := s.credentials.(*SimpleCredentials); ok {
		return c.Attribute(name)
	}
	return nil
}

func (s *Session) RootNode(ctx context.Context) (*Node, error) {
	return s.Node(ctx, itempath.Root)
}

// Node returns the node at the absolute path. Missing nodes fail with ErrPathNotFound.
func (s *Session) Node(ctx context.Context, absPath string) (*Node, error) {
	path, err := s.normalize(absPath)
	if err != nil {
		return nil, err
	}
	n, err := s.om.nodeByPath(ctx, path)
	if err != nil {
		return nil, pathNotFound(path, err)
	}
	return n, nil
}

// NodeByIdentifier fails with ErrItemNotFound for unknown identifiers.
func (s *Session) NodeByIdentifier(ctx context.Context, id string) (*Node, error) {
	if err := s.checkLive(); err != nil {
		return nil, err
	}
	return s.om.nodeByIdentifier(ctx, id)
}

func (s *Session) Property(ctx context.Context, absPath string) (*Property, error) {
	path, err := s.normalize(absPath)
	if err != nil {
		return nil, err
	}
	p, err := s.om.propertyByPath(ctx, path)
	if err != nil {
		return nil, pathNotFound(path, err)
	}
	return p, nil
}

func (s *Session) Item(ctx context.Context, absPath string) (Item, error) {
	path, err := s.normalize(absPath)
	if err != nil {
		return nil, err
	}
	item, err := s.om.itemByPath(ctx, path)
	if err != nil {
		return nil, pathNotFound(path, err)
	}
	return item, nil
}

// NodeExists reports false only for not-found failures; every other error is returned.
func (s *Session) NodeExists(ctx context.Context, absPath string) (bool, error) {
	if absPath == itempath.Root {
		if err := s.checkLive(); err != nil {
			return false, err
		}
		return true, nil
	}
	return exists(s.Node(ctx, absPath))
}

func (s *Session) PropertyExists(ctx context.Context, absPath string) (bool, error) {
	return exists(s.Property(ctx, absPath))
}

func (s *Session) ItemExists(ctx context.Context, absPath string) (bool, error) {
	return exists(s.Item(ctx, absPath))
}

func exists[T any](_ T, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Move moves the node at src, with its subtree, to dest. dest must not carry an index.
func (s *Session) Move(ctx context.Context, srcAbsPath, destAbsPath string) error {
	src, err := s.normalize(srcAbsPath)
	if err != nil {
		return err
	}
	dest, err := s.normalize(destAbsPath)
	if err != nil {
		return err
	}
	if src == itempath.Root || dest == itempath.Root {
		return fmt.Errorf("%w: the root node cannot be moved", constants.ErrRepository)
	}
	if itempath.HasIndex(itempath.Name(destAbsPath)) {
		return fmt.Errorf("%w: destination %q must not carry an index", constants.ErrRepository, destAbsPath)
	}
	if src == dest || itempath.IsDescendant(dest, src) {
		return fmt.Errorf("%w: cannot move %s below itself", constants.ErrRepository, src)
	}

	n, err := s.Node(ctx, src)
	if err != nil {
		return err
	}
	srcParent, err := s.Node(ctx, itempath.Parent(src))
	if err != nil {
		return err
	}
	destParent, err := s.Node(ctx, itempath.Parent(dest))
	if err != nil {
		return err
	}
	if err := destParent.checkUsable(destParent.path); err != nil {
		return err
	}
	name := itempath.Name(dest)
	if _, ok := destParent.properties[name]; ok || destParent.nextSiblingIndex(name) > 1 {
		return fmt.Errorf("%w: %s", constants.ErrItemExists, dest)
	}

	srcParent.children = removeSegment(srcParent.children, itempath.Name(src))
	destParent.children = append(destParent.children, name)
	srcParent.markModified()
	destParent.markModified()
	s.om.moveNode(n.path, dest)
	return nil
}

// RemoveItem removes the node or property at absPath.
func (s *Session) RemoveItem(ctx context.Context, absPath string) error {
	item, err := s.Item(ctx, absPath)
	if err != nil {
		return err
	}
	switch it := item.(type) {
	case *Property:
		_, err := it.node.SetProperty(it.name, nil)
		return err
	case *Node:
		if it.path == itempath.Root {
			return fmt.Errorf("%w: the root node cannot be removed", constants.ErrRepository)
		}
		if err := it.checkUsable(it.path); err != nil {
			return err
		}
		parent, err := s.Node(ctx, itempath.Parent(it.path))
		if err != nil {
			return err
		}
		parent.children = removeSegment(parent.children, itempath.Name(it.path))
		parent.markModified()
		s.om.removeNode(it)
	}
	return nil
}

func removeSegment(children []string, segment string) []string {
	out := children[:0:0]
	for _, c := range children {
		if c != segment {
			out = append(out, c)
		}
	}
	return out
}

// Save dispatches all pending changes at once. A failed save leaves them pending.
func (s *Session) Save(ctx context.Context) error {
	if err := s.checkLive(); err != nil {
		return err
	}
	return s.om.save(ctx)
}

// Refresh with keepChanges re-reads unmodified items on next access; without it every
// pending change is discarded.
func (s *Session) Refresh(_ context.Context, keepChanges bool) error {
	if err := s.checkLive(); err != nil {
		return err
	}
	s.om.refresh(keepChanges)
	return nil
}

func (s *Session) HasPendingChanges() bool {
	return s.om.hasPendingChanges()
}

// Logout discards pending changes and makes the session unusable.
func (s *Session) Logout() {
	if !s.live {
		return
	}
	s.om.refresh(false)
	s.live = false
	s.logger.Debug("session logged out", "workspace", s.workspace.name, "user", s.UserID())
}

func (s *Session) SetNamespacePrefix(prefix, uri string) error {
	if err := s.checkLive(); err != nil {
		return err
	}
	return s.namespaces.set(prefix, uri)
}

func (s *Session) NamespacePrefixes() []string {
	return s.namespaces.prefixes()
}

func (s *Session) NamespaceURI(prefix string) (string, error) {
	return s.namespaces.uri(prefix)
}

func (s *Session) NamespacePrefix(uri string) (string, error) {
	return s.namespaces.prefix(uri)
}

func (s *Session) Impersonate(_ context.Context, creds Credentials) (*Session, error) {
	return nil, notImplemented("Session.Impersonate")
}

func (s *Session) HasPermission(_ context.Context, absPath, actions string) (bool, error) {
	return false, notImplemented("Session.HasPermission")
}

func (s *Session) CheckPermission(_ context.Context, absPath, actions string) error {
	return notImplemented("Session.CheckPermission")
}

func (s *Session) ImportXML(_ context.Context, parentAbsPath string, in io.Reader) error {
	return notImplemented("Session.ImportXML")
}

func (s *Session) ExportSystemView(_ context.Context, absPath string, out io.Writer, skipBinary, noRecurse bool) error {
	return notImplemented("Session.ExportSystemView")
}

func (s *Session) ExportDocumentView(_ context.Context, absPath string, out io.Writer, skipBinary, noRecurse bool) error {
	return notImplemented("Session.ExportDocumentView")
}

// normalize validates an absolute path and resolves "." and "..".
func (s *Session) normalize(absPath string) (string, error) {
	if err := s.checkLive(); err != nil {
		return "", err
	}
	return itempath.Normalize(absPath)
}
