package jackalope

import (
	"github.com/jackalope/jackalope.go/pkg/nodetype"
)

// Workspace is the workspace a session is bound to. It owns the node type registry of
// that session.
type Workspace struct {
	name      string
	session   *Session
	nodeTypes *nodetype.Manager
}

func (w *Workspace) Name() string                       { return w.name }
func (w *Workspace) Session() *Session                  { return w.session }
func (w *Workspace) NodeTypeManager() *nodetype.Manager { return w.nodeTypes }
