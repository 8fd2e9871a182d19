package jackalope

import (
	"context"

	"github.com/jackalope/jackalope.go/pkg/nodetype"
)

// The methods below belong to the node contract but are not supported by this client.
// They fail with ErrNotImplemented.

func (n *Node) AddMixin(_ context.Context, mixinName string) error {
	return notImplemented("Node.AddMixin")
}

func (n *Node) RemoveMixin(_ context.Context, mixinName string) error {
	return notImplemented("Node.RemoveMixin")
}

func (n *Node) CanAddMixin(_ context.Context, mixinName string) (bool, error) {
	return false, notImplemented("Node.CanAddMixin")
}

func (n *Node) SetPrimaryType(_ context.Context, typeName string) error {
	return notImplemented("Node.SetPrimaryType")
}

func (n *Node) Definition(_ context.Context) (*nodetype.NodeDefinition, error) {
	return nil, notImplemented("Node.Definition")
}

func (n *Node) References(_ context.Context, name string) ([]*Property, error) {
	return nil, notImplemented("Node.References")
}

func (n *Node) WeakReferences(_ context.Context, name string) ([]*Property, error) {
	return nil, notImplemented("Node.WeakReferences")
}

func (n *Node) SharedSet(_ context.Context) ([]*Node, error) {
	return nil, notImplemented("Node.SharedSet")
}

func (n *Node) RemoveSharedSet(_ context.Context) error {
	return notImplemented("Node.RemoveSharedSet")
}

func (n *Node) RemoveShare(_ context.Context) error {
	return notImplemented("Node.RemoveShare")
}

func (n *Node) IsCheckedOut(_ context.Context) (bool, error) {
	return false, notImplemented("Node.IsCheckedOut")
}

func (n *Node) IsLocked(_ context.Context) (bool, error) {
	return false, notImplemented("Node.IsLocked")
}

func (n *Node) FollowLifecycleTransition(_ context.Context, transition string) error {
	return notImplemented("Node.FollowLifecycleTransition")
}

func (n *Node) AllowedLifecycleTransitions(_ context.Context) ([]string, error) {
	return nil, notImplemented("Node.AllowedLifecycleTransitions")
}

func (n *Node) CorrespondingNodePath(_ context.Context, workspaceName string) (string, error) {
	return "", notImplemented("Node.CorrespondingNodePath")
}
