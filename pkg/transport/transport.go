// Package transport defines the capability a repository backend offers to sessions: fetch
// node data by path or identifier, fetch node type definitions and persist change sets.
//
// Implementations live in the subpackages:
//
//   - memory: a process-local store, the default for tests and embedded use
//   - sqlite: a persistent store on modernc.org/sqlite
//   - filestore: a YAML snapshot on disk guarded by a file lock
//   - wsrpc: a websocket client, plus a server handler exposing any Transport
package transport

import (
	"context"

	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
)

// Transport is safe for concurrent use by several sessions.
type Transport interface {
	// FetchNode fails with constants.ErrItemNotFound when nothing lives at path.
	FetchNode(ctx context.Context, workspace, path string) (*models.RawNode, error)
	// FetchNodeByIdentifier fails with constants.ErrItemNotFound for unknown identifiers.
	FetchNodeByIdentifier(ctx context.Context, workspace, id string) (*models.RawNode, error)
	// FetchNodeTypeDefinitions returns the definition of name followed by the definitions
	// of its supertypes. Unknown names fail with constants.ErrNoSuchNodeType.
	FetchNodeTypeDefinitions(ctx context.Context, name string) ([]nodetype.Definition, error)
	// Dispatch applies every operation of cs or none of them. Conflicts with the stored
	// state fail with constants.ErrInvalidItemState.
	Dispatch(ctx context.Context, cs *models.ChangeSet) error
	Close(ctx context.Context) error
}

// NodeTypeRegistrar is implemented by backends that accept custom node types.
type NodeTypeRegistrar interface {
	RegisterNodeTypes(ctx context.Context, defs []nodetype.Definition) error
}
