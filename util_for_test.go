package jackalope

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/logger"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
	"github.com/jackalope/jackalope.go/pkg/transport/memory"
)

// testNodeTypes are registered with every test repository.
const testNodeTypes = `
nodeTypes:
  - name: app:document
    supertypes: [nt:unstructured, mix:referenceable]
  - name: app:abstract
    abstract: true
  - name: app:strict
    childNodeDefinitions:
      - name: item
        requiredPrimaryTypes: [nt:unstructured]
      - name: locked
        defaultPrimaryType: nt:unstructured
        protected: true
  - name: app:unique
    childNodeDefinitions:
      - name: "*"
        defaultPrimaryType: nt:unstructured
`

// newTestRepository returns a repository on an in-memory transport holding
//
//	/content           nt:unstructured
//	/content/a         nt:unstructured, title = "A"
//	/content/b         app:document, identifier id-b
//	/content/c         nt:unstructured
//	/content/a/x       nt:unstructured
func newTestRepository(t *testing.T) (*Repository, *memory.Transport) {
	t.Helper()
	defs, err := nodetype.ParseYAML([]byte(testNodeTypes))
	require.NoError(t, err)
	tr, err := memory.New(memory.WithNodeTypes(defs...))
	require.NoError(t, err)

	err = tr.Dispatch(context.Background(), &models.ChangeSet{
		Workspace: constants.DefaultWorkspace,
		Operations: []models.Operation{
			models.AddNodeOp("/content", constants.TypeUnstructured, ""),
			models.AddNodeOp("/content/a", constants.TypeUnstructured, ""),
			models.AddNodeOp("/content/b", "app:document", "id-b"),
			models.AddNodeOp("/content/c", constants.TypeUnstructured, ""),
			models.AddNodeOp("/content/a/x", constants.TypeUnstructured, ""),
			models.SetPropertyOp("/content/a/title", models.TypeString, false, []any{"A"}),
		},
	})
	require.NoError(t, err)

	u, err := url.Parse("mem://")
	require.NoError(t, err)
	cfg := NewConfig(u)
	cfg.Logger = logger.Nop()
	return New(cfg, tr), tr
}

func newTestSession(t *testing.T) (*Session, *memory.Transport) {
	t.Helper()
	repo, tr := newTestRepository(t)
	s, err := repo.Login(context.Background(), NewSimpleCredentials("admin", []byte("admin")), "")
	require.NoError(t, err)
	t.Cleanup(s.Logout)
	return s, tr
}

func mustNode(t *testing.T, s *Session, path string) *Node {
	t.Helper()
	n, err := s.Node(context.Background(), path)
	require.NoError(t, err)
	return n
}
