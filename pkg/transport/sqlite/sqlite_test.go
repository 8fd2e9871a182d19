package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
	"github.com/jackalope/jackalope.go/pkg/transport/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, path string) *sqlite.Transport {
	t.Helper()
	tr, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })
	return tr
}

func TestDispatchAndFetch(t *testing.T) {
	ctx := context.Background()
	tr := open(t, filepath.Join(t.TempDir(), "repo.db"))

	root, err := tr.FetchNode(ctx, "default", "/")
	require.NoError(t, err)
	assert.Equal(t, constants.RootNodeType, root.PrimaryType())
	assert.Empty(t, root.Children())

	created := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	err = tr.Dispatch(ctx, &models.ChangeSet{
		Workspace: "default",
		Operations: []models.Operation{
			models.AddNodeOp("/docs", constants.TypeUnstructured, ""),
			models.AddNodeOp("/docs/a", constants.TypeUnstructured, "id-a"),
			models.SetPropertyOp("/docs/a/title", models.TypeString, false, []any{"hello"}),
			models.SetPropertyOp("/docs/a/size", models.TypeLong, false, []any{int64(42)}),
			models.SetPropertyOp("/docs/a/ratio", models.TypeDouble, false, []any{0.5}),
			models.SetPropertyOp("/docs/a/created", models.TypeDate, false, []any{created}),
			models.SetPropertyOp("/docs/a/tags", models.TypeString, true, []any{"x", "y"}),
		},
	})
	require.NoError(t, err)

	a, err := tr.FetchNodeByIdentifier(ctx, "default", "id-a")
	require.NoError(t, err)
	assert.Equal(t, "/docs/a", a.Path)
	assert.Equal(t, "id-a", a.Identifier())

	for name, want := range map[string][]any{
		"title":   {"hello"},
		"size":    {int64(42)},
		"ratio":   {0.5},
		"created": {created},
		"tags":    {"x", "y"},
	} {
		p, ok := a.Property(name)
		require.True(t, ok, name)
		assert.Equal(t, want, p.Values, name)
	}

	root, err = tr.FetchNode(ctx, "default", "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, root.Children())

	_, err = tr.FetchNode(ctx, "default", "/missing")
	require.ErrorIs(t, err, constants.ErrItemNotFound)
	_, err = tr.FetchNodeByIdentifier(ctx, "default", "nope")
	require.ErrorIs(t, err, constants.ErrItemNotFound)
}

func TestDispatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	tr := open(t, filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, tr.Dispatch(ctx, &models.ChangeSet{Operations: []models.Operation{
		models.AddNodeOp("/a", constants.TypeUnstructured, ""),
	}}))

	err := tr.Dispatch(ctx, &models.ChangeSet{Operations: []models.Operation{
		models.AddNodeOp("/b", constants.TypeUnstructured, ""),
		models.AddNodeOp("/a", constants.TypeUnstructured, ""),
	}})
	require.ErrorIs(t, err, constants.ErrInvalidItemState)

	_, err = tr.FetchNode(ctx, "default", "/b")
	require.ErrorIs(t, err, constants.ErrItemNotFound)
}

func TestMoveAndRemove(t *testing.T) {
	ctx := context.Background()
	tr := open(t, filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, tr.Dispatch(ctx, &models.ChangeSet{Operations: []models.Operation{
		models.AddNodeOp("/a", constants.TypeUnstructured, ""),
		models.AddNodeOp("/a/b", constants.TypeUnstructured, ""),
		models.AddNodeOp("/c", constants.TypeUnstructured, ""),
	}}))

	require.NoError(t, tr.Dispatch(ctx, &models.ChangeSet{Operations: []models.Operation{
		models.MoveOp("/a/b", "/c/b"),
		models.RemoveOp("/a"),
	}}))

	_, err := tr.FetchNode(ctx, "default", "/a")
	require.ErrorIs(t, err, constants.ErrItemNotFound)
	b, err := tr.FetchNode(ctx, "default", "/c/b")
	require.NoError(t, err)
	assert.Equal(t, "/c/b", b.Path)
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "repo.db")

	tr, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, tr.Dispatch(ctx, &models.ChangeSet{Workspace: "staging", Operations: []models.Operation{
		models.AddNodeOp("/kept", constants.TypeUnstructured, ""),
	}}))
	def := nodetype.NewDefinition("app:page")
	def.Supertypes = []string{constants.TypeUnstructured}
	require.NoError(t, tr.RegisterNodeTypes(ctx, []nodetype.Definition{*def}))
	require.NoError(t, tr.Close(ctx))

	reopened := open(t, path)
	n, err := reopened.FetchNode(ctx, "staging", "/kept")
	require.NoError(t, err)
	assert.Equal(t, constants.TypeUnstructured, n.PrimaryType())

	defs, err := reopened.FetchNodeTypeDefinitions(ctx, "app:page")
	require.NoError(t, err)
	require.NotEmpty(t, defs)
	assert.Equal(t, "app:page", defs[0].Name)

	_, err = reopened.FetchNode(ctx, "default", "/kept")
	require.ErrorIs(t, err, constants.ErrItemNotFound)
}

func TestRegisterNodeTypesValidates(t *testing.T) {
	ctx := context.Background()
	tr := open(t, filepath.Join(t.TempDir(), "repo.db"))

	def := nodetype.NewDefinition("app:orphan")
	def.Supertypes = []string{"app:missing"}
	err := tr.RegisterNodeTypes(ctx, []nodetype.Definition{*def})
	require.ErrorIs(t, err, constants.ErrInvalidNodeTypeDefinition)

	_, err = tr.FetchNodeTypeDefinitions(ctx, "app:orphan")
	require.ErrorIs(t, err, constants.ErrNoSuchNodeType)
}
