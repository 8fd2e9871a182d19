package memory_test

import (
	"context"
	"testing"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
	"github.com/jackalope/jackalope.go/pkg/transport/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, tr *memory.Transport) {
	t.Helper()
	err := tr.Dispatch(context.Background(), &models.ChangeSet{
		Workspace: "default",
		Operations: []models.Operation{
			models.AddNodeOp("/a", constants.TypeUnstructured, ""),
			models.AddNodeOp("/a/b", constants.TypeUnstructured, "id-b"),
			models.AddNodeOp("/a/c", constants.TypeUnstructured, ""),
			models.SetPropertyOp("/a/title", models.TypeString, false, []any{"hello"}),
			models.SetPropertyOp("/a/b/count", models.TypeLong, false, []any{3}),
		},
	})
	require.NoError(t, err)
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	tr, err := memory.New()
	require.NoError(t, err)
	seed(t, tr)

	root, err := tr.FetchNode(ctx, "default", "/")
	require.NoError(t, err)
	assert.Equal(t, constants.RootNodeType, root.PrimaryType())
	assert.Equal(t, []string{"a"}, root.Children())

	a, err := tr.FetchNode(ctx, "default", "/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, a.Children())
	title, ok := a.Property("title")
	require.True(t, ok)
	assert.Equal(t, []any{"hello"}, title.Values)

	b, err := tr.FetchNodeByIdentifier(ctx, "default", "id-b")
	require.NoError(t, err)
	assert.Equal(t, "/a/b", b.Path)
	count, _ := b.Property("count")
	assert.Equal(t, []any{int64(3)}, count.Values)

	_, err = tr.FetchNode(ctx, "default", "/missing")
	require.ErrorIs(t, err, constants.ErrItemNotFound)
	_, err = tr.FetchNodeByIdentifier(ctx, "default", "nope")
	require.ErrorIs(t, err, constants.ErrItemNotFound)

	other, err := tr.FetchNode(ctx, "other", "/")
	require.NoError(t, err)
	assert.Empty(t, other.Children())
}

func TestDispatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	tr, err := memory.New()
	require.NoError(t, err)
	seed(t, tr)

	err = tr.Dispatch(ctx, &models.ChangeSet{Operations: []models.Operation{
		models.AddNodeOp("/a/d", constants.TypeUnstructured, ""),
		models.AddNodeOp("/a/e", constants.TypeUnstructured, "id-b"),
	}})
	require.ErrorIs(t, err, constants.ErrInvalidItemState)

	_, err = tr.FetchNode(ctx, "default", "/a/d")
	require.ErrorIs(t, err, constants.ErrItemNotFound)
}

func TestDispatchMoveReorderRemove(t *testing.T) {
	ctx := context.Background()
	tr, err := memory.New()
	require.NoError(t, err)
	seed(t, tr)

	err = tr.Dispatch(ctx, &models.ChangeSet{Operations: []models.Operation{
		models.ReorderOp("/a", "c", "b"),
		models.MoveOp("/a/b", "/moved"),
		models.RemoveOp("/a/title"),
	}})
	require.NoError(t, err)

	a, err := tr.FetchNode(ctx, "default", "/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, a.Children())
	_, ok := a.Property("title")
	assert.False(t, ok)

	moved, err := tr.FetchNodeByIdentifier(ctx, "default", "id-b")
	require.NoError(t, err)
	assert.Equal(t, "/moved", moved.Path)

	require.NoError(t, tr.Dispatch(ctx, &models.ChangeSet{Operations: []models.Operation{models.RemoveOp("/moved")}}))
	_, err = tr.FetchNodeByIdentifier(ctx, "default", "id-b")
	require.ErrorIs(t, err, constants.ErrItemNotFound)

	err = tr.Dispatch(ctx, &models.ChangeSet{Operations: []models.Operation{models.RemoveOp("/moved")}})
	require.ErrorIs(t, err, constants.ErrInvalidItemState)
}

func TestNodeTypes(t *testing.T) {
	ctx := context.Background()
	tr, err := memory.New(memory.WithNodeTypes(nodetype.Definition{
		Name:       "app:page",
		Supertypes: []string{constants.TypeUnstructured},
	}))
	require.NoError(t, err)

	defs, err := tr.FetchNodeTypeDefinitions(ctx, "app:page")
	require.NoError(t, err)
	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"app:page", constants.TypeUnstructured, constants.TypeBase}, names)

	_, err = tr.FetchNodeTypeDefinitions(ctx, "app:missing")
	require.ErrorIs(t, err, constants.ErrNoSuchNodeType)

	err = tr.RegisterNodeTypes(ctx, []nodetype.Definition{{Name: "app:orphan", Supertypes: []string{"app:unknown"}}})
	require.ErrorIs(t, err, constants.ErrInvalidNodeTypeDefinition)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	tr, err := memory.New()
	require.NoError(t, err)
	require.NoError(t, tr.Close(ctx))

	_, err = tr.FetchNode(ctx, "default", "/")
	require.ErrorIs(t, err, constants.ErrTransportClosed)
}
