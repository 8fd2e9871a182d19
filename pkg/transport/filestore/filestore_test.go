package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
	"github.com/jackalope/jackalope.go/pkg/transport/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, dir string, opts ...filestore.Option) *filestore.Transport {
	t.Helper()
	tr, err := filestore.Open(context.Background(), dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })
	return tr
}

func TestDispatchPersistsSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tr := open(t, dir)

	err := tr.Dispatch(ctx, &models.ChangeSet{Operations: []models.Operation{
		models.AddNodeOp("/a", constants.TypeUnstructured, "id-a"),
		models.SetPropertyOp("/a/title", models.TypeString, false, []any{"hello"}),
		models.SetPropertyOp("/a/count", models.TypeLong, false, []any{int64(7)}),
		models.SetPropertyOp("/a/blob", models.TypeBinary, false, []any{[]byte{0xff, 0x00, 0x01}}),
	}})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "workspaces", "default.yaml"))

	other := open(t, dir)
	a, err := other.FetchNodeByIdentifier(ctx, "default", "id-a")
	require.NoError(t, err)
	assert.Equal(t, "/a", a.Path)
	title, _ := a.Property("title")
	assert.Equal(t, []any{"hello"}, title.Values)
	count, _ := a.Property("count")
	assert.Equal(t, []any{int64(7)}, count.Values)
	blob, _ := a.Property("blob")
	assert.Equal(t, []any{[]byte{0xff, 0x00, 0x01}}, blob.Values)

	root, err := other.FetchNode(ctx, "", "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, root.Children())
}

func TestDispatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	tr := open(t, t.TempDir())
	require.NoError(t, tr.Dispatch(ctx, &models.ChangeSet{Operations: []models.Operation{
		models.AddNodeOp("/a", constants.TypeUnstructured, ""),
	}}))

	err := tr.Dispatch(ctx, &models.ChangeSet{Operations: []models.Operation{
		models.AddNodeOp("/b", constants.TypeUnstructured, ""),
		models.RemoveOp("/missing"),
	}})
	require.ErrorIs(t, err, constants.ErrInvalidItemState)

	_, err = tr.FetchNode(ctx, "default", "/b")
	require.ErrorIs(t, err, constants.ErrItemNotFound)
}

func TestNodeTypeFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nodetypes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodetypes", "a.yaml"), []byte(`
nodeTypes:
  - name: app:page
    supertypes: [app:base]
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodetypes", "b.xml"), []byte(`<nodeTypes>
  <nodeType name="app:base" isMixin="false" isAbstract="true">
    <supertypes><supertype>nt:base</supertype></supertypes>
  </nodeType>
</nodeTypes>`), 0o644))

	tr := open(t, dir)
	defs, err := tr.FetchNodeTypeDefinitions(ctx, "app:page")
	require.NoError(t, err)
	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"app:page", "app:base", "nt:base"}, names)

	def := nodetype.NewDefinition("app:article")
	def.Supertypes = []string{"app:page"}
	require.NoError(t, tr.RegisterNodeTypes(ctx, []nodetype.Definition{*def}))
	assert.FileExists(t, filepath.Join(dir, "nodetypes", "registered.yaml"))

	reopened := open(t, dir)
	_, err = reopened.FetchNodeTypeDefinitions(ctx, "app:article")
	require.NoError(t, err)
}

func TestBrokenNodeTypeFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nodetypes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodetypes", "bad.yaml"), []byte("nodeTypes:\n  - name: app:x\n    supertypes: [app:nowhere]\n"), 0o644))

	_, err := filestore.Open(context.Background(), dir)
	require.ErrorIs(t, err, constants.ErrInvalidNodeTypeDefinition)
}

func TestLockTimeout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tr := open(t, dir, filestore.WithLockTimeout(200*time.Millisecond))

	other := flock.New(filepath.Join(dir, ".lock"))
	require.NoError(t, other.Lock())
	defer func() { _ = other.Unlock() }()

	_, err := tr.FetchNode(ctx, "default", "/")
	require.ErrorIs(t, err, constants.ErrTimeout)
}

func TestWorkspaceNames(t *testing.T) {
	ctx := context.Background()
	tr := open(t, t.TempDir())

	_, err := tr.FetchNode(ctx, "../escape", "/")
	require.ErrorIs(t, err, constants.ErrRepository)

	require.NoError(t, tr.Close(ctx))
	_, err = tr.FetchNode(ctx, "default", "/")
	require.ErrorIs(t, err, constants.ErrTransportClosed)
}
