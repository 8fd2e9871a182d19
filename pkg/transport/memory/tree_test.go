package memory_test

import (
	"testing"
	"time"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/transport/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeApplyLeavesOriginal(t *testing.T) {
	tree := memory.NewTree()
	next, err := tree.Apply([]models.Operation{models.AddNodeOp("/x", constants.TypeUnstructured, "")})
	require.NoError(t, err)

	assert.Equal(t, 1, tree.Len())
	assert.Equal(t, 2, next.Len())
}

func TestTreeConflicts(t *testing.T) {
	tree, err := memory.NewTree().Apply([]models.Operation{
		models.AddNodeOp("/x", constants.TypeUnstructured, ""),
		models.SetPropertyOp("/p", models.TypeString, false, []any{"v"}),
	})
	require.NoError(t, err)

	cases := map[string]models.Operation{
		"node exists":             models.AddNodeOp("/x", constants.TypeUnstructured, ""),
		"property shadows node":   models.AddNodeOp("/p", constants.TypeUnstructured, ""),
		"missing parent":          models.AddNodeOp("/nope/y", constants.TypeUnstructured, ""),
		"node shadows property":   models.SetPropertyOp("/x", models.TypeString, false, []any{"v"}),
		"reorder unknown child":   models.ReorderOp("/", "zzz", ""),
		"move onto existing node": models.MoveOp("/x", "/x"),
	}
	for name, op := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tree.Apply([]models.Operation{op})
			require.ErrorIs(t, err, constants.ErrInvalidItemState)
		})
	}

	_, err = tree.Apply([]models.Operation{models.MoveOp("/x", "/x/y")})
	require.ErrorIs(t, err, constants.ErrRepository)
	_, err = tree.Apply([]models.Operation{models.RemoveOp("/")})
	require.ErrorIs(t, err, constants.ErrRepository)
}

func TestTreeSnapshotRoundTrip(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tree, err := memory.NewTree().Apply([]models.Operation{
		models.AddNodeOp("/x", constants.TypeUnstructured, "id-x"),
		models.SetPropertyOp("/x/when", models.TypeDate, false, []any{when}),
		models.SetPropertyOp("/x/tags", models.TypeString, true, []any{"a", "b"}),
	})
	require.NoError(t, err)

	again, err := memory.TreeFromNodes(tree.Nodes())
	require.NoError(t, err)

	x, err := again.NodeByIdentifier("id-x")
	require.NoError(t, err)
	whenProp, ok := x.Property("when")
	require.True(t, ok)
	assert.True(t, when.Equal(whenProp.Values[0].(time.Time)))
	tags, _ := x.Property("tags")
	assert.True(t, tags.Multiple)
	assert.Equal(t, []any{"a", "b"}, tags.Values)

	_, err = memory.TreeFromNodes(nil)
	require.ErrorIs(t, err, constants.ErrRepository)
}
