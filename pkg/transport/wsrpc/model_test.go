package wsrpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/stretchr/testify/assert"
)

func TestRPCError(t *testing.T) {
	for _, k := range errorKinds {
		wrapped := fmt.Errorf("fetch /x: %w", k.err)
		rpcErr := newRPCError(wrapped)
		assert.Equal(t, k.code, rpcErr.Code)
		assert.Equal(t, wrapped.Error(), rpcErr.Error())
		assert.ErrorIs(t, rpcErr, k.err)
	}

	unknown := newRPCError(errors.New("disk on fire"))
	assert.Equal(t, 0, unknown.Code)
	assert.ErrorIs(t, unknown, constants.ErrRepository)
}
