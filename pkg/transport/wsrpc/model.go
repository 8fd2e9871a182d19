package wsrpc

import (
	"errors"

	"github.com/jackalope/jackalope.go/internal/codec"
	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
)

// Method names understood by Handler.
type Method string

const (
	MethodFetchNode             Method = "fetch_node"
	MethodFetchNodeByIdentifier Method = "fetch_node_by_identifier"
	MethodFetchNodeTypes        Method = "fetch_node_types"
	MethodDispatch              Method = "dispatch"
	MethodRegisterNodeTypes     Method = "register_node_types"
)

type Params struct {
	Workspace   string                `cbor:"workspace,omitempty"`
	Path        string                `cbor:"path,omitempty"`
	Identifier  string                `cbor:"identifier,omitempty"`
	Name        string                `cbor:"name,omitempty"`
	ChangeSet   *models.ChangeSet     `cbor:"change_set,omitempty"`
	Definitions []nodetype.Definition `cbor:"definitions,omitempty"`
}

type Request struct {
	ID     string `cbor:"id"`
	Method Method `cbor:"method"`
	Params Params `cbor:"params"`
}

type Response struct {
	ID     string           `cbor:"id"`
	Error  *RPCError        `cbor:"error,omitempty"`
	Result codec.RawMessage `cbor:"result,omitempty"`
}

// RPCError carries a repository error over the wire. Code selects the error kind it
// unwraps to on the client side.
type RPCError struct {
	Code    int    `cbor:"code"`
	Message string `cbor:"message,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

func (e *RPCError) Unwrap() error {
	for _, k := range errorKinds {
		if k.code == e.Code {
			return k.err
		}
	}
	return constants.ErrRepository
}

// errorKinds is ordered: the first kind an error matches wins.
var errorKinds = []struct {
	code int
	err  error
}{
	{1, constants.ErrPathNotFound},
	{2, constants.ErrItemNotFound},
	{3, constants.ErrItemExists},
	{4, constants.ErrConstraintViolation},
	{5, constants.ErrNoSuchNodeType},
	{6, constants.ErrNodeTypeExists},
	{7, constants.ErrInvalidNodeTypeDefinition},
	{8, constants.ErrInvalidItemState},
	{9, constants.ErrValueFormat},
	{10, constants.ErrNotImplemented},
	{11, constants.ErrMethodNotAllowed},
	{12, constants.ErrTransportClosed},
	{13, constants.ErrTimeout},
}

func newRPCError(err error) *RPCError {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return &RPCError{Code: k.code, Message: err.Error()}
		}
	}
	return &RPCError{Code: 0, Message: err.Error()}
}
