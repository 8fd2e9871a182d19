package constants

import "errors"

// Repository errors. Callers branch on them with errors.Is; every error returned by this
// module wraps exactly one of these.
var (
	ErrPathNotFound        = errors.New("path not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrItemExists          = errors.New("item exists")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrRepository          = errors.New("repository error")
	ErrNotImplemented      = errors.New("not implemented")
	ErrInvalidItemState    = errors.New("invalid item state")
	ErrValueFormat         = errors.New("value format error")
)

// Node type registry errors
var (
	ErrNoSuchNodeType            = errors.New("no such node type")
	ErrNodeTypeExists            = errors.New("node type exists")
	ErrInvalidNodeTypeDefinition = errors.New("invalid node type definition")
)

// Transport errors
var (
	ErrIDInUse          = errors.New("id already in use")
	ErrTimeout          = errors.New("timeout")
	ErrTransportClosed  = errors.New("transport is closed")
	ErrUnsupportedURL   = errors.New("unsupported repository url")
	ErrMethodNotAllowed = errors.New("method not available on this transport")
)
