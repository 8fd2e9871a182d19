package jackalope

import (
	"errors"
	"fmt"

	"github.com/jackalope/jackalope.go/pkg/constants"
)

// Error kinds returned by the repository API. Test them with errors.Is.
var (
	ErrPathNotFound              = constants.ErrPathNotFound
	ErrItemNotFound              = constants.ErrItemNotFound
	ErrItemExists                = constants.ErrItemExists
	ErrConstraintViolation       = constants.ErrConstraintViolation
	ErrNoSuchNodeType            = constants.ErrNoSuchNodeType
	ErrNodeTypeExists            = constants.ErrNodeTypeExists
	ErrInvalidNodeTypeDefinition = constants.ErrInvalidNodeTypeDefinition
	ErrRepository                = constants.ErrRepository
	ErrNotImplemented            = constants.ErrNotImplemented
	ErrInvalidItemState          = constants.ErrInvalidItemState
	ErrValueFormat               = constants.ErrValueFormat
	ErrUnsupportedURL            = constants.ErrUnsupportedURL
)

func notImplemented(op string) error {
	return fmt.Errorf("%s: %w", op, constants.ErrNotImplemented)
}

// pathNotFound re-raises an item lookup failure of a path based call as ErrPathNotFound.
func pathNotFound(path string, err error) error {
	if errors.Is(err, constants.ErrItemNotFound) && !errors.Is(err, constants.ErrPathNotFound) {
		return fmt.Errorf("%w: %s", constants.ErrPathNotFound, path)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, constants.ErrItemNotFound) || errors.Is(err, constants.ErrPathNotFound)
}
