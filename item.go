package jackalope

import (
	"fmt"

	"github.com/jackalope/jackalope.go/pkg/constants"
)

// ItemState is the save state of a node or property within its session.
type ItemState int

const (
	// StateNew items were created in this session and never saved.
	StateNew ItemState = iota
	// StateModified items changed since the last save.
	StateModified
	// StateClean items match the backend.
	StateClean
	// StateRemoved items were removed; the removal may still be pending.
	StateRemoved
)

func (s ItemState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateModified:
		return "modified"
	case StateClean:
		return "clean"
	case StateRemoved:
		return "removed"
	default:
		return fmt.Sprintf("ItemState(%d)", int(s))
	}
}

// Item is implemented by *Node and *Property.
type Item interface {
	Path() string
	Name() string
	Depth() int
	IsNode() bool
	IsNew() bool
	IsModified() bool
	State() ItemState
	Session() *Session
}

var (
	_ Item = (*Node)(nil)
	_ Item = (*Property)(nil)
)

type itemState struct {
	session *Session
	state   ItemState
}

func (i *itemState) Session() *Session { return i.session }
func (i *itemState) State() ItemState  { return i.state }
func (i *itemState) IsNew() bool       { return i.state == StateNew }
func (i *itemState) IsModified() bool  { return i.state == StateModified }

func (i *itemState) markModified() {
	if i.state == StateClean {
		i.state = StateModified
	}
}

func (i *itemState) checkUsable(path string) error {
	if i.state == StateRemoved {
		return fmt.Errorf("%w: %s has been removed", constants.ErrInvalidItemState, path)
	}
	return i.session.checkLive()
}
