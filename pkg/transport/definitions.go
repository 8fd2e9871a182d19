package transport

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
)

// DefinitionSet is the backend side of the node type system: a flat set of definitions
// served on request together with their supertypes.
type DefinitionSet struct {
	mu   sync.RWMutex
	defs map[string]nodetype.Definition
}

// NewDefinitionSet starts from the built-in definitions.
func NewDefinitionSet() (*DefinitionSet, error) {
	builtin, err := nodetype.Builtin()
	if err != nil {
		return nil, err
	}
	s := &DefinitionSet{defs: make(map[string]nodetype.Definition, len(builtin))}
	s.Add(builtin...)
	return s, nil
}

// Add stores defs, replacing definitions with the same name.
func (s *DefinitionSet) Add(defs ...nodetype.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range defs {
		s.defs[d.Name] = *d.Clone()
	}
}

// Validate checks defs against each other and the stored set: every supertype must be
// known once defs are added.
func (s *DefinitionSet) Validate(defs []nodetype.Definition) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	incoming := make(map[string]bool, len(defs))
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return err
		}
		incoming[defs[i].Name] = true
	}
	for _, d := range defs {
		for _, st := range d.Supertypes {
			if _, ok := s.defs[st]; !ok && !incoming[st] {
				return fmt.Errorf("%w: %s: unknown supertype %s", constants.ErrInvalidNodeTypeDefinition, d.Name, st)
			}
		}
	}
	return nil
}

func (s *DefinitionSet) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.defs[name]
	return ok
}

// Closure returns the definition of name followed by its supertypes' in depth-first
// pre-order.
func (s *DefinitionSet) Closure(name string) ([]nodetype.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.defs[name]; !ok {
		return nil, fmt.Errorf("%w: %s", constants.ErrNoSuchNodeType, name)
	}
	var out []nodetype.Definition
	seen := make(map[string]bool)
	var visit func(string)
	visit = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		d, ok := s.defs[n]
		if !ok {
			return
		}
		out = append(out, *d.Clone())
		for _, st := range d.Supertypes {
			visit(st)
		}
		if !d.Mixin {
			visit(constants.TypeBase)
		}
	}
	visit(name)
	return out, nil
}

// All returns every stored definition sorted by name.
func (s *DefinitionSet) All() []nodetype.Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]nodetype.Definition, 0, len(s.defs))
	for _, d := range s.defs {
		out = append(out, *d.Clone())
	}
	slices.SortFunc(out, func(a, b nodetype.Definition) int { return strings.Compare(a.Name, b.Name) })
	return out
}
