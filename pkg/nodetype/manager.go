package nodetype

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/logger"
)

// DefinitionFetcher loads node type definitions the Manager does not know yet. The
// returned slice holds the requested definition and may carry more (typically its
// supertypes); all of them are registered. Unknown names fail with ErrNoSuchNodeType.
type DefinitionFetcher interface {
	FetchNodeTypeDefinitions(ctx context.Context, name string) ([]Definition, error)
}

type Option func(m *Manager)

func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// Manager is the node type registry of one workspace. It is not safe for concurrent use.
type Manager struct {
	fetcher DefinitionFetcher
	logger  logger.Logger

	primaryTypes map[string]*NodeType
	mixinTypes   map[string]*NodeType
	// order keeps registration order for the listing methods.
	order []string

	// nodeTree maps a supertype name to the names of the types declaring it, in
	// registration order.
	nodeTree map[string][]string

	// closures memoizes supertype closures by type name. Any (un)registration clears it.
	closures map[string][]string
}

// NewManager creates an empty registry. A nil fetcher disables lazy loading.
func NewManager(fetcher DefinitionFetcher, opts ...Option) *Manager {
	m := &Manager{
		fetcher:      fetcher,
		logger:       logger.Nop(),
		primaryTypes: make(map[string]*NodeType),
		mixinTypes:   make(map[string]*NodeType),
		nodeTree:     make(map[string][]string),
		closures:     make(map[string][]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) lookup(name string) (*NodeType, bool) {
	if nt, ok := m.primaryTypes[name]; ok {
		return nt, true
	}
	nt, ok := m.mixinTypes[name]
	return nt, ok
}

// NodeType returns the registered type called name, fetching and registering its
// definition on first use. Later calls return the same instance.
func (m *Manager) NodeType(ctx context.Context, name string) (*NodeType, error) {
	if nt, ok := m.lookup(name); ok {
		return nt, nil
	}
	if m.fetcher == nil {
		return nil, fmt.Errorf("%w: %s", constants.ErrNoSuchNodeType, name)
	}

	defs, err := m.fetcher.FetchNodeTypeDefinitions(ctx, name)
	if err != nil {
		if errors.Is(err, constants.ErrNoSuchNodeType) {
			return nil, err
		}
		return nil, fmt.Errorf("fetching node type %s: %w", name, err)
	}

	var pending []*Definition
	seen := make(map[string]bool, len(defs))
	for i := range defs {
		def := &defs[i]
		if seen[def.Name] || m.HasNodeType(def.Name) {
			continue
		}
		seen[def.Name] = true
		if err := def.Validate(); err != nil {
			return nil, err
		}
		pending = append(pending, def)
	}
	for _, def := range pending {
		m.register(def, false)
	}
	m.logger.Debug("loaded node type definitions", "requested", name, "registered", len(pending))

	if nt, ok := m.lookup(name); ok {
		return nt, nil
	}
	return nil, fmt.Errorf("%w: %s", constants.ErrNoSuchNodeType, name)
}

func (m *Manager) HasNodeType(name string) bool {
	_, ok := m.lookup(name)
	return ok
}

// AllNodeTypes lists primary types, then mixin types, each in registration order.
func (m *Manager) AllNodeTypes() []*NodeType {
	return append(m.PrimaryNodeTypes(), m.MixinNodeTypes()...)
}

func (m *Manager) PrimaryNodeTypes() []*NodeType {
	var out []*NodeType
	for _, name := range m.order {
		if nt, ok := m.primaryTypes[name]; ok {
			out = append(out, nt)
		}
	}
	return out
}

func (m *Manager) MixinNodeTypes() []*NodeType {
	var out []*NodeType
	for _, name := range m.order {
		if nt, ok := m.mixinTypes[name]; ok {
			out = append(out, nt)
		}
	}
	return out
}

// DeclaredSubtypes returns the registered types naming name as a direct supertype. Types
// that have not been loaded yet are not reported.
func (m *Manager) DeclaredSubtypes(name string) []string {
	return slices.Clone(m.nodeTree[name])
}

// Subtypes returns every registered type inheriting from name, in depth-first pre-order of
// the declared subtypes. name itself is never part of the result.
func (m *Manager) Subtypes(name string) []string {
	var out []string
	seen := map[string]bool{name: true}
	var visit func(string)
	visit = func(n string) {
		for _, sub := range m.nodeTree[n] {
			if seen[sub] {
				continue
			}
			seen[sub] = true
			out = append(out, sub)
			visit(sub)
		}
	}
	visit(name)
	return out
}

// CreateNodeTypeTemplate returns an editable template: a copy of nt's definition, or an
// empty primary type template when nt is nil.
func (m *Manager) CreateNodeTypeTemplate(nt *NodeType) *Definition {
	if nt == nil {
		return NewDefinition("")
	}
	return nt.Definition()
}

// RegisterNodeType registers def. An existing type with the same name is replaced when
// allowUpdate is set and rejected with ErrNodeTypeExists otherwise.
func (m *Manager) RegisterNodeType(def *Definition, allowUpdate bool) (*NodeType, error) {
	if err := m.check(def, allowUpdate); err != nil {
		return nil, err
	}
	return m.register(def, allowUpdate), nil
}

// RegisterNodeTypes validates every definition before registering any of them.
func (m *Manager) RegisterNodeTypes(defs []*Definition, allowUpdate bool) ([]*NodeType, error) {
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if err := m.check(def, allowUpdate); err != nil {
			return nil, err
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("%w: %s is defined twice", constants.ErrInvalidNodeTypeDefinition, def.Name)
		}
		seen[def.Name] = true
	}

	out := make([]*NodeType, 0, len(defs))
	for _, def := range defs {
		out = append(out, m.register(def, allowUpdate))
	}
	return out, nil
}

func (m *Manager) check(def *Definition, allowUpdate bool) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if !allowUpdate && m.HasNodeType(def.Name) {
		return fmt.Errorf("%w: %s", constants.ErrNodeTypeExists, def.Name)
	}
	return nil
}

// register assumes def has been checked.
func (m *Manager) register(def *Definition, allowUpdate bool) *NodeType {
	def = def.Clone()
	if !def.Mixin && def.Name != constants.TypeBase && len(def.Supertypes) == 0 {
		def.Supertypes = []string{constants.TypeBase}
	}

	old, exists := m.lookup(def.Name)
	if exists {
		m.removeEdges(old)
		delete(m.primaryTypes, def.Name)
		delete(m.mixinTypes, def.Name)
	} else {
		m.order = append(m.order, def.Name)
	}

	nt := newNodeType(m, def)
	if def.Mixin {
		m.mixinTypes[def.Name] = nt
	} else {
		m.primaryTypes[def.Name] = nt
	}
	for _, st := range def.Supertypes {
		m.nodeTree[st] = append(m.nodeTree[st], def.Name)
	}
	clear(m.closures)

	m.logger.Debug("registered node type", "name", def.Name, "mixin", def.Mixin, "updated", exists && allowUpdate)
	return nt
}

// UnregisterNodeType removes name from the registry and from every supertype's subtype
// list. Its own subtype list is kept, since those types still declare it.
func (m *Manager) UnregisterNodeType(name string) error {
	nt, ok := m.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", constants.ErrNoSuchNodeType, name)
	}
	delete(m.primaryTypes, name)
	delete(m.mixinTypes, name)
	m.order = slices.DeleteFunc(m.order, func(n string) bool { return n == name })
	m.removeEdges(nt)
	clear(m.closures)

	m.logger.Debug("unregistered node type", "name", name)
	return nil
}

// UnregisterNodeTypes removes all names, or none when any of them is unknown.
func (m *Manager) UnregisterNodeTypes(names []string) error {
	for _, name := range names {
		if !m.HasNodeType(name) {
			return fmt.Errorf("%w: %s", constants.ErrNoSuchNodeType, name)
		}
	}
	for _, name := range names {
		if !m.HasNodeType(name) {
			continue
		}
		if err := m.UnregisterNodeType(name); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) removeEdges(nt *NodeType) {
	for st, subs := range m.nodeTree {
		pruned := slices.DeleteFunc(subs, func(n string) bool { return n == nt.def.Name })
		if len(pruned) == 0 {
			delete(m.nodeTree, st)
			continue
		}
		m.nodeTree[st] = pruned
	}
}

func (m *Manager) supertypeClosure(ctx context.Context, nt *NodeType) ([]string, error) {
	if c, ok := m.closures[nt.def.Name]; ok {
		return slices.Clone(c), nil
	}

	var out []string
	seen := map[string]bool{nt.def.Name: true}
	var visit func(t *NodeType) error
	visit = func(t *NodeType) error {
		for _, name := range t.def.Supertypes {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
			st, err := m.NodeType(ctx, name)
			if err != nil {
				return fmt.Errorf("resolving supertype of %s: %w", t.def.Name, err)
			}
			if err := visit(st); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(nt); err != nil {
		return nil, err
	}
	// Primary types always inherit nt:base, even when they only declare mixins.
	if !nt.def.Mixin && !seen[constants.TypeBase] {
		if _, err := m.NodeType(ctx, constants.TypeBase); err == nil {
			out = append(out, constants.TypeBase)
		} else if !errors.Is(err, constants.ErrNoSuchNodeType) {
			return nil, err
		}
	}

	m.closures[nt.def.Name] = out
	return slices.Clone(out), nil
}

func (m *Manager) resolve(ctx context.Context, names []string) ([]*NodeType, error) {
	out := make([]*NodeType, 0, len(names))
	for _, name := range names {
		nt, err := m.NodeType(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, nt)
	}
	return out, nil
}

func (m *Manager) registered(names []string) []*NodeType {
	out := make([]*NodeType, 0, len(names))
	for _, name := range names {
		if nt, ok := m.lookup(name); ok {
			out = append(out, nt)
		}
	}
	return out
}
