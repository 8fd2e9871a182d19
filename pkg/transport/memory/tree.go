package memory

import (
	"fmt"
	"slices"
	"sort"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/itempath"
	"github.com/jackalope/jackalope.go/pkg/models"
)

type Property struct {
	Name     string              `yaml:"name"`
	Type     models.PropertyType `yaml:"type"`
	Multiple bool                `yaml:"multiple,omitempty"`
	Values   []any               `yaml:"values"`
}

// Node is one stored node. Children holds child segments ("name" or "name[n]") in order.
type Node struct {
	Path       string     `yaml:"path"`
	Identifier string     `yaml:"identifier,omitempty"`
	Children   []string   `yaml:"children,omitempty"`
	Properties []Property `yaml:"properties,omitempty"`
}

func (n *Node) clone() *Node {
	c := &Node{Path: n.Path, Identifier: n.Identifier, Children: slices.Clone(n.Children)}
	c.Properties = make([]Property, len(n.Properties))
	for i, p := range n.Properties {
		p.Values = cloneValues(p.Values)
		c.Properties[i] = p
	}
	return c
}

func (n *Node) property(name string) int {
	return slices.IndexFunc(n.Properties, func(p Property) bool { return p.Name == name })
}

func cloneValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			v = slices.Clone(b)
		}
		out[i] = v
	}
	return out
}

// Tree is the content of one workspace. A Tree is never modified in place once it is
// shared: Apply returns a modified copy.
type Tree struct {
	nodes map[string]*Node
	ids   map[string]string
}

// NewTree returns a workspace holding only the root node.
func NewTree() *Tree {
	root := &Node{
		Path: itempath.Root,
		Properties: []Property{{
			Name:   constants.PropPrimaryType,
			Type:   models.TypeName,
			Values: []any{constants.RootNodeType},
		}},
	}
	return &Tree{
		nodes: map[string]*Node{itempath.Root: root},
		ids:   make(map[string]string),
	}
}

// TreeFromNodes rebuilds a tree from a snapshot taken with Nodes.
func TreeFromNodes(nodes []Node) (*Tree, error) {
	t := &Tree{nodes: make(map[string]*Node, len(nodes)), ids: make(map[string]string)}
	for i := range nodes {
		n := nodes[i].clone()
		for j := range n.Properties {
			p := &n.Properties[j]
			values, err := models.ConvertAll(p.Values, p.Type)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", n.Path, p.Name, err)
			}
			p.Values = values
		}
		t.nodes[n.Path] = n
		if n.Identifier != "" {
			t.ids[n.Identifier] = n.Path
		}
	}
	if _, ok := t.nodes[itempath.Root]; !ok {
		return nil, fmt.Errorf("%w: snapshot has no root node", constants.ErrRepository)
	}
	return t, nil
}

// Nodes returns a snapshot of every node sorted by path.
func (t *Tree) Nodes() []Node {
	out := make([]Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, *n.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) Clone() *Tree {
	c := &Tree{nodes: make(map[string]*Node, len(t.nodes)), ids: make(map[string]string, len(t.ids))}
	for p, n := range t.nodes {
		c.nodes[p] = n.clone()
	}
	for id, p := range t.ids {
		c.ids[id] = p
	}
	return c
}

func (t *Tree) Node(path string) (*models.RawNode, error) {
	n, ok := t.nodes[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", constants.ErrItemNotFound, path)
	}
	return n.Raw(), nil
}

func (t *Tree) NodeByIdentifier(id string) (*models.RawNode, error) {
	p, ok := t.ids[id]
	if !ok {
		return nil, fmt.Errorf("%w: identifier %s", constants.ErrItemNotFound, id)
	}
	return t.Node(p)
}

// Raw converts a stored node into transport data.
func (n *Node) Raw() *models.RawNode {
	r := &models.RawNode{Path: n.Path}
	for _, p := range n.Properties {
		r.Entries = append(r.Entries, models.RawEntry{
			Kind:     models.EntryProperty,
			Name:     p.Name,
			Type:     p.Type,
			Multiple: p.Multiple,
			Values:   cloneValues(p.Values),
		})
	}
	for _, c := range n.Children {
		r.Entries = append(r.Entries, models.ChildEntry(c))
	}
	return r
}

// Apply returns a copy of t with every operation applied in order, or an error and no
// copy when any operation does not apply.
func (t *Tree) Apply(ops []models.Operation) (*Tree, error) {
	next := t.Clone()
	for i, op := range ops {
		if err := next.apply(op); err != nil {
			return nil, fmt.Errorf("operation %d (%s %s): %w", i, op.Kind, op.Path, err)
		}
	}
	return next, nil
}

func (t *Tree) apply(op models.Operation) error {
	switch op.Kind {
	case models.OpAddNode:
		return t.addNode(op)
	case models.OpSetProperty:
		return t.setProperty(op)
	case models.OpRemove:
		return t.remove(op.Path)
	case models.OpMove:
		return t.move(op.Path, op.Destination)
	case models.OpReorder:
		return t.reorder(op.Path, op.Child, op.Before)
	}
	return fmt.Errorf("%w: unknown operation %q", constants.ErrRepository, op.Kind)
}

func (t *Tree) parentOf(path string) (*Node, error) {
	if path == itempath.Root {
		return nil, fmt.Errorf("%w: the root has no parent", constants.ErrRepository)
	}
	parent, ok := t.nodes[itempath.Parent(path)]
	if !ok {
		return nil, fmt.Errorf("%w: parent of %s does not exist", constants.ErrInvalidItemState, path)
	}
	return parent, nil
}

func (t *Tree) addNode(op models.Operation) error {
	parent, err := t.parentOf(op.Path)
	if err != nil {
		return err
	}
	name := itempath.Name(op.Path)
	if _, exists := t.nodes[op.Path]; exists || parent.property(name) >= 0 {
		return fmt.Errorf("%w: %s already exists", constants.ErrInvalidItemState, op.Path)
	}
	if op.Identifier != "" {
		if _, used := t.ids[op.Identifier]; used {
			return fmt.Errorf("%w: identifier %s is in use", constants.ErrInvalidItemState, op.Identifier)
		}
	}

	n := &Node{Path: op.Path, Identifier: op.Identifier}
	n.Properties = append(n.Properties, Property{
		Name:   constants.PropPrimaryType,
		Type:   models.TypeName,
		Values: []any{op.PrimaryType},
	})
	if op.Identifier != "" {
		n.Properties = append(n.Properties, Property{
			Name:   constants.PropUUID,
			Type:   models.TypeString,
			Values: []any{op.Identifier},
		})
		t.ids[op.Identifier] = op.Path
	}
	t.nodes[op.Path] = n
	parent.Children = append(parent.Children, name)
	return nil
}

func (t *Tree) setProperty(op models.Operation) error {
	n, err := t.parentOf(op.Path)
	if err != nil {
		return err
	}
	name := itempath.Name(op.Path)
	if slices.Contains(n.Children, name) {
		return fmt.Errorf("%w: a node exists at %s", constants.ErrInvalidItemState, op.Path)
	}

	typ := op.Type
	if typ == models.TypeUndefined && len(op.Values) > 0 {
		typ = models.InferType(op.Values[0])
	}
	values, err := models.ConvertAll(op.Values, typ)
	if err != nil {
		return err
	}

	p := Property{Name: name, Type: typ, Multiple: op.Multiple, Values: values}
	if i := n.property(name); i >= 0 {
		n.Properties[i] = p
		return nil
	}
	n.Properties = append(n.Properties, p)
	return nil
}

func (t *Tree) remove(path string) error {
	parent, err := t.parentOf(path)
	if err != nil {
		return err
	}
	name := itempath.Name(path)
	if i := parent.property(name); i >= 0 {
		parent.Properties = slices.Delete(parent.Properties, i, i+1)
		return nil
	}
	if _, ok := t.nodes[path]; !ok {
		return fmt.Errorf("%w: %s does not exist", constants.ErrInvalidItemState, path)
	}

	for p, n := range t.nodes {
		if p == path || itempath.IsDescendant(p, path) {
			if n.Identifier != "" {
				delete(t.ids, n.Identifier)
			}
			delete(t.nodes, p)
		}
	}
	parent.Children = slices.DeleteFunc(parent.Children, func(c string) bool { return c == name })
	return nil
}

func (t *Tree) move(src, dest string) error {
	if src == itempath.Root || dest == itempath.Root {
		return fmt.Errorf("%w: the root cannot be moved", constants.ErrRepository)
	}
	if itempath.IsDescendant(dest, src) {
		return fmt.Errorf("%w: cannot move %s below itself", constants.ErrRepository, src)
	}
	oldParent, err := t.parentOf(src)
	if err != nil {
		return err
	}
	if _, ok := t.nodes[src]; !ok {
		return fmt.Errorf("%w: %s does not exist", constants.ErrInvalidItemState, src)
	}
	newParent, err := t.parentOf(dest)
	if err != nil {
		return err
	}
	destName := itempath.Name(dest)
	if _, exists := t.nodes[dest]; exists || newParent.property(destName) >= 0 {
		return fmt.Errorf("%w: %s already exists", constants.ErrInvalidItemState, dest)
	}

	var moved []*Node
	for p, n := range t.nodes {
		if p == src || itempath.IsDescendant(p, src) {
			moved = append(moved, n)
			delete(t.nodes, p)
		}
	}
	for _, n := range moved {
		n.Path = itempath.Rebase(n.Path, src, dest)
		t.nodes[n.Path] = n
		if n.Identifier != "" {
			t.ids[n.Identifier] = n.Path
		}
	}

	srcName := itempath.Name(src)
	oldParent.Children = slices.DeleteFunc(oldParent.Children, func(c string) bool { return c == srcName })
	newParent.Children = append(newParent.Children, destName)
	return nil
}

func (t *Tree) reorder(parentPath, child, before string) error {
	n, ok := t.nodes[parentPath]
	if !ok {
		return fmt.Errorf("%w: %s does not exist", constants.ErrInvalidItemState, parentPath)
	}
	i := slices.Index(n.Children, child)
	if i < 0 {
		return fmt.Errorf("%w: %s has no child %s", constants.ErrInvalidItemState, parentPath, child)
	}
	if child == before {
		return nil
	}
	children := slices.Delete(slices.Clone(n.Children), i, i+1)
	if before == "" {
		n.Children = append(children, child)
		return nil
	}
	j := slices.Index(children, before)
	if j < 0 {
		return fmt.Errorf("%w: %s has no child %s", constants.ErrInvalidItemState, parentPath, before)
	}
	n.Children = slices.Insert(children, j, child)
	return nil
}
