package jackalope

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/itempath"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
)

// Node is a node of the content tree as seen by one session.
type Node struct {
	itemState
	path        string
	primaryType string
	identifier  string
	// children holds child path segments in order, same-name-sibling index included.
	children      []string
	properties    map[string]*Property
	propertyOrder []string
}

func newNode(s *Session, path string, state ItemState) *Node {
	return &Node{
		itemState:  itemState{session: s, state: state},
		path:       path,
		properties: map[string]*Property{},
	}
}

// newNodeFromRaw builds a clean node from transport data.
func newNodeFromRaw(s *Session, raw *models.RawNode) *Node {
	n := newNode(s, raw.Path, StateClean)
	n.primaryType = raw.PrimaryType()
	n.identifier = raw.Identifier()
	for _, e := range raw.Entries {
		switch e.Kind {
		case models.EntryChild:
			n.children = append(n.children, e.Name)
		case models.EntryProperty:
			n.putProperty(newProperty(n, e.Name, e.Type, e.Multiple, e.Values, StateClean))
		}
	}
	return n
}

func (n *Node) putProperty(p *Property) {
	if _, ok := n.properties[p.name]; !ok {
		n.propertyOrder = append(n.propertyOrder, p.name)
	}
	n.properties[p.name] = p
}

func (n *Node) dropProperty(name string) {
	delete(n.properties, name)
	n.propertyOrder = slices.DeleteFunc(n.propertyOrder, func(s string) bool { return s == name })
}

func (n *Node) Path() string { return n.path }
func (n *Node) Depth() int   { return itempath.Depth(n.path) }
func (n *Node) IsNode() bool { return true }

// Name returns the node name without its same-name-sibling index.
func (n *Node) Name() string {
	name, _, _ := itempath.SplitIndex(itempath.Name(n.path))
	return name
}

// Index returns the 1-based same-name-sibling index.
func (n *Node) Index() int {
	_, index, _ := itempath.SplitIndex(itempath.Name(n.path))
	return index
}

// Identifier returns the UUID of a referenceable node, or "".
func (n *Node) Identifier() string { return n.identifier }

func (n *Node) PrimaryTypeName() string { return n.primaryType }

// MixinTypeNames lists the values of jcr:mixinTypes.
func (n *Node) MixinTypeNames() []string {
	p, ok := n.properties[constants.PropMixinTypes]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(p.values))
	for _, v := range p.values {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names
}

func (n *Node) PrimaryNodeType(ctx context.Context) (*nodetype.NodeType, error) {
	return n.session.workspace.nodeTypes.NodeType(ctx, n.primaryType)
}

func (n *Node) MixinNodeTypes(ctx context.Context) ([]*nodetype.NodeType, error) {
	var types []*nodetype.NodeType
	for _, name := range n.MixinTypeNames() {
		nt, err := n.session.workspace.nodeTypes.NodeType(ctx, name)
		if err != nil {
			return nil, err
		}
		types = append(types, nt)
	}
	return types, nil
}

// IsNodeType reports whether the primary type or one of the mixins is name or inherits
// from it.
func (n *Node) IsNodeType(ctx context.Context, name string) (bool, error) {
	nt, err := n.PrimaryNodeType(ctx)
	if err != nil {
		return false, err
	}
	if ok, err := nt.IsNodeType(ctx, name); err != nil || ok {
		return ok, err
	}
	mixins, err := n.MixinNodeTypes(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range mixins {
		if ok, err := m.IsNodeType(ctx, name); err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Parent fails with ErrItemNotFound on the root node.
func (n *Node) Parent(ctx context.Context) (*Node, error) {
	if n.path == itempath.Root {
		return nil, fmt.Errorf("%w: the root node has no parent", constants.ErrItemNotFound)
	}
	return n.session.om.nodeByPath(ctx, itempath.Parent(n.path))
}

// AddNodeOption configures AddNode.
type AddNodeOption func(*addNodeOptions)

type addNodeOptions struct {
	primaryType string
	identifier  string
}

func WithPrimaryType(name string) AddNodeOption {
	return func(o *addNodeOptions) { o.primaryType = name }
}

func WithIdentifier(id string) AddNodeOption {
	return func(o *addNodeOptions) { o.identifier = id }
}

// AddNode creates a new node at relPath below n. Without WithPrimaryType the type is the
// default primary type of the applicable child node definition.
func (n *Node) AddNode(ctx context.Context, relPath string, opts ...AddNodeOption) (*Node, error) {
	if err := n.checkUsable(n.path); err != nil {
		return nil, err
	}
	if itempath.IsNested(relPath) {
		if itempath.IsAbsolute(relPath) {
			return nil, fmt.Errorf("%w: %q is not a relative path", constants.ErrRepository, relPath)
		}
		parentPath, name := itempath.Parent("/"+relPath), itempath.Name("/"+relPath)
		if relPath == "." || relPath == ".." {
			return nil, fmt.Errorf("%w: %q does not name a new node", constants.ErrRepository, relPath)
		}
		parent, err := n.Node(ctx, parentPath[1:])
		if err != nil {
			return nil, err
		}
		return parent.AddNode(ctx, name, opts...)
	}

	o := addNodeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if itempath.HasIndex(relPath) {
		return nil, fmt.Errorf("%w: index not allowed on a new node name %q", constants.ErrRepository, relPath)
	}
	if !itempath.IsValidName(relPath) {
		return nil, fmt.Errorf("%w: invalid node name %q", constants.ErrRepository, relPath)
	}
	if _, ok := n.properties[relPath]; ok {
		return nil, fmt.Errorf("%w: %s already has a property %q", constants.ErrItemExists, n.path, relPath)
	}

	def, nt, err := n.childDefinition(ctx, relPath, o.primaryType)
	if err != nil {
		return nil, err
	}

	segment := relPath
	if index := n.nextSiblingIndex(relPath); index > 1 {
		if !def.AllowsSameNameSiblings() {
			return nil, fmt.Errorf("%w: %s already has a child %q", constants.ErrItemExists, n.path, relPath)
		}
		segment = itempath.Segment(relPath, index)
	}

	id := o.identifier
	if id == "" {
		referenceable, err := nt.IsNodeType(ctx, constants.TypeReferenceable)
		if err != nil {
			return nil, err
		}
		if referenceable {
			id = uuid.NewString()
		}
	}
	if id != "" && n.session.om.hasIdentifier(id) {
		return nil, fmt.Errorf("%w: identifier %s is already in use", constants.ErrItemExists, id)
	}

	child := newNode(n.session, itempath.Join(n.path, segment), StateNew)
	child.primaryType = nt.Name()
	child.identifier = id
	child.putProperty(newProperty(child, constants.PropPrimaryType, models.TypeName, false, []any{nt.Name()}, StateNew))
	if id != "" {
		child.putProperty(newProperty(child, constants.PropUUID, models.TypeString, false, []any{id}, StateNew))
	}

	n.children = append(n.children, segment)
	n.markModified()
	n.session.om.addNode(child)
	return child, nil
}

// childDefinition finds the definition governing a new child called name and resolves its
// primary type.
func (n *Node) childDefinition(ctx context.Context, name, typeName string) (*nodetype.NodeDefinition, *nodetype.NodeType, error) {
	parentType, err := n.PrimaryNodeType(ctx)
	if err != nil {
		return nil, nil, err
	}
	def, err := parentType.ChildNodeDefinition(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if def == nil {
		return nil, nil, fmt.Errorf("%w: %s allows no child node %q", constants.ErrConstraintViolation, parentType.Name(), name)
	}
	if def.IsProtected() {
		return nil, nil, fmt.Errorf("%w: child node %q of %s is protected", constants.ErrConstraintViolation, name, parentType.Name())
	}

	if typeName == "" {
		typeName = def.DefaultPrimaryTypeName()
	}
	if typeName == "" {
		defs, err := parentType.ChildNodeDefinitions(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range defs {
			if d.DefaultPrimaryTypeName() != "" {
				typeName = d.DefaultPrimaryTypeName()
				break
			}
		}
	}
	if typeName == "" {
		return nil, nil, fmt.Errorf("%w: no default primary type for child %q of %s", constants.ErrConstraintViolation, name, parentType.Name())
	}

	nt, err := n.session.workspace.nodeTypes.NodeType(ctx, typeName)
	if err != nil {
		return nil, nil, err
	}
	if nt.IsMixin() || nt.IsAbstract() {
		return nil, nil, fmt.Errorf("%w: %s cannot be used as a primary type", constants.ErrConstraintViolation, typeName)
	}
	ok, err := def.Accepts(ctx, nt)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s does not satisfy %v", constants.ErrConstraintViolation, typeName, def.RequiredPrimaryTypeNames())
	}
	return def, nt, nil
}

// nextSiblingIndex returns 1 when no child called name exists, else one past the highest
// index in use.
func (n *Node) nextSiblingIndex(name string) int {
	highest := 0
	for _, segment := range n.children {
		childName, index, err := itempath.SplitIndex(segment)
		if err == nil && childName == name && index > highest {
			highest = index
		}
	}
	return highest + 1
}

// OrderBefore moves the child src right before the child dest. An empty dest moves src to
// the end.
func (n *Node) OrderBefore(srcChild, destChild string) error {
	if err := n.checkUsable(n.path); err != nil {
		return err
	}
	if srcChild == destChild {
		return nil
	}
	src := canonicalSegment(srcChild)
	from := slices.Index(n.children, src)
	if from < 0 {
		return fmt.Errorf("%w: %s has no child %q", constants.ErrItemNotFound, n.path, srcChild)
	}
	dest := ""
	if destChild != "" {
		dest = canonicalSegment(destChild)
		if !slices.Contains(n.children, dest) {
			return fmt.Errorf("%w: %s has no child %q", constants.ErrItemNotFound, n.path, destChild)
		}
	}

	reordered := slices.Delete(slices.Clone(n.children), from, from+1)
	if dest == "" {
		reordered = append(reordered, src)
	} else {
		to := slices.Index(reordered, dest)
		reordered = slices.Insert(reordered, to, src)
	}
	if slices.Equal(reordered, n.children) {
		return nil
	}
	n.children = reordered
	n.markModified()
	n.session.om.reorder(n, src, dest)
	return nil
}

func canonicalSegment(segment string) string {
	name, index, err := itempath.SplitIndex(segment)
	if err != nil {
		return segment
	}
	return itempath.Segment(name, index)
}

// SetProperty creates or replaces the property name. A nil value removes it; slices other
// than []byte create multi-valued properties.
func (n *Node) SetProperty(name string, value any) (*Property, error) {
	return n.setProperty(name, value, models.TypeUndefined)
}

// SetPropertyWithType is SetProperty with an explicit type for raw values.
func (n *Node) SetPropertyWithType(name string, value any, t models.PropertyType) (*Property, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown property type %d", constants.ErrValueFormat, int(t))
	}
	return n.setProperty(name, value, t)
}

func (n *Node) setProperty(name string, value any, explicit models.PropertyType) (*Property, error) {
	if err := n.checkUsable(n.path); err != nil {
		return nil, err
	}
	if !itempath.IsValidName(name) {
		return nil, fmt.Errorf("%w: invalid property name %q", constants.ErrRepository, name)
	}
	switch name {
	case constants.PropPrimaryType, constants.PropMixinTypes, constants.PropUUID:
		return nil, fmt.Errorf("%w: %s is protected", constants.ErrConstraintViolation, name)
	}
	existing := n.properties[name]

	if value == nil {
		if existing != nil {
			n.dropProperty(name)
			existing.state = StateRemoved
			n.markModified()
			n.session.om.removeProperty(existing)
		}
		return nil, nil
	}
	if n.nextSiblingIndex(name) > 1 {
		return nil, fmt.Errorf("%w: %s already has a child node %q", constants.ErrItemExists, n.path, name)
	}

	raw, multiple := expandValues(value)
	valueType := models.TypeUndefined
	for _, r := range raw {
		v, ok := r.(Value)
		if !ok {
			continue
		}
		if valueType != models.TypeUndefined && v.typ != valueType {
			return nil, fmt.Errorf("%w: mixed value types %s and %s", constants.ErrValueFormat, valueType, v.typ)
		}
		valueType = v.typ
	}
	if explicit != models.TypeUndefined && valueType != models.TypeUndefined && explicit != valueType {
		return nil, fmt.Errorf("convert %s value to %s: %w", valueType, explicit, constants.ErrNotImplemented)
	}

	target := explicit
	if target == models.TypeUndefined {
		target = valueType
	}
	if existing != nil {
		if target != models.TypeUndefined && target != existing.typ {
			return nil, fmt.Errorf("change type of %s from %s to %s: %w", existing.Path(), existing.typ, target, constants.ErrNotImplemented)
		}
		if existing.multiple != multiple {
			return nil, fmt.Errorf("%w: %s multi-valued mismatch", constants.ErrValueFormat, existing.Path())
		}
		target = existing.typ
	}

	factory := ValueFactory{}
	values := make([]any, len(raw))
	for i, r := range raw {
		v, err := factory.CreateValueOfType(r, target)
		if err != nil {
			return nil, err
		}
		if target == models.TypeUndefined {
			target = v.typ
		}
		values[i] = v.native
	}
	if target == models.TypeUndefined {
		target = models.TypeString
	}

	if existing != nil {
		existing.values = values
		existing.markModified()
		n.markModified()
		n.session.om.setProperty(existing)
		return existing, nil
	}
	p := newProperty(n, name, target, multiple, values, StateNew)
	n.putProperty(p)
	n.markModified()
	n.session.om.setProperty(p)
	return p, nil
}

// Node returns the node at relPath. Missing nodes fail with ErrPathNotFound.
func (n *Node) Node(ctx context.Context, relPath string) (*Node, error) {
	if err := n.session.checkLive(); err != nil {
		return nil, err
	}
	if itempath.IsNested(relPath) {
		abs, err := itempath.Absolute(n.path, relPath)
		if err != nil {
			return nil, err
		}
		return n.session.Node(ctx, abs)
	}
	if err := itempath.Validate(relPath); err != nil {
		return nil, err
	}
	segment := canonicalSegment(relPath)
	if !slices.Contains(n.children, segment) {
		return nil, fmt.Errorf("%w: %s", constants.ErrPathNotFound, itempath.Join(n.path, relPath))
	}
	child, err := n.session.om.nodeByPath(ctx, itempath.Join(n.path, segment))
	if err != nil {
		return nil, pathNotFound(itempath.Join(n.path, segment), err)
	}
	return child, nil
}

// Nodes returns the children whose name matches filter, in child order. A nil filter
// returns all children.
func (n *Node) Nodes(ctx context.Context, filter *NameFilter) ([]*Node, error) {
	if err := n.session.checkLive(); err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, len(n.children))
	for _, segment := range slices.Clone(n.children) {
		name, _, _ := itempath.SplitIndex(segment)
		if !filter.Match(name) {
			continue
		}
		child, err := n.session.om.nodeByPath(ctx, itempath.Join(n.path, segment))
		if err != nil {
			return nil, pathNotFound(itempath.Join(n.path, segment), err)
		}
		nodes = append(nodes, child)
	}
	return nodes, nil
}

// ChildNames lists the child segments in order.
func (n *Node) ChildNames() []string {
	return slices.Clone(n.children)
}

// Property returns the property at relPath. Missing properties fail with ErrPathNotFound.
func (n *Node) Property(ctx context.Context, relPath string) (*Property, error) {
	if err := n.session.checkLive(); err != nil {
		return nil, err
	}
	if itempath.IsNested(relPath) {
		abs, err := itempath.Absolute(n.path, relPath)
		if err != nil {
			return nil, err
		}
		return n.session.Property(ctx, abs)
	}
	p, ok := n.properties[relPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", constants.ErrPathNotFound, itempath.Join(n.path, relPath))
	}
	return p, nil
}

// Properties returns the properties whose name matches filter, in property order.
func (n *Node) Properties(filter *NameFilter) []*Property {
	props := make([]*Property, 0, len(n.propertyOrder))
	for _, name := range n.propertyOrder {
		if filter.Match(name) {
			props = append(props, n.properties[name])
		}
	}
	return props
}

func (n *Node) HasNode(ctx context.Context, relPath string) (bool, error) {
	if itempath.IsNested(relPath) {
		abs, err := itempath.Absolute(n.path, relPath)
		if err != nil {
			return false, err
		}
		return n.session.NodeExists(ctx, abs)
	}
	if err := itempath.Validate(relPath); err != nil {
		return false, err
	}
	return slices.Contains(n.children, canonicalSegment(relPath)), nil
}

func (n *Node) HasProperty(ctx context.Context, relPath string) (bool, error) {
	if itempath.IsNested(relPath) {
		abs, err := itempath.Absolute(n.path, relPath)
		if err != nil {
			return false, err
		}
		return n.session.PropertyExists(ctx, abs)
	}
	_, ok := n.properties[relPath]
	return ok, nil
}

func (n *Node) HasNodes() bool      { return len(n.children) > 0 }
func (n *Node) HasProperties() bool { return len(n.properties) > 0 }

// PrimaryItem resolves the primary item name of the primary type against the children
// and properties of n.
func (n *Node) PrimaryItem(ctx context.Context) (Item, error) {
	nt, err := n.PrimaryNodeType(ctx)
	if err != nil {
		return nil, err
	}
	name := nt.PrimaryItemName()
	if name == "" {
		return nil, fmt.Errorf("%w: %s declares no primary item", constants.ErrItemNotFound, nt.Name())
	}
	if slices.Contains(n.children, name) {
		return n.session.om.nodeByPath(ctx, itempath.Join(n.path, name))
	}
	if p, ok := n.properties[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: primary item %s of %s", constants.ErrItemNotFound, name, n.path)
}

// Remove removes n and its subtree from the session.
func (n *Node) Remove(ctx context.Context) error {
	return n.session.RemoveItem(ctx, n.path)
}

// Update is a no-op for new nodes. Pulling changes from another workspace is not supported.
func (n *Node) Update(_ context.Context, srcWorkspace string) error {
	if n.state == StateNew {
		return nil
	}
	return notImplemented("Node.Update")
}
