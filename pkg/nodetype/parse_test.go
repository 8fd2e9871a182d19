package nodetype_test

import (
	"testing"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nodeTypesXML = `<?xml version="1.0" encoding="UTF-8"?>
<nodeTypes>
  <nodeType name="nt:file" isMixin="false" isAbstract="false" hasOrderableChildNodes="false" isQueryable="true" primaryItemName="jcr:content">
    <supertypes>
      <supertype>nt:hierarchyNode</supertype>
    </supertypes>
    <childNodeDefinition name="jcr:content" defaultPrimaryType="" autoCreated="false" mandatory="true" onParentVersion="COPY" protected="false" sameNameSiblings="false">
      <requiredPrimaryTypes>
        <requiredPrimaryType>nt:base</requiredPrimaryType>
        <requiredPrimaryType>nt:folder</requiredPrimaryType>
      </requiredPrimaryTypes>
    </childNodeDefinition>
  </nodeType>
  <nodeType name="mix:simpleVersionable" isMixin="true" isAbstract="false" hasOrderableChildNodes="false" isQueryable="true">
    <propertyDefinition name="jcr:isCheckedOut" requiredType="Boolean" autoCreated="true" mandatory="true" onParentVersion="IGNORE" protected="true" multiple="false" fullTextSearchable="false" queryOrderable="true" availableQueryOperators="jcr.operator.equal.to jcr.operator.not.equal.to">
      <defaultValues>
        <defaultValue>true</defaultValue>
      </defaultValues>
    </propertyDefinition>
  </nodeType>
</nodeTypes>`

func TestParseXML(t *testing.T) {
	defs, err := nodetype.ParseXML([]byte(nodeTypesXML))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	file := defs[0]
	assert.Equal(t, "nt:file", file.Name)
	assert.Equal(t, []string{"nt:hierarchyNode"}, file.Supertypes)
	assert.True(t, file.Queryable)
	assert.False(t, file.Mixin)
	assert.Equal(t, "jcr:content", file.PrimaryItemName)
	require.Len(t, file.ChildNodeDefinitions, 1)
	assert.Equal(t, []string{"nt:base", "nt:folder"}, file.ChildNodeDefinitions[0].RequiredPrimaryTypes)
	assert.True(t, file.ChildNodeDefinitions[0].Mandatory)
	assert.Empty(t, file.ChildNodeDefinitions[0].DefaultPrimaryType)

	sv := defs[1]
	assert.True(t, sv.Mixin)
	require.Len(t, sv.PropertyDefinitions, 1)
	p := sv.PropertyDefinitions[0]
	assert.Equal(t, models.TypeBoolean, p.RequiredType)
	assert.Equal(t, nodetype.OnParentVersionIgnore, p.OnParentVersion)
	assert.False(t, p.FullTextSearchable)
	assert.Equal(t, []string{"true"}, p.DefaultValues)
	assert.Equal(t, []string{"jcr.operator.equal.to", "jcr.operator.not.equal.to"}, p.AvailableQueryOperators)
}

func TestParseXMLRejectsBadDocuments(t *testing.T) {
	_, err := nodetype.ParseXML([]byte(`<nodeTypes><nodeType name="x" isMixin="perhaps"/></nodeTypes>`))
	require.ErrorIs(t, err, constants.ErrInvalidNodeTypeDefinition)

	_, err = nodetype.ParseXML([]byte(`<nodeTypes><nodeType name="a*b"/></nodeTypes>`))
	require.ErrorIs(t, err, constants.ErrInvalidNodeTypeDefinition)

	_, err = nodetype.ParseXML([]byte(`<nodeTypes><nodeType`))
	require.ErrorIs(t, err, constants.ErrInvalidNodeTypeDefinition)
}

func TestParseYAML(t *testing.T) {
	doc := []byte(`
nodeTypes:
  - name: app:page
    supertypes: [nt:unstructured, mix:title]
    orderableChildNodes: true
    propertyDefinitions:
      - name: app:weight
        requiredType: Long
        defaultValues: ["10"]
    childNodeDefinitions:
      - name: app:section
        defaultPrimaryType: nt:unstructured
        sameNameSiblings: true
  - name: app:hidden
    mixin: true
    queryable: false
`)
	defs, err := nodetype.ParseYAML(doc)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	page := defs[0]
	assert.True(t, page.Queryable)
	assert.True(t, page.OrderableChildNodes)
	assert.Equal(t, models.TypeLong, page.PropertyDefinitions[0].RequiredType)
	assert.Equal(t, nodetype.OnParentVersionCopy, page.PropertyDefinitions[0].OnParentVersion)
	assert.True(t, page.PropertyDefinitions[0].QueryOrderable)
	assert.True(t, page.ChildNodeDefinitions[0].SameNameSiblings)

	assert.False(t, defs[1].Queryable)
	assert.True(t, defs[1].Mixin)

	out, err := nodetype.MarshalYAML(defs)
	require.NoError(t, err)
	again, err := nodetype.ParseYAML(out)
	require.NoError(t, err)
	assert.Equal(t, defs, again)

	_, err = nodetype.ParseYAML([]byte("nodeTypes:\n  - name: a\n    supertypes: [a]\n"))
	require.ErrorIs(t, err, constants.ErrInvalidNodeTypeDefinition)

	_, err = nodetype.ParseYAML([]byte("unknownKey: 1\n"))
	require.ErrorIs(t, err, constants.ErrInvalidNodeTypeDefinition)
}

func TestBuiltin(t *testing.T) {
	defs, err := nodetype.Builtin()
	require.NoError(t, err)
	require.NotEmpty(t, defs)

	defs[0].Name = "changed"
	again, err := nodetype.Builtin()
	require.NoError(t, err)
	assert.Equal(t, constants.TypeBase, again[0].Name)
}
