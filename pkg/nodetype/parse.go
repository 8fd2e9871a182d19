package nodetype

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/models"
	"gopkg.in/yaml.v3"
)

// Document is the YAML form of a set of node type definitions.
type Document struct {
	NodeTypes []Definition `yaml:"nodeTypes"`
}

// ParseYAML reads a document of the form
//
//	nodeTypes:
//	  - name: nt:file
//	    supertypes: [nt:hierarchyNode]
//	    primaryItemName: jcr:content
//	    childNodeDefinitions:
//	      - name: jcr:content
//	        requiredPrimaryTypes: [nt:base]
//	        mandatory: true
func ParseYAML(data []byte) ([]Definition, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrInvalidNodeTypeDefinition, err)
	}
	for i := range doc.NodeTypes {
		if err := doc.NodeTypes[i].Validate(); err != nil {
			return nil, err
		}
	}
	return doc.NodeTypes, nil
}

// MarshalYAML renders definitions in the form ParseYAML reads.
func MarshalYAML(defs []Definition) ([]byte, error) {
	return yaml.Marshal(Document{NodeTypes: defs})
}

type xmlNodeTypes struct {
	XMLName   xml.Name      `xml:"nodeTypes"`
	NodeTypes []xmlNodeType `xml:"nodeType"`
}

type xmlNodeType struct {
	Name                   string                  `xml:"name,attr"`
	IsMixin                string                  `xml:"isMixin,attr"`
	IsAbstract             string                  `xml:"isAbstract,attr"`
	HasOrderableChildNodes string                  `xml:"hasOrderableChildNodes,attr"`
	IsQueryable            string                  `xml:"isQueryable,attr"`
	PrimaryItemName        string                  `xml:"primaryItemName,attr"`
	Supertypes             []string                `xml:"supertypes>supertype"`
	PropertyDefinitions    []xmlPropertyDefinition `xml:"propertyDefinition"`
	ChildNodeDefinitions   []xmlNodeDefinition     `xml:"childNodeDefinition"`
}

type xmlPropertyDefinition struct {
	Name                    string   `xml:"name,attr"`
	RequiredType            string   `xml:"requiredType,attr"`
	AutoCreated             string   `xml:"autoCreated,attr"`
	Mandatory               string   `xml:"mandatory,attr"`
	OnParentVersion         string   `xml:"onParentVersion,attr"`
	Protected               string   `xml:"protected,attr"`
	Multiple                string   `xml:"multiple,attr"`
	FullTextSearchable      string   `xml:"fullTextSearchable,attr"`
	QueryOrderable          string   `xml:"queryOrderable,attr"`
	AvailableQueryOperators string   `xml:"availableQueryOperators,attr"`
	ValueConstraints        []string `xml:"valueConstraints>valueConstraint"`
	DefaultValues           []string `xml:"defaultValues>defaultValue"`
}

type xmlNodeDefinition struct {
	Name                 string   `xml:"name,attr"`
	DefaultPrimaryType   string   `xml:"defaultPrimaryType,attr"`
	AutoCreated          string   `xml:"autoCreated,attr"`
	Mandatory            string   `xml:"mandatory,attr"`
	OnParentVersion      string   `xml:"onParentVersion,attr"`
	Protected            string   `xml:"protected,attr"`
	SameNameSiblings     string   `xml:"sameNameSiblings,attr"`
	RequiredPrimaryTypes []string `xml:"requiredPrimaryTypes>requiredPrimaryType"`
}

// ParseXML reads the <nodeTypes> document served by Jackrabbit-style repositories.
func ParseXML(data []byte) ([]Definition, error) {
	var doc xmlNodeTypes
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrInvalidNodeTypeDefinition, err)
	}

	defs := make([]Definition, 0, len(doc.NodeTypes))
	for _, x := range doc.NodeTypes {
		def, err := x.definition()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", constants.ErrInvalidNodeTypeDefinition, x.Name, err)
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (x xmlNodeType) definition() (Definition, error) {
	var err error
	b := func(s string, def bool) bool {
		v, e := parseXMLBool(s, def)
		if e != nil && err == nil {
			err = e
		}
		return v
	}

	def := Definition{
		Name:                x.Name,
		Supertypes:          trimAll(x.Supertypes),
		Mixin:               b(x.IsMixin, false),
		Abstract:            b(x.IsAbstract, false),
		OrderableChildNodes: b(x.HasOrderableChildNodes, false),
		Queryable:           b(x.IsQueryable, true),
		PrimaryItemName:     strings.TrimSpace(x.PrimaryItemName),
	}

	for _, p := range x.PropertyDefinitions {
		t := models.TypeUndefined
		if p.RequiredType != "" {
			parsed, e := models.ParsePropertyType(p.RequiredType)
			if e != nil {
				return Definition{}, e
			}
			t = parsed
		}
		def.PropertyDefinitions = append(def.PropertyDefinitions, PropertyDefinitionTemplate{
			Name:                    p.Name,
			AutoCreated:             b(p.AutoCreated, false),
			Mandatory:               b(p.Mandatory, false),
			Protected:               b(p.Protected, false),
			OnParentVersion:         onParentVersion(p.OnParentVersion),
			RequiredType:            t,
			Multiple:                b(p.Multiple, false),
			ValueConstraints:        trimAll(p.ValueConstraints),
			DefaultValues:           p.DefaultValues,
			FullTextSearchable:      b(p.FullTextSearchable, true),
			QueryOrderable:          b(p.QueryOrderable, true),
			AvailableQueryOperators: strings.Fields(p.AvailableQueryOperators),
		})
	}

	for _, n := range x.ChildNodeDefinitions {
		def.ChildNodeDefinitions = append(def.ChildNodeDefinitions, NodeDefinitionTemplate{
			Name:                 n.Name,
			AutoCreated:          b(n.AutoCreated, false),
			Mandatory:            b(n.Mandatory, false),
			Protected:            b(n.Protected, false),
			OnParentVersion:      onParentVersion(n.OnParentVersion),
			RequiredPrimaryTypes: trimAll(n.RequiredPrimaryTypes),
			DefaultPrimaryType:   strings.TrimSpace(n.DefaultPrimaryType),
			SameNameSiblings:     b(n.SameNameSiblings, false),
		})
	}
	return def, err
}

func parseXMLBool(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}

func onParentVersion(s string) OnParentVersion {
	if s == "" {
		return OnParentVersionCopy
	}
	return OnParentVersion(strings.ToUpper(strings.TrimSpace(s)))
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
