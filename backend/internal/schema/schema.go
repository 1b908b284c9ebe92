// Package schema reads declarative type definitions from YAML files and installs
// them through the core service.
package schema

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"dmx-platform/backend/internal/model"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

// Document is one schema file
type Document struct {
	TopicTypes []TypeDef `yaml:"topic_types"`
	AssocTypes []TypeDef `yaml:"assoc_types"`
}

// TypeDef declares a topic type or an association type
type TypeDef struct {
	URI        string                 `yaml:"uri"`
	Name       string                 `yaml:"name"`
	DataType   string                 `yaml:"data_type"`
	IndexModes []string               `yaml:"index_modes,omitempty"`
	CompDefs   []CompDefDef           `yaml:"comp_defs,omitempty"`
	ViewConfig map[string]interface{} `yaml:"view_config,omitempty"`
}

// CompDefDef declares one comp def of the enclosing type
type CompDefDef struct {
	Child           string                 `yaml:"child"`
	Kind            string                 `yaml:"kind,omitempty"`        // composition (default) or aggregation
	Cardinality     string                 `yaml:"cardinality,omitempty"` // one (default) or many
	CustomAssocType string                 `yaml:"custom_assoc_type,omitempty"`
	ViewConfig      map[string]interface{} `yaml:"view_config,omitempty"`
}

var dataTypes = map[string]string{
	"text":    model.DataTypeText,
	"html":    model.DataTypeHTML,
	"number":  model.DataTypeNumber,
	"boolean": model.DataTypeBoolean,
	"value":   model.DataTypeValue,
	"entity":  model.DataTypeEntity,
}

var indexModes = map[string]model.IndexMode{
	"key":          model.IndexKey,
	"fulltext":     model.IndexFulltext,
	"fulltext_key": model.IndexFulltextKey,
}

var cardinalities = map[string]string{
	"":     model.CardinalityOne,
	"one":  model.CardinalityOne,
	"many": model.CardinalityMany,
}

// LoadFile reads and parses a schema file
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a schema document. Unknown keys are rejected.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return &doc, nil
		}
		return nil, dmxerrors.NewValidation("schema", err.Error())
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks that every type has a URI and a known data type, and that URIs are unique
func (d *Document) Validate() error {
	seen := make(map[string]bool)
	for _, def := range d.all() {
		if strings.TrimSpace(def.URI) == "" {
			return dmxerrors.NewValidation("uri", "type without uri")
		}
		if seen[def.URI] {
			return dmxerrors.NewValidation("uri", "type "+def.URI+" declared twice")
		}
		seen[def.URI] = true
		if _, err := def.TypeModel(model.TopicType); err != nil {
			return err
		}
	}
	return nil
}

// all returns topic types followed by association types
func (d *Document) all() []TypeDef {
	out := make([]TypeDef, 0, len(d.TopicTypes)+len(d.AssocTypes))
	out = append(out, d.TopicTypes...)
	return append(out, d.AssocTypes...)
}

// TypeModel converts the declaration into an unsaved type of the given kind
func (def TypeDef) TypeModel(kind string) (*model.TypeModel, error) {
	dataType, err := resolveDataType(def.DataType)
	if err != nil {
		return nil, dmxerrors.NewValidation(def.URI+".data_type", err.Error())
	}
	name := def.Name
	if name == "" {
		name = def.URI
	}

	var tm *model.TypeModel
	if kind == model.AssocType {
		tm = model.NewAssocTypeModel(def.URI, name, dataType)
	} else {
		tm = model.NewTopicTypeModel(def.URI, name, dataType)
	}
	for _, m := range def.IndexModes {
		mode, ok := indexModes[m]
		if !ok {
			mode = model.IndexMode(m)
		}
		tm.AddIndexMode(mode)
	}
	if len(def.ViewConfig) > 0 {
		tm.ViewConfig = viewConfig(def.ViewConfig)
	}
	for _, c := range def.CompDefs {
		cd, err := c.CompDefModel(def.URI)
		if err != nil {
			return nil, err
		}
		tm.AddCompDef(cd)
	}
	return tm, nil
}

// CompDefModel converts the declaration into a comp def of parentURI
func (c CompDefDef) CompDefModel(parentURI string) (*model.CompDefModel, error) {
	field := parentURI + ".comp_defs." + c.Child
	if c.Child == "" {
		return nil, dmxerrors.NewValidation(parentURI+".comp_defs", "comp def without child")
	}
	card, ok := cardinalities[c.Cardinality]
	if !ok {
		return nil, dmxerrors.NewValidation(field, "unknown cardinality "+c.Cardinality)
	}

	var cd *model.CompDefModel
	switch c.Kind {
	case "", "composition":
		cd = model.NewCompositionDef(parentURI, c.Child, card)
	case "aggregation":
		cd = model.NewAggregationDef(parentURI, c.Child, card)
	default:
		return nil, dmxerrors.NewValidation(field, "unknown kind "+c.Kind)
	}
	if c.CustomAssocType != "" {
		cd.WithCustomAssocType(c.CustomAssocType)
	}
	if len(c.ViewConfig) > 0 {
		cd.ViewConfig = viewConfig(c.ViewConfig)
	}
	return cd, nil
}

func resolveDataType(s string) (string, error) {
	if uri, ok := dataTypes[s]; ok {
		return uri, nil
	}
	for _, uri := range dataTypes {
		if uri == s {
			return uri, nil
		}
	}
	return "", fmt.Errorf("unknown data type %q", s)
}

func viewConfig(settings map[string]interface{}) *model.ViewConfigModel {
	vc := model.NewViewConfigModel()
	for k, v := range settings {
		vc.Set(k, v)
	}
	return vc
}
