package model

import (
	"encoding/json"
)

// IndexMode controls how a type's instance values are indexed
type IndexMode string

const (
	IndexKey         IndexMode = "dmx.core.key"
	IndexFulltext    IndexMode = "dmx.core.fulltext"
	IndexFulltextKey IndexMode = "dmx.core.fulltext_key"
)

// IsKey reports whether the mode enables exact-match lookups
func (m IndexMode) IsKey() bool {
	return m == IndexKey || m == IndexFulltextKey
}

// IsFulltext reports whether the mode enables fulltext queries
func (m IndexMode) IsFulltext() bool {
	return m == IndexFulltext || m == IndexFulltextKey
}

// IndexModes is the set of modes configured for a type
type IndexModes []IndexMode

// HasKey reports whether any mode enables exact-match lookups
func (ms IndexModes) HasKey() bool {
	for _, m := range ms {
		if m.IsKey() {
			return true
		}
	}
	return false
}

// HasFulltext reports whether any mode enables fulltext queries
func (ms IndexModes) HasFulltext() bool {
	for _, m := range ms {
		if m.IsFulltext() {
			return true
		}
	}
	return false
}

// IsSimpleDataType reports whether values of the data type are scalars
func IsSimpleDataType(dataTypeURI string) bool {
	switch dataTypeURI {
	case DataTypeText, DataTypeHTML, DataTypeNumber, DataTypeBoolean:
		return true
	}
	return false
}

// IsCompositeDataType reports whether values of the data type are child topic trees
func IsCompositeDataType(dataTypeURI string) bool {
	return dataTypeURI == DataTypeValue || dataTypeURI == DataTypeEntity
}

// ViewConfigModel holds presentation settings. It is stored as a single topic
// whose value is the JSON encoding of Settings.
type ViewConfigModel struct {
	TopicID  int64                  `json:"id,omitempty"`
	Settings map[string]SimpleValue `json:"settings"`
}

// NewViewConfigModel creates an empty view config
func NewViewConfigModel() *ViewConfigModel {
	return &ViewConfigModel{TopicID: UnassignedID, Settings: make(map[string]SimpleValue)}
}

// Set stores one setting
func (v *ViewConfigModel) Set(key string, value interface{}) *ViewConfigModel {
	if v.Settings == nil {
		v.Settings = make(map[string]SimpleValue)
	}
	v.Settings[key] = NewSimpleValue(value)
	return v
}

// Get returns one setting
func (v *ViewConfigModel) Get(key string) (SimpleValue, bool) {
	if v == nil {
		return SimpleValue{}, false
	}
	s, ok := v.Settings[key]
	return s, ok
}

// IsEmpty reports whether no settings are present
func (v *ViewConfigModel) IsEmpty() bool {
	return v == nil || len(v.Settings) == 0
}

// Encode returns the stored form of the settings
func (v *ViewConfigModel) Encode() (string, error) {
	b, err := json.Marshal(v.Settings)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeViewConfig parses the stored form of a view config
func DecodeViewConfig(topicID int64, encoded string) (*ViewConfigModel, error) {
	vc := &ViewConfigModel{TopicID: topicID, Settings: make(map[string]SimpleValue)}
	if encoded == "" {
		return vc, nil
	}
	if err := json.Unmarshal([]byte(encoded), &vc.Settings); err != nil {
		return nil, err
	}
	return vc, nil
}

// Clone returns a deep copy
func (v *ViewConfigModel) Clone() *ViewConfigModel {
	if v == nil {
		return nil
	}
	c := &ViewConfigModel{TopicID: v.TopicID, Settings: make(map[string]SimpleValue, len(v.Settings))}
	for k, s := range v.Settings {
		c.Settings[k] = s
	}
	return c
}

// CompDefModel describes one parent -> child slot of a type. It is stored as an
// association between the parent type (parent-type role) and the child type (child-type role).
type CompDefModel struct {
	AssocID              int64            `json:"id"`
	Kind                 string           `json:"assocTypeUri" validate:"required,oneof=dmx.core.composition_def dmx.core.aggregation_def"`
	ParentTypeURI        string           `json:"parentTypeUri"`
	ChildTypeURI         string           `json:"childTypeUri" validate:"required"`
	CustomAssocTypeURI   string           `json:"customAssocTypeUri,omitempty"`
	ParentCardinalityURI string           `json:"parentCardinalityUri" validate:"omitempty,oneof=dmx.core.one dmx.core.many"`
	ChildCardinalityURI  string           `json:"childCardinalityUri" validate:"required,oneof=dmx.core.one dmx.core.many"`
	ViewConfig           *ViewConfigModel `json:"viewConfig,omitempty"`
}

// NewCompositionDef creates a composition definition (the parent owns the children)
func NewCompositionDef(parentTypeURI, childTypeURI, childCardinalityURI string) *CompDefModel {
	return &CompDefModel{
		AssocID:              UnassignedID,
		Kind:                 AssocCompositionDef,
		ParentTypeURI:        parentTypeURI,
		ChildTypeURI:         childTypeURI,
		ParentCardinalityURI: CardinalityOne,
		ChildCardinalityURI:  childCardinalityURI,
	}
}

// NewAggregationDef creates an aggregation definition (children are shared)
func NewAggregationDef(parentTypeURI, childTypeURI, childCardinalityURI string) *CompDefModel {
	cd := NewCompositionDef(parentTypeURI, childTypeURI, childCardinalityURI)
	cd.Kind = AssocAggregationDef
	cd.ParentCardinalityURI = CardinalityMany
	return cd
}

// WithCustomAssocType sets the instance-level association type
func (c *CompDefModel) WithCustomAssocType(assocTypeURI string) *CompDefModel {
	c.CustomAssocTypeURI = assocTypeURI
	return c
}

// URI is the key children of this comp def are stored under
func (c *CompDefModel) URI() string {
	return CompDefURI(c.ChildTypeURI, c.CustomAssocTypeURI)
}

// IsComposition reports whether the parent owns the children
func (c *CompDefModel) IsComposition() bool {
	return c.Kind == AssocCompositionDef
}

// IsMany reports whether the child cardinality is "many"
func (c *CompDefModel) IsMany() bool {
	return c.ChildCardinalityURI == CardinalityMany
}

// InstanceLevelAssocTypeURI is the type of the associations connecting instances
func (c *CompDefModel) InstanceLevelAssocTypeURI() string {
	if c.CustomAssocTypeURI != "" {
		return c.CustomAssocTypeURI
	}
	if c.IsComposition() {
		return AssocComposition
	}
	return AssocAggregation
}

// ChildFilter is the related-topic filter selecting this comp def's children of a parent
func (c *CompDefModel) ChildFilter() RelatedFilter {
	return RelatedFilter{
		AssocTypeURI:      c.InstanceLevelAssocTypeURI(),
		MyRoleTypeURI:     RoleParent,
		OthersRoleTypeURI: RoleChild,
		OthersTypeURI:     c.ChildTypeURI,
	}
}

// Clone returns a deep copy
func (c *CompDefModel) Clone() *CompDefModel {
	if c == nil {
		return nil
	}
	cc := *c
	cc.ViewConfig = c.ViewConfig.Clone()
	return &cc
}

// TypeModel is a topic type or an association type: a topic whose value is
// the type name, carrying a data type, index modes, ordered comp defs and a view config.
type TypeModel struct {
	TopicModel
	DataTypeURI string           `json:"dataTypeUri" validate:"required,oneof=dmx.core.text dmx.core.html dmx.core.number dmx.core.boolean dmx.core.value dmx.core.entity"`
	IndexModes  IndexModes       `json:"indexModes,omitempty" validate:"dive,oneof=dmx.core.key dmx.core.fulltext dmx.core.fulltext_key"`
	CompDefs    []*CompDefModel  `json:"compDefs,omitempty" validate:"dive"`
	ViewConfig  *ViewConfigModel `json:"viewConfig,omitempty"`
}

// NewTopicTypeModel creates an unsaved topic type
func NewTopicTypeModel(uri, name, dataTypeURI string) *TypeModel {
	t := &TypeModel{TopicModel: *NewTopicModel(TopicType, name), DataTypeURI: dataTypeURI}
	t.URI = uri
	return t
}

// NewAssocTypeModel creates an unsaved association type
func NewAssocTypeModel(uri, name, dataTypeURI string) *TypeModel {
	t := &TypeModel{TopicModel: *NewTopicModel(AssocType, name), DataTypeURI: dataTypeURI}
	t.URI = uri
	return t
}

// AddCompDef appends a comp def; the parent type is filled in
func (t *TypeModel) AddCompDef(cd *CompDefModel) *TypeModel {
	cd.ParentTypeURI = t.URI
	t.CompDefs = append(t.CompDefs, cd)
	return t
}

// AddIndexMode adds an index mode
func (t *TypeModel) AddIndexMode(mode IndexMode) *TypeModel {
	t.IndexModes = append(t.IndexModes, mode)
	return t
}

// Name returns the type's display name
func (t *TypeModel) Name() string {
	return t.Value.String()
}

// IsAssocType reports whether instances are associations
func (t *TypeModel) IsAssocType() bool {
	return t.TypeURI == AssocType
}

// IsSimple reports whether instances carry a scalar value
func (t *TypeModel) IsSimple() bool {
	return IsSimpleDataType(t.DataTypeURI)
}

// CompDef returns the comp def stored under compDefURI
func (t *TypeModel) CompDef(compDefURI string) (*CompDefModel, bool) {
	for _, cd := range t.CompDefs {
		if cd.URI() == compDefURI {
			return cd, true
		}
	}
	return nil, false
}

// CompDefURIs returns the comp def URIs in sequence order
func (t *TypeModel) CompDefURIs() []string {
	uris := make([]string, len(t.CompDefs))
	for i, cd := range t.CompDefs {
		uris[i] = cd.URI()
	}
	return uris
}

// Clone returns a deep copy
func (t *TypeModel) Clone() *TypeModel {
	if t == nil {
		return nil
	}
	c := *t
	c.TopicModel = *t.TopicModel.Clone()
	c.IndexModes = append(IndexModes(nil), t.IndexModes...)
	c.CompDefs = make([]*CompDefModel, len(t.CompDefs))
	for i, cd := range t.CompDefs {
		c.CompDefs[i] = cd.Clone()
	}
	c.ViewConfig = t.ViewConfig.Clone()
	return &c
}
