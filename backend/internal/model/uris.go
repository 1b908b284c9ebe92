package model

// Meta types
const (
	MetaType  = "dmx.core.meta_type"
	TopicType = "dmx.core.topic_type"
	AssocType = "dmx.core.assoc_type"
)

// Bootstrap topic types
const (
	DataTypeType    = "dmx.core.data_type"
	RoleTypeType    = "dmx.core.role_type"
	CardinalityType = "dmx.core.cardinality"
	IndexModeType   = "dmx.core.index_mode"
	ViewConfigType  = "dmx.core.view_config"
)

// Data types
const (
	DataTypeText    = "dmx.core.text"
	DataTypeHTML    = "dmx.core.html"
	DataTypeNumber  = "dmx.core.number"
	DataTypeBoolean = "dmx.core.boolean"
	DataTypeValue   = "dmx.core.value"
	DataTypeEntity  = "dmx.core.entity"
)

// Cardinalities
const (
	CardinalityOne  = "dmx.core.one"
	CardinalityMany = "dmx.core.many"
)

// Association types
const (
	AssocGeneric        = "dmx.core.association"
	AssocComposition    = "dmx.core.composition"
	AssocAggregation    = "dmx.core.aggregation"
	AssocCompositionDef = "dmx.core.composition_def"
	AssocAggregationDef = "dmx.core.aggregation_def"
	AssocSequence       = "dmx.core.sequence"
	AssocSequenceStart  = "dmx.core.sequence_start"
)

// Role types
const (
	RoleDefault           = "dmx.core.default"
	RoleParent            = "dmx.core.parent"
	RoleChild             = "dmx.core.child"
	RoleParentType        = "dmx.core.parent_type"
	RoleChildType         = "dmx.core.child_type"
	RoleType              = "dmx.core.type"
	RoleFirst             = "dmx.core.first"
	RolePredecessor       = "dmx.core.predecessor"
	RoleSuccessor         = "dmx.core.successor"
	RoleParentCardinality = "dmx.core.parent_cardinality"
	RoleChildCardinality  = "dmx.core.child_cardinality"
	RoleCustomAssocType   = "dmx.core.custom_assoc_type"
)

// compDefSeparator joins a child type URI and a custom association type URI
const compDefSeparator = "#"
