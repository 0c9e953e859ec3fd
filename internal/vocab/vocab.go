// Package vocab holds the schema-constant table used to read and write graph
// store documents. Components receive a *Vocabulary instead of referring to
// string literals so that a deployment against a differently namespaced store
// only needs a different table.
package vocab

// Base namespaces of the graph store vocabulary.
const (
	SchemaOrg = "http://schema.org/"
	Meta      = "https://core.kg.ebrains.eu/vocab/meta/"
)

// JSON-LD keywords.
const (
	KeyID   = "@id"
	KeyType = "@type"
)

// Field widgets with special handling during merge and overlay.
const (
	WidgetNested       = "Nested"
	WidgetSingleNested = "SingleNested"
)

// Release tree scopes accepted by the release status lookup.
const (
	ScopeTopInstanceOnly        = "TOP_INSTANCE_ONLY"
	ScopeChildrenOnly           = "CHILDREN_ONLY"
	ScopeChildrenOnlyRestricted = "CHILDREN_ONLY_RESTRICTED"
)

// Release statuses.
const (
	StatusReleased   = "RELEASED"
	StatusHasChanged = "HAS_CHANGED"
	StatusUnreleased = "UNRELEASED"
)

// Vocabulary maps every logical key of a type structure or instance document
// to the fully-qualified property name used on the wire.
type Vocabulary struct {
	// Type structure keys.
	TypeName       string
	TypeLabel      string
	TypeDesc       string
	TypeColor      string
	LabelProperty  string
	Properties     string
	IncomingLinks  string
	EmbeddedOnly   string
	PromotedFields string

	// Field template keys.
	FieldName    string
	FieldLabel   string
	FieldOrder   string
	FieldWidget  string
	Searchable   string
	Required     string
	Regex        string
	MaxLength    string
	MinItems     string
	MaxItems     string
	MinValue     string
	MaxValue     string
	TargetTypes  string
	SourceTypes  string
	SourceType   string
	SourceSpaces string

	// Instance keys.
	Space        string
	Permissions  string
	Alternatives string
	Selected     string
	User         string
	Value        string
	LinkLabel    string
	UserPicture  string
}

// Default returns the vocabulary of the EBRAINS knowledge graph core.
func Default() *Vocabulary {
	return &Vocabulary{
		TypeName:       SchemaOrg + "identifier",
		TypeLabel:      SchemaOrg + "name",
		TypeDesc:       SchemaOrg + "description",
		TypeColor:      Meta + "color",
		LabelProperty:  Meta + "type/labelProperty",
		Properties:     Meta + "properties",
		IncomingLinks:  Meta + "incomingLinks",
		EmbeddedOnly:   Meta + "embeddedOnly",
		PromotedFields: Meta + "promotedFields",

		FieldName:    SchemaOrg + "identifier",
		FieldLabel:   SchemaOrg + "name",
		FieldOrder:   Meta + "property/order",
		FieldWidget:  Meta + "property/widget",
		Searchable:   Meta + "property/searchable",
		Required:     Meta + "property/required",
		Regex:        Meta + "property/regex",
		MaxLength:    Meta + "property/maxLength",
		MinItems:     Meta + "property/minItems",
		MaxItems:     Meta + "property/maxItems",
		MinValue:     Meta + "property/minValue",
		MaxValue:     Meta + "property/maxValue",
		TargetTypes:  Meta + "targetTypes",
		SourceTypes:  Meta + "sourceTypes",
		SourceType:   Meta + "type",
		SourceSpaces: Meta + "spaces",

		Space:        Meta + "space",
		Permissions:  Meta + "permissions",
		Alternatives: Meta + "alternative",
		Selected:     Meta + "selected",
		User:         Meta + "user",
		Value:        Meta + "value",
		LinkLabel:    SchemaOrg + "name",
		UserPicture:  SchemaOrg + "image",
	}
}
