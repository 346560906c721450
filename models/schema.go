package models

// Relation kinds between objects. A LOOKUP or MASTER_DETAIL field on an
// object references another object by name; FOREIGN_KEY covers plain
// referential columns without builder-level semantics.
const (
	RelationLookup       = "lookup"
	RelationMasterDetail = "master_detail"
	RelationForeignKey   = "foreign_key"
)

// FieldDescriptor describes a single field of a logical object.
type FieldDescriptor struct {
	Type         string         `json:"type"`
	ReferenceTo  string         `json:"reference_to,omitempty"`
	RelationType string         `json:"relation_type,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// IndexMetadata is a schema-declared index, consumed read-only by the
// optimizer to emit index hints.
type IndexMetadata struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
	Unique bool     `json:"unique"`
}

// ObjectSchema is the full metadata of one logical object.
type ObjectSchema struct {
	Name    string                     `json:"name"`
	Fields  map[string]FieldDescriptor `json:"fields"`
	Indexes []IndexMetadata            `json:"indexes,omitempty"`
}

// DependencyEdge records that To depends on From: To holds a reference into
// From through FieldName.
type DependencyEdge struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Type      string `json:"type"`
	FieldName string `json:"field_name"`
}
