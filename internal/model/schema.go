package model

// Schema type tags understood by the generative vendor.
const (
	TypeObject  = "OBJECT"
	TypeArray   = "ARRAY"
	TypeString  = "STRING"
	TypeInteger = "INTEGER"
	TypeNumber  = "NUMBER"
	TypeBoolean = "BOOLEAN"
)

// Schema is a strict output schema sent along with a structured request.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	// PropertyOrdering keeps generated fields in a stable order.
	PropertyOrdering []string `json:"propertyOrdering,omitempty"`
}

// String returns a STRING schema.
func String(desc string) *Schema { return &Schema{Type: TypeString, Description: desc} }

// Integer returns an INTEGER schema.
func Integer(desc string) *Schema { return &Schema{Type: TypeInteger, Description: desc} }

// Enum returns a STRING schema restricted to values.
func Enum(desc string, values ...string) *Schema {
	return &Schema{Type: TypeString, Description: desc, Enum: values}
}

// ArrayOf returns an ARRAY schema of items.
func ArrayOf(items *Schema) *Schema { return &Schema{Type: TypeArray, Items: items} }

// Field is one named property of an object schema.
type Field struct {
	Name   string
	Schema *Schema
}

// Object returns an OBJECT schema whose fields are all required, in order.
func Object(fields ...Field) *Schema {
	s := &Schema{Type: TypeObject, Properties: make(map[string]*Schema, len(fields))}
	for _, f := range fields {
		s.Properties[f.Name] = f.Schema
		s.Required = append(s.Required, f.Name)
		s.PropertyOrdering = append(s.PropertyOrdering, f.Name)
	}
	return s
}
