package docstore

import (
	"github.com/goccy/go-json"
)

// Reserved document fields managed by the store.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Document is a single record: field name to JSON-compatible value.
type Document map[string]interface{}

// ID returns the document identifier or an empty string.
func (d Document) ID() string {
	if d == nil {
		return ""
	}
	id, _ := d[FieldID].(string)
	return id
}

// Predicate selects documents during a scan.
type Predicate func(Document) bool

// Decode converts a document into a typed value.
func Decode(doc Document, out interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Fields converts a typed value (struct or map) into document fields so that
// stored values always have their decoded JSON shape.
func Fields(v interface{}) (Document, error) {
	if v == nil {
		return Document{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields Document
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = Document{}
	}
	return fields, nil
}

// FieldEquals builds a predicate matching a top-level field by value.
func FieldEquals(field string, value interface{}) Predicate {
	return func(d Document) bool {
		return d[field] == value
	}
}
