// Package utils converts between typed structs and the untyped documents
// exchanged with executors and written by the CLI.
package utils

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Document is a JSON-shaped value: nested objects are map[string]any and
// arrays are []any.
type Document = map[string]any

// ToDocument converts a struct (or pointer to struct) into a Document by way
// of its JSON encoding, so json tags decide the keys. Unlike a raw-message
// encoding, nested structs come back as nested Documents, which lets callers
// walk or patch the payload before sending it.
func ToDocument[T any](record T) (Document, error) {
	val := reflect.ValueOf(record)
	if !val.IsValid() {
		return nil, fmt.Errorf("input record cannot be nil")
	}
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("input record cannot be a nil pointer to a struct")
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("input record must be a struct or a pointer to a struct, got %s", val.Kind())
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("ToDocument: failed to marshal record: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("ToDocument: failed to decode record: %w", err)
	}
	return doc, nil
}

// FromDocument is the inverse of ToDocument.
func FromDocument[T any](doc Document) (T, error) {
	var zero T
	if doc == nil {
		return zero, fmt.Errorf("FromDocument: document cannot be nil")
	}

	typ := reflect.TypeOf(zero)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return zero, fmt.Errorf("FromDocument: type must be a struct (or pointer to struct), got %s", typ.Kind())
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("FromDocument: failed to marshal document: %w", err)
	}
	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return zero, fmt.Errorf("FromDocument: failed to decode into %s: %w", typ.Name(), err)
	}
	return result, nil
}
