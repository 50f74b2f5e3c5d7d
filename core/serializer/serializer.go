// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

/*Package serializer converts between the wire representation and the storage
representation of records.

There is one generic serializer, parameterized by an EntityDescriptor value.
It compiles a JSON schema for the descriptor once and validates payloads
against it, accumulating field-level errors the way the REST surface reports
them.
*/
package serializer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/dynrest-tech/dynrest/core"
	"github.com/dynrest-tech/dynrest/core/registry"
)

// Record is an instance of some entity: a mapping from field name to a typed
// storage value. Records always include the generated primary key.
type Record map[string]interface{}

// ReferenceChecker verifies that a foreign key references an existing record.
// The check runs against the same bound execution context as the write, so a
// dangling reference is a validation error and never a storage error.
type ReferenceChecker interface {
	Exists(ctx context.Context, entityName string, id uuid.UUID) (bool, error)
}

const dateFormat = "2006-01-02"

// Serializer validates payloads and shapes responses for one entity
type Serializer struct {
	desc    *registry.EntityDescriptor
	full    *gojsonschema.Schema
	partial *gojsonschema.Schema
}

// New compiles the JSON schemas for the descriptor. The full schema enforces
// required fields, the partial schema relaxes them for PATCH.
func New(desc *registry.EntityDescriptor) (*Serializer, error) {
	full, err := compileSchema(desc, false)
	if err != nil {
		return nil, fmt.Errorf("cannot compile schema for entity %s: %s", desc.Name, err)
	}
	partial, err := compileSchema(desc, true)
	if err != nil {
		return nil, fmt.Errorf("cannot compile partial schema for entity %s: %s", desc.Name, err)
	}
	return &Serializer{desc: desc, full: full, partial: partial}, nil
}

// MustNew is like New but panics on error. Schema compilation can only fail
// on invalid descriptors, which the registry rejects at startup.
func MustNew(desc *registry.EntityDescriptor) *Serializer {
	s, err := New(desc)
	if err != nil {
		panic(err)
	}
	return s
}

func compileSchema(desc *registry.EntityDescriptor, partial bool) (*gojsonschema.Schema, error) {
	properties := map[string]interface{}{}
	required := []string{}
	for _, f := range desc.Fields {
		properties[f.Name] = fieldSchema(f)
		if !partial && f.Required {
			required = append(required, f.Name)
		}
	}
	doc := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
}

func fieldSchema(f registry.FieldDescriptor) map[string]interface{} {
	var s map[string]interface{}
	switch f.Type {
	case registry.FieldUUID, registry.FieldForeignKey:
		s = map[string]interface{}{"type": "string", "format": "uuid"}
	case registry.FieldString:
		s = map[string]interface{}{"type": "string", "maxLength": 255}
	case registry.FieldText:
		s = map[string]interface{}{"type": "string"}
	case registry.FieldInt:
		s = map[string]interface{}{"type": "integer"}
	case registry.FieldDecimal:
		// decimals travel as JSON numbers or as numeric strings
		s = map[string]interface{}{
			"type":    []string{"number", "string"},
			"pattern": `^-?[0-9]+(\.[0-9]+)?$`,
		}
	case registry.FieldDate:
		s = map[string]interface{}{"type": "string", "format": "date"}
	}
	if f.Nullable {
		switch t := s["type"].(type) {
		case string:
			s["type"] = []string{t, "null"}
		case []string:
			s["type"] = append(t, "null")
		}
	}
	return s
}

// Validate checks the payload against the entity schema and converts it into
// a storage record. In partial mode only supplied fields are validated and
// returned; in full mode every required field must be present.
//
// The primary key and generated columns are read-only and silently dropped
// from the payload, so a previously serialized record is a valid payload for
// a full update.
func (s *Serializer) Validate(ctx context.Context, payload map[string]interface{}, partial bool, refs ReferenceChecker) (Record, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	delete(payload, s.desc.PrimaryKey())
	delete(payload, "timestamp")

	schema := s.full
	if partial {
		schema = s.partial
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return nil, core.AsError(err)
	}

	fieldErrors := map[string][]string{}
	if !result.Valid() {
		for _, e := range result.Errors() {
			field := e.Field()
			if field == "(root)" {
				if property, ok := e.Details()["property"].(string); ok {
					field = property
				} else {
					field = "non_field_errors"
				}
			}
			fieldErrors[field] = append(fieldErrors[field], e.Description())
		}
		return nil, core.ValidationError(fieldErrors)
	}

	record := Record{}
	for _, f := range s.desc.Fields {
		value, ok := payload[f.Name]
		if !ok {
			if partial {
				continue
			}
			if f.Required {
				// cannot happen, the schema enforces required fields
				fieldErrors[f.Name] = append(fieldErrors[f.Name], "this field is required")
				continue
			}
			if f.Nullable {
				record[f.Name] = nil
			} else {
				record[f.Name] = zeroValue(f)
			}
			continue
		}
		if value == nil {
			record[f.Name] = nil
			continue
		}
		converted, reason := convertValue(f, value)
		if reason != "" {
			fieldErrors[f.Name] = append(fieldErrors[f.Name], reason)
			continue
		}
		record[f.Name] = converted
	}
	if len(fieldErrors) > 0 {
		return nil, core.ValidationError(fieldErrors)
	}

	if refs != nil {
		if err := s.checkReferences(ctx, record, refs); err != nil {
			return nil, err
		}
	}
	return record, nil
}

func (s *Serializer) checkReferences(ctx context.Context, record Record, refs ReferenceChecker) error {
	fieldErrors := map[string][]string{}
	for _, f := range s.desc.Fields {
		if f.Type != registry.FieldForeignKey {
			continue
		}
		value, ok := record[f.Name]
		if !ok || value == nil {
			continue
		}
		id := value.(uuid.UUID)
		exists, err := refs.Exists(ctx, f.References, id)
		if err != nil {
			return core.AsError(err)
		}
		if !exists {
			fieldErrors[f.Name] = append(fieldErrors[f.Name],
				fmt.Sprintf("%s with id %s does not exist", f.References, id))
		}
	}
	if len(fieldErrors) > 0 {
		return core.ValidationError(fieldErrors)
	}
	return nil
}

func zeroValue(f registry.FieldDescriptor) interface{} {
	switch f.Type {
	case registry.FieldString, registry.FieldText:
		return ""
	case registry.FieldInt:
		return int64(0)
	case registry.FieldDecimal:
		return json.Number("0")
	default:
		return nil
	}
}

// convertValue converts a schema-validated wire value into its storage
// representation. It returns a rejection reason for values the schema cannot
// fully pin down, such as malformed UUID variants.
func convertValue(f registry.FieldDescriptor, value interface{}) (interface{}, string) {
	switch f.Type {
	case registry.FieldUUID, registry.FieldForeignKey:
		id, err := uuid.Parse(value.(string))
		if err != nil {
			return nil, "must be a valid uuid"
		}
		return id, ""
	case registry.FieldString, registry.FieldText:
		return value.(string), ""
	case registry.FieldInt:
		switch v := value.(type) {
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return nil, "a valid integer is required"
			}
			return n, ""
		case float64:
			return int64(v), ""
		case int:
			return int64(v), ""
		case int64:
			return v, ""
		default:
			return nil, "a valid integer is required"
		}
	case registry.FieldDecimal:
		switch v := value.(type) {
		case json.Number:
			return v, ""
		case float64:
			return json.Number(strconv.FormatFloat(v, 'f', -1, 64)), ""
		case string:
			return json.Number(v), ""
		default:
			return nil, "a valid number is required"
		}
	case registry.FieldDate:
		t, err := time.Parse(dateFormat, value.(string))
		if err != nil {
			return nil, "date has wrong format, use YYYY-MM-DD"
		}
		return t, ""
	}
	return nil, "unsupported field type"
}

// Serialize produces the wire representation of a record: a mapping with
// every readable field plus the primary key. Foreign keys are rendered as
// the referenced identifier, never as a nested object. Write-only fields
// are left out.
func (s *Serializer) Serialize(record Record) map[string]interface{} {
	object := map[string]interface{}{}
	pk := s.desc.PrimaryKey()
	if id, ok := record[pk]; ok {
		object[pk] = wireValue(registry.FieldDescriptor{Type: registry.FieldUUID}, id)
	}
	for _, f := range s.desc.Fields {
		if f.WriteOnly {
			continue
		}
		object[f.Name] = wireValue(f, record[f.Name])
	}
	return object
}

func wireValue(f registry.FieldDescriptor, value interface{}) interface{} {
	if value == nil {
		return nil
	}
	switch f.Type {
	case registry.FieldUUID, registry.FieldForeignKey:
		switch v := value.(type) {
		case uuid.UUID:
			return v.String()
		case string:
			return v
		}
	case registry.FieldDate:
		if t, ok := value.(time.Time); ok {
			return t.Format(dateFormat)
		}
	}
	return value
}
