// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

/*Package registry provides the static schema registry.

The registry maps logical entity names to their descriptors. It is populated
once at startup from a JSON configuration and is read-only afterwards, which
makes it safe for concurrent use by all request handlers.
*/
package registry

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/dynrest-tech/dynrest/core"
)

// FieldType is the semantic type of an entity field
type FieldType string

// all supported field types
const (
	FieldUUID       FieldType = "uuid"
	FieldString     FieldType = "string"
	FieldText       FieldType = "text"
	FieldInt        FieldType = "int"
	FieldDecimal    FieldType = "decimal"
	FieldDate       FieldType = "date"
	FieldForeignKey FieldType = "foreign-key"
)

// UnmarshalJSON is a custom JSON unmarshaller
func (f *FieldType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = FieldType(s)
	switch *f {
	case FieldUUID, FieldString, FieldText, FieldInt, FieldDecimal, FieldDate, FieldForeignKey:
		return nil
	default:
		return fmt.Errorf("%s is not a valid field type", s)
	}
}

// FieldDescriptor describes one field of an entity
type FieldDescriptor struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
	// Nullable fields accept null as value
	Nullable bool `json:"nullable"`
	// Required fields must be present on create and full update
	Required bool `json:"required"`
	// WriteOnly fields are accepted on write but never serialized,
	// for credentials and similar secrets
	WriteOnly bool `json:"write_only"`
	// References names the target entity for foreign-key fields
	References string `json:"references,omitempty"`
}

// EntityDescriptor is the static description of an entity: its schema and its
// owning database. Descriptors are immutable once registered.
type EntityDescriptor struct {
	Name     string `json:"name"`
	Database string `json:"database"`
	// Protected entities are pinned to the default database regardless of
	// the database requested by the caller
	Protected bool              `json:"protected"`
	Fields    []FieldDescriptor `json:"fields"`
}

// PrimaryKey returns the name of the primary key field. The primary key is a
// generated UUID, assigned at creation and never reassigned.
func (e *EntityDescriptor) PrimaryKey() string {
	return "id"
}

// Field returns the descriptor for the named field
func (e *EntityDescriptor) Field(name string) (FieldDescriptor, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Configuration is the JSON description of all registered entities
type Configuration struct {
	Entities []EntityDescriptor `json:"entities"`
}

// Registry maps logical entity names to their descriptors
type Registry struct {
	entities map[string]*EntityDescriptor
}

// New builds a registry from the JSON configuration. The known database names
// and the designated default database are needed to validate the descriptors:
// every entity must live in a known database, protected entities must live in
// the default database, and foreign keys must reference an entity of the same
// database.
func New(configJSON string, databases []string, defaultDatabase string) (*Registry, error) {
	var config Configuration
	if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
		return nil, fmt.Errorf("parse error in registry configuration: %s", err)
	}

	known := map[string]bool{}
	for _, db := range databases {
		known[core.CanonicalName(db)] = true
	}
	if !known[core.CanonicalName(defaultDatabase)] {
		return nil, fmt.Errorf("default database %s is not a known database", defaultDatabase)
	}

	r := &Registry{entities: make(map[string]*EntityDescriptor)}
	for i := range config.Entities {
		e := config.Entities[i]
		e.Name = core.CanonicalName(e.Name)
		e.Database = core.CanonicalName(e.Database)
		if e.Name == "" {
			return nil, fmt.Errorf("entity without name in registry configuration")
		}
		if _, ok := r.entities[e.Name]; ok {
			return nil, fmt.Errorf("duplicate entity %s", e.Name)
		}
		if e.Protected {
			if e.Database == "" {
				e.Database = core.CanonicalName(defaultDatabase)
			} else if e.Database != core.CanonicalName(defaultDatabase) {
				return nil, fmt.Errorf("protected entity %s must live in the default database", e.Name)
			}
		}
		if !known[e.Database] {
			return nil, fmt.Errorf("entity %s declares unknown database %s", e.Name, e.Database)
		}
		if err := validateFields(&e); err != nil {
			return nil, err
		}
		r.entities[e.Name] = &e
	}

	// foreign keys must reference a registered entity in the same database
	for _, e := range r.entities {
		for _, f := range e.Fields {
			if f.Type != FieldForeignKey {
				continue
			}
			target, ok := r.entities[core.CanonicalName(f.References)]
			if !ok {
				return nil, fmt.Errorf("entity %s field %s references unknown entity %s",
					e.Name, f.Name, f.References)
			}
			if target.Database != e.Database {
				return nil, fmt.Errorf("entity %s field %s references entity %s in a different database",
					e.Name, f.Name, f.References)
			}
		}
	}

	return r, nil
}

// MustNew is like New but panics on configuration errors. Registry
// configuration is static; an invalid configuration is a programming error.
func MustNew(configJSON string, databases []string, defaultDatabase string) *Registry {
	r, err := New(configJSON, databases, defaultDatabase)
	if err != nil {
		panic(err)
	}
	return r
}

func validateFields(e *EntityDescriptor) error {
	if len(e.Fields) == 0 {
		return fmt.Errorf("entity %s has no fields", e.Name)
	}
	seen := map[string]bool{}
	for _, f := range e.Fields {
		if f.Name == "" {
			return fmt.Errorf("entity %s has a field without name", e.Name)
		}
		if f.Name == e.PrimaryKey() || f.Name == "timestamp" {
			return fmt.Errorf("entity %s field %s collides with a generated column", e.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("entity %s has duplicate field %s", e.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Type == FieldForeignKey && f.References == "" {
			return fmt.Errorf("entity %s foreign-key field %s lacks references", e.Name, f.Name)
		}
		if f.Type != FieldForeignKey && f.References != "" {
			return fmt.Errorf("entity %s field %s is not a foreign key but references %s",
				e.Name, f.Name, f.References)
		}
	}
	return nil
}

// Resolve returns the descriptor for the named entity. Lookup is
// case-insensitive. Unknown entities yield an EntityNotFound error.
func (r *Registry) Resolve(entityName string) (*EntityDescriptor, error) {
	e, ok := r.entities[core.CanonicalName(entityName)]
	if !ok {
		return nil, core.Errorf(core.KindEntityNotFound, "no such entity '%s'", entityName)
	}
	return e, nil
}

// Entities returns all registered descriptors. The result is a fresh slice,
// the descriptors themselves are shared and must not be modified.
func (r *Registry) Entities() []*EntityDescriptor {
	all := make([]*EntityDescriptor, 0, len(r.entities))
	for _, e := range r.entities {
		all = append(all, e)
	}
	return all
}
