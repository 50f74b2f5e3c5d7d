// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

package core

import (
	"strings"

	"github.com/goccy/go-json"
)

// Operation represents a dispatcher operation, one of Create, Read, Update, Patch, Delete, List, Count
type Operation string

// all supported operations
const (
	OperationCreate Operation = "create"
	OperationRead   Operation = "read"
	OperationUpdate Operation = "update"
	OperationPatch  Operation = "patch"
	OperationDelete Operation = "delete"
	OperationList   Operation = "list"
	OperationCount  Operation = "count"
)

// UnmarshalJSON is a custom JSON unmarshaller
func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Operation(s)
	switch *o {
	case OperationCreate, OperationRead, OperationUpdate, OperationPatch,
		OperationDelete, OperationList, OperationCount:
		return nil
	default:
		return &Error{Kind: KindValidation, Detail: s + " is not a valid operation"}
	}
}

// CanonicalName normalizes an entity or database name for lookup.
//
// Names are matched case-insensitively throughout the system.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
