// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

package core

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/dynrest-tech/dynrest/core/logger"
)

// Kind classifies a domain error. Every failure the dispatcher can produce
// carries exactly one kind, which determines the HTTP status code and the
// machine-readable code in the response body.
type Kind string

// the error taxonomy
const (
	KindUnauthenticated     Kind = "not_authenticated"
	KindForbiddenDatabase   Kind = "forbidden_database"
	KindProtectedEntity     Kind = "forbidden_database_for_protected_entity"
	KindEntityNotFound      Kind = "entity_not_found"
	KindRecordNotFound      Kind = "record_not_found"
	KindTableMissing        Kind = "table_missing_in_database"
	KindUnknownDatabase     Kind = "unknown_database"
	KindDatabaseUnavailable Kind = "database_unavailable"
	KindValidation          Kind = "validation_error"
	KindInternal            Kind = "internal_error"
)

// Error is the domain error for the dispatcher and all its collaborators.
//
// Fields is only set for validation errors and maps field names to the
// list of reasons why the field was rejected.
type Error struct {
	Kind   Kind                `json:"code"`
	Detail string              `json:"detail"`
	Fields map[string][]string `json:"-"`
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %v", e.Kind, e.Fields)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Status returns the HTTP status code for the error kind.
//
// UnknownDatabase and DatabaseUnavailable are deliberately reported as
// not-found, symmetric with EntityNotFound, so that responses do not leak
// which databases are configured or reachable.
func (e *Error) Status() int {
	switch e.Kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbiddenDatabase, KindProtectedEntity:
		return http.StatusForbidden
	case KindEntityNotFound, KindRecordNotFound, KindTableMissing,
		KindUnknownDatabase, KindDatabaseUnavailable:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError builds a validation error with field-level reasons.
func ValidationError(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Detail: "invalid payload", Fields: fields}
}

// Errorf builds an error of the given kind with a formatted detail message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// AsError converts any error into a domain error. Unexpected errors are
// classified as internal; their detail never reaches the caller.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Kind: KindInternal, Detail: err.Error()}
}

// WriteError writes the error as a structured JSON response.
//
// Validation errors are rendered as {field: [reasons]}, everything else as
// {detail, code}. Internal errors are logged with full context and answered
// with a generic body.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	e := AsError(err)
	rlog := logger.FromContext(r.Context())

	var body interface{}
	switch {
	case e.Kind == KindInternal:
		rlog.WithError(e).Errorf("internal error on %s %s", r.Method, r.URL.Path)
		body = map[string]string{
			"detail": "internal error",
			"code":   string(KindInternal),
		}
	case len(e.Fields) > 0:
		body = e.Fields
	default:
		body = map[string]string{
			"detail": e.Detail,
			"code":   string(e.Kind),
		}
	}

	jsonData, _ := json.MarshalWithOption(body, json.DisableHTMLEscape())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.Status())
	w.Write(jsonData)
}
