package core

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindForbiddenDatabase, http.StatusForbidden},
		{KindProtectedEntity, http.StatusForbidden},
		{KindEntityNotFound, http.StatusNotFound},
		{KindRecordNotFound, http.StatusNotFound},
		{KindTableMissing, http.StatusNotFound},
		{KindUnknownDatabase, http.StatusNotFound},
		{KindDatabaseUnavailable, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, Errorf(c.kind, "x").Status(), string(c.kind))
	}
}

func TestAsError(t *testing.T) {
	assert.Nil(t, AsError(nil))

	e := Errorf(KindRecordNotFound, "gone")
	assert.Equal(t, e, AsError(e))

	wrapped := AsError(errors.New("boom"))
	assert.Equal(t, KindInternal, wrapped.Kind)
	assert.Equal(t, "boom", wrapped.Detail)
}

func TestWriteErrorDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/db1/product/", nil)

	WriteError(rec, r, Errorf(KindForbiddenDatabase, "entity 'product' does not belong to database 'db2'"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "forbidden_database", body["code"])
	assert.Equal(t, "entity 'product' does not belong to database 'db2'", body["detail"])
}

func TestWriteErrorValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/db1/product/", nil)

	WriteError(rec, r, ValidationError(map[string][]string{
		"price": {"a valid number is required"},
		"name":  {"this field is required"},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"a valid number is required"}, body["price"])
	assert.Equal(t, []string{"this field is required"}, body["name"])
}

func TestWriteErrorInternalIsGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/db1/product/", nil)

	WriteError(rec, r, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body["detail"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestOperationUnmarshal(t *testing.T) {
	var op Operation
	require.NoError(t, json.Unmarshal([]byte(`"create"`), &op))
	assert.Equal(t, OperationCreate, op)

	assert.Error(t, json.Unmarshal([]byte(`"upsert"`), &op))
}

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "product", CanonicalName("  Product "))
	assert.Equal(t, "product", CanonicalName("PRODUCT"))
}
