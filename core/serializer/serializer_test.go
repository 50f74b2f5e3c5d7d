package serializer

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynrest-tech/dynrest/core"
	"github.com/dynrest-tech/dynrest/core/registry"
)

var productDesc = &registry.EntityDescriptor{
	Name:     "product",
	Database: "db1",
	Fields: []registry.FieldDescriptor{
		{Name: "name", Type: registry.FieldString, Required: true},
		{Name: "description", Type: registry.FieldText},
		{Name: "price", Type: registry.FieldDecimal, Required: true},
		{Name: "category", Type: registry.FieldForeignKey, References: "category", Required: true},
	},
}

var animalDesc = &registry.EntityDescriptor{
	Name:     "animal",
	Database: "db2",
	Fields: []registry.FieldDescriptor{
		{Name: "name", Type: registry.FieldString, Required: true},
		{Name: "age", Type: registry.FieldInt, Required: true},
		{Name: "breed", Type: registry.FieldForeignKey, References: "breed", Nullable: true},
		{Name: "birthday", Type: registry.FieldDate, Nullable: true},
	},
}

type fakeRefs struct {
	existing map[uuid.UUID]bool
}

func (r *fakeRefs) Exists(ctx context.Context, entityName string, id uuid.UUID) (bool, error) {
	return r.existing[id], nil
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	e := core.AsError(err)
	require.Equal(t, core.KindValidation, e.Kind)
	return e.Fields
}

func TestValidateFullPayload(t *testing.T) {
	s := MustNew(productDesc)
	categoryID := uuid.New()
	refs := &fakeRefs{existing: map[uuid.UUID]bool{categoryID: true}}

	record, err := s.Validate(context.Background(), map[string]interface{}{
		"name":     "Laptop",
		"price":    json.Number("1199.90"),
		"category": categoryID.String(),
	}, false, refs)
	require.NoError(t, err)

	assert.Equal(t, "Laptop", record["name"])
	assert.Equal(t, json.Number("1199.90"), record["price"])
	assert.Equal(t, categoryID, record["category"])
	// absent optional field gets its zero value in full mode
	assert.Equal(t, "", record["description"])
}

func TestValidateMissingRequiredField(t *testing.T) {
	s := MustNew(productDesc)

	_, err := s.Validate(context.Background(), map[string]interface{}{
		"name": "Laptop",
	}, false, nil)
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "category")
}

func TestValidateRejectsUnknownField(t *testing.T) {
	s := MustNew(productDesc)

	_, err := s.Validate(context.Background(), map[string]interface{}{
		"name":      "Laptop",
		"price":     json.Number("10"),
		"category":  uuid.New().String(),
		"warehouse": "somewhere",
	}, false, nil)
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "warehouse")
}

func TestValidateDecimalAsString(t *testing.T) {
	s := MustNew(productDesc)
	categoryID := uuid.New()
	refs := &fakeRefs{existing: map[uuid.UUID]bool{categoryID: true}}

	record, err := s.Validate(context.Background(), map[string]interface{}{
		"name":     "Laptop",
		"price":    "99.90",
		"category": categoryID.String(),
	}, false, refs)
	require.NoError(t, err)
	assert.Equal(t, json.Number("99.90"), record["price"])

	_, err = s.Validate(context.Background(), map[string]interface{}{
		"name":     "Laptop",
		"price":    "not a number",
		"category": categoryID.String(),
	}, false, refs)
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "price")
}

func TestValidateDanglingReference(t *testing.T) {
	s := MustNew(productDesc)
	refs := &fakeRefs{existing: map[uuid.UUID]bool{}}

	_, err := s.Validate(context.Background(), map[string]interface{}{
		"name":     "Laptop",
		"price":    json.Number("10"),
		"category": uuid.New().String(),
	}, false, refs)
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "category")
}

func TestValidateMalformedUUID(t *testing.T) {
	s := MustNew(productDesc)

	_, err := s.Validate(context.Background(), map[string]interface{}{
		"name":     "Laptop",
		"price":    json.Number("10"),
		"category": "not-a-uuid",
	}, false, nil)
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "category")
}

func TestValidateNullableForeignKey(t *testing.T) {
	s := MustNew(animalDesc)

	record, err := s.Validate(context.Background(), map[string]interface{}{
		"name":  "Luna",
		"age":   json.Number("7"),
		"breed": nil,
	}, false, nil)
	require.NoError(t, err)
	assert.Nil(t, record["breed"])
	assert.Equal(t, int64(7), record["age"])
	// absent nullable field defaults to null in full mode
	assert.Nil(t, record["birthday"])
}

func TestValidateDateField(t *testing.T) {
	s := MustNew(animalDesc)

	record, err := s.Validate(context.Background(), map[string]interface{}{
		"name":     "Rex",
		"age":      json.Number("4"),
		"birthday": "2021-03-26",
	}, false, nil)
	require.NoError(t, err)
	birthday := record["birthday"].(time.Time)
	assert.Equal(t, 2021, birthday.Year())
	assert.Equal(t, time.March, birthday.Month())

	_, err = s.Validate(context.Background(), map[string]interface{}{
		"name":     "Rex",
		"age":      json.Number("4"),
		"birthday": "26/03/2021",
	}, false, nil)
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "birthday")
}

func TestValidatePartialMode(t *testing.T) {
	s := MustNew(productDesc)

	record, err := s.Validate(context.Background(), map[string]interface{}{
		"description": "updated",
	}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, Record{"description": "updated"}, record)
}

func TestValidateDropsGeneratedColumns(t *testing.T) {
	s := MustNew(animalDesc)

	record, err := s.Validate(context.Background(), map[string]interface{}{
		"id":        uuid.New().String(),
		"timestamp": "2024-01-01T00:00:00Z",
		"name":      "Mia",
		"age":       json.Number("2"),
	}, false, nil)
	require.NoError(t, err)
	_, hasID := record["id"]
	assert.False(t, hasID)
	_, hasTimestamp := record["timestamp"]
	assert.False(t, hasTimestamp)
}

func TestSerialize(t *testing.T) {
	s := MustNew(animalDesc)
	id := uuid.New()
	breedID := uuid.New()

	object := s.Serialize(Record{
		"id":       id,
		"name":     "Rex",
		"age":      int64(4),
		"breed":    breedID,
		"birthday": time.Date(2021, time.March, 26, 0, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, id.String(), object["id"])
	assert.Equal(t, "Rex", object["name"])
	assert.Equal(t, int64(4), object["age"])
	assert.Equal(t, breedID.String(), object["breed"])
	assert.Equal(t, "2021-03-26", object["birthday"])
}

func TestWriteOnlyFieldStaysOutOfWireOutput(t *testing.T) {
	s := MustNew(&registry.EntityDescriptor{
		Name:     "account",
		Database: "default",
		Fields: []registry.FieldDescriptor{
			{Name: "username", Type: registry.FieldString, Required: true},
			{Name: "password", Type: registry.FieldString, Required: true, WriteOnly: true},
		},
	})

	record, err := s.Validate(context.Background(), map[string]interface{}{
		"username": "admin",
		"password": "secret",
	}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "secret", record["password"])

	object := s.Serialize(record)
	assert.Equal(t, "admin", object["username"])
	_, hasPassword := object["password"]
	assert.False(t, hasPassword)
}

func TestSerializeRoundTripIsValidPayload(t *testing.T) {
	s := MustNew(animalDesc)
	breedID := uuid.New()
	refs := &fakeRefs{existing: map[uuid.UUID]bool{breedID: true}}

	object := s.Serialize(Record{
		"id":    uuid.New(),
		"name":  "Rex",
		"age":   int64(4),
		"breed": breedID,
	})

	record, err := s.Validate(context.Background(), object, false, refs)
	require.NoError(t, err)
	assert.Equal(t, "Rex", record["name"])
	assert.Equal(t, breedID, record["breed"])
}
