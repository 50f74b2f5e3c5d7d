// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dynrest-tech/dynrest/core"
	"github.com/dynrest-tech/dynrest/core/csql"
	"github.com/dynrest-tech/dynrest/core/registry"
	"github.com/dynrest-tech/dynrest/core/serializer"
)

// entityStore holds the SQL for one entity. The queries are generated once at
// startup from the descriptor; at request time they are executed against the
// execution context bound for the request.
type entityStore struct {
	desc    *registry.EntityDescriptor
	columns []string

	createQuery string
	insertQuery string
	readQuery   string
	listQuery   string
	countQuery  string
	updateQuery string
	deleteQuery string
	existsQuery string
}

// returns $1,...,$n
func parameterString(n int) string {
	result := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			result += ","
		}
		result += "$" + strconv.Itoa(i+1)
	}
	return result
}

func columnType(f registry.FieldDescriptor) string {
	var sqlType string
	switch f.Type {
	case registry.FieldUUID, registry.FieldForeignKey:
		sqlType = "uuid"
	case registry.FieldString:
		sqlType = "varchar(255)"
	case registry.FieldText:
		sqlType = "text"
	case registry.FieldInt:
		sqlType = "bigint"
	case registry.FieldDecimal:
		sqlType = "numeric"
	case registry.FieldDate:
		sqlType = "date"
	}
	if f.Nullable {
		return sqlType + " NULL"
	}
	return sqlType + " NOT NULL"
}

func newEntityStore(desc *registry.EntityDescriptor, schema string) *entityStore {
	table := fmt.Sprintf("\"%s\".\"%s\"", schema, desc.Name)
	pk := desc.PrimaryKey()

	columns := []string{pk}
	createColumns := []string{pk + " uuid NOT NULL PRIMARY KEY"}
	for _, f := range desc.Fields {
		columns = append(columns, f.Name)
		createColumn := fmt.Sprintf("\"%s\" %s", f.Name, columnType(f))
		if f.Type == registry.FieldForeignKey {
			onDelete := "CASCADE"
			if f.Nullable {
				onDelete = "SET NULL"
			}
			createColumn += fmt.Sprintf(" REFERENCES \"%s\".\"%s\" (%s) ON DELETE %s",
				schema, core.CanonicalName(f.References), pk, onDelete)
		}
		createColumns = append(createColumns, createColumn)
	}
	createColumns = append(createColumns, "timestamp timestamptz NOT NULL DEFAULT now()")

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = "\"" + c + "\""
	}
	columnList := strings.Join(quoted, ", ")

	sets := make([]string, len(columns)-1)
	for i := 1; i < len(columns); i++ {
		sets[i-1] = quoted[i] + " = $" + strconv.Itoa(i+1)
	}

	return &entityStore{
		desc:    desc,
		columns: columns,
		createQuery: fmt.Sprintf("CREATE table IF NOT EXISTS %s (%s);",
			table, strings.Join(createColumns, ", ")),
		insertQuery: fmt.Sprintf("INSERT INTO %s (%s) VALUES(%s);",
			table, columnList, parameterString(len(columns))),
		readQuery: fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1;", columnList, table, pk),
		listQuery: fmt.Sprintf("SELECT %s, count(*) OVER() AS full_count FROM %s ORDER BY %s LIMIT $1 OFFSET $2;",
			columnList, table, pk),
		countQuery: fmt.Sprintf("SELECT count(*) FROM %s;", table),
		updateQuery: fmt.Sprintf("UPDATE %s SET %s WHERE %s = $1 RETURNING %s;",
			table, strings.Join(sets, ", "), pk, pk),
		deleteQuery: fmt.Sprintf("DELETE FROM %s WHERE %s = $1 RETURNING %s;",
			table, pk, columnList),
		existsQuery: fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1;", pk, table, pk),
	}
}

// ensureTable creates the entity's table in its database if it does not
// exist yet
func (s *entityStore) ensureTable(db *csql.DB) error {
	_, err := db.Exec(s.createQuery)
	return err
}

// classify maps storage faults to domain errors. An absent table despite
// passing authorization indicates configuration drift and is reported as
// TableMissingInDatabase; everything unexpected stays internal.
func (s *entityStore) classify(err error, databaseName string) error {
	if err == nil {
		return nil
	}
	if err == csql.ErrNoRows {
		return core.Errorf(core.KindRecordNotFound, "no %s matches the given id", s.desc.Name)
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "42P01": // undefined_table
			return core.Errorf(core.KindTableMissing,
				"table '%s' does not exist in database '%s'", s.desc.Name, databaseName)
		case "22P02": // invalid_text_representation
			return core.Errorf(core.KindRecordNotFound, "no %s matches the given id", s.desc.Name)
		}
	}
	return core.AsError(err)
}

// scanDestinations returns one sql.Scanner per column plus a closure that
// converts the scanned values into a record.
func (s *entityStore) scanDestinations(extra ...interface{}) ([]interface{}, func() serializer.Record) {
	values := make([]interface{}, len(s.columns), len(s.columns)+len(extra))
	values[0] = &uuid.UUID{}
	for i, f := range s.desc.Fields {
		switch f.Type {
		case registry.FieldUUID, registry.FieldForeignKey:
			values[i+1] = &uuid.NullUUID{}
		case registry.FieldString, registry.FieldText, registry.FieldDecimal:
			values[i+1] = &sql.NullString{}
		case registry.FieldInt:
			values[i+1] = &sql.NullInt64{}
		case registry.FieldDate:
			values[i+1] = &sql.NullTime{}
		}
	}
	values = append(values, extra...)

	toRecord := func() serializer.Record {
		record := serializer.Record{}
		record[s.desc.PrimaryKey()] = *values[0].(*uuid.UUID)
		for i, f := range s.desc.Fields {
			switch v := values[i+1].(type) {
			case *uuid.NullUUID:
				if v.Valid {
					record[f.Name] = v.UUID
				} else {
					record[f.Name] = nil
				}
			case *sql.NullString:
				if !v.Valid {
					record[f.Name] = nil
				} else if f.Type == registry.FieldDecimal {
					record[f.Name] = json.Number(v.String)
				} else {
					record[f.Name] = v.String
				}
			case *sql.NullInt64:
				if v.Valid {
					record[f.Name] = v.Int64
				} else {
					record[f.Name] = nil
				}
			case *sql.NullTime:
				if v.Valid {
					record[f.Name] = v.Time
				} else {
					record[f.Name] = nil
				}
			}
		}
		return record
	}
	return values, toRecord
}

// argValue converts a record value into its driver representation
func argValue(f registry.FieldDescriptor, value interface{}) interface{} {
	if value == nil {
		return nil
	}
	if n, ok := value.(json.Number); ok {
		return string(n)
	}
	return value
}

func (s *entityStore) queryArgs(id uuid.UUID, record serializer.Record) []interface{} {
	args := make([]interface{}, len(s.columns))
	args[0] = id
	for i, f := range s.desc.Fields {
		args[i+1] = argValue(f, record[f.Name])
	}
	return args
}

func (s *entityStore) insert(ctx context.Context, db *csql.DB, id uuid.UUID, record serializer.Record) error {
	_, err := db.ExecContext(ctx, s.insertQuery, s.queryArgs(id, record)...)
	return s.classify(err, db.Schema)
}

func (s *entityStore) get(ctx context.Context, db *csql.DB, id uuid.UUID) (serializer.Record, error) {
	values, toRecord := s.scanDestinations()
	err := db.QueryRowContext(ctx, s.readQuery, id).Scan(values...)
	if err != nil {
		return nil, s.classify(err, db.Schema)
	}
	return toRecord(), nil
}

func (s *entityStore) list(ctx context.Context, db *csql.DB, limit, offset int) ([]serializer.Record, int, error) {
	rows, err := db.QueryContext(ctx, s.listQuery, limit, offset)
	if err != nil {
		return nil, 0, s.classify(err, db.Schema)
	}
	defer rows.Close()

	records := []serializer.Record{}
	var totalCount int
	for rows.Next() {
		values, toRecord := s.scanDestinations(&totalCount)
		if err := rows.Scan(values...); err != nil {
			return nil, 0, s.classify(err, db.Schema)
		}
		records = append(records, toRecord())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, s.classify(err, db.Schema)
	}
	if len(records) == 0 {
		// sql does not return the total count for pages beyond the end,
		// hence we need a second query
		totalCount, err = s.count(ctx, db)
		if err != nil {
			return nil, 0, err
		}
	}
	return records, totalCount, nil
}

func (s *entityStore) count(ctx context.Context, db *csql.DB) (int, error) {
	var totalCount int
	err := db.QueryRowContext(ctx, s.countQuery).Scan(&totalCount)
	if err != nil {
		return 0, s.classify(err, db.Schema)
	}
	return totalCount, nil
}

func (s *entityStore) update(ctx context.Context, db *csql.DB, id uuid.UUID, record serializer.Record) error {
	var primaryID uuid.UUID
	err := db.QueryRowContext(ctx, s.updateQuery, s.queryArgs(id, record)...).Scan(&primaryID)
	return s.classify(err, db.Schema)
}

// delete removes the record and returns it, so the caller can include the
// deleted state in notifications
func (s *entityStore) delete(ctx context.Context, db *csql.DB, id uuid.UUID) (serializer.Record, error) {
	values, toRecord := s.scanDestinations()
	err := db.QueryRowContext(ctx, s.deleteQuery, id).Scan(values...)
	if err != nil {
		return nil, s.classify(err, db.Schema)
	}
	return toRecord(), nil
}

func (s *entityStore) exists(ctx context.Context, db *csql.DB, id uuid.UUID) (bool, error) {
	var primaryID uuid.UUID
	err := db.QueryRowContext(ctx, s.existsQuery, id).Scan(&primaryID)
	if err == csql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, s.classify(err, db.Schema)
	}
	return true, nil
}
