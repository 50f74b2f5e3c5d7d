// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

/*Package csql provides postgres database handles and the per-request
connection router.

Every configured logical database is backed by one handle. The Pool maps
database names to handles; Bind yields the execution context for exactly one
database and is called freshly for every request.
*/
package csql

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq" // load database driver for postgres

	"github.com/dynrest-tech/dynrest/core"
	"github.com/dynrest-tech/dynrest/core/logger"
)

// DB encapsulates a standard sql.DB with a schema
type DB struct {
	*sql.DB
	Schema string
}

// ErrNoRows is returned by Scan when QueryRow doesn't return a row.
var ErrNoRows = sql.ErrNoRows

// OpenWithSchema opens a postgres database with a schema. The schema gets
// created if it does not exist yet. The returned database also has the
// uuid-ossp extension loaded.
func OpenWithSchema(dataSourceName, schema string) (*DB, error) {
	rlog := logger.Default()
	rlog.Infoln("connecting to postgres database")
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if len(schema) == 0 {
		schema = "public"
	} else {
		rlog.Infoln("selected database schema:", schema)
		_, err = db.Exec(`CREATE extension IF NOT EXISTS "uuid-ossp";
CREATE schema IF NOT EXISTS "` + schema + `";
`)
		if err != nil {
			return nil, err
		}
	}
	return &DB{DB: db, Schema: schema}, nil
}

// MustOpenWithSchema is like OpenWithSchema but panics on error
func MustOpenWithSchema(dataSourceName, schema string) *DB {
	db, err := OpenWithSchema(dataSourceName, schema)
	if err != nil {
		panic(err)
	}
	return db
}

// ClearSchema clears all the data contained in the database's schema.
// Technically this is done by dropping the schema and then recreating it.
func (db *DB) ClearSchema() {
	if db.Schema == "public" {
		panic("refuse to drop public schema")
	}
	_, err := db.Exec(`DROP SCHEMA "` + db.Schema + `" CASCADE;
	CREATE schema IF NOT EXISTS "` + db.Schema + `";`)
	if err != nil {
		logger.Default().Errorln("clear schema error:", db.Schema, err.Error())
	}
}

// Pool is the connection router. It maps logical database names to their
// handles. The pool is built once at startup and read-only afterwards.
type Pool struct {
	handles map[string]*DB
}

// NewPool creates a pool from the given handles
func NewPool(handles map[string]*DB) *Pool {
	p := &Pool{handles: make(map[string]*DB, len(handles))}
	for name, db := range handles {
		p.handles[core.CanonicalName(name)] = db
	}
	return p
}

// Databases returns the names of all configured databases
func (p *Pool) Databases() []string {
	names := make([]string, 0, len(p.handles))
	for name := range p.handles {
		names = append(names, name)
	}
	return names
}

// Has returns true if the named database is configured
func (p *Pool) Has(databaseName string) bool {
	_, ok := p.handles[core.CanonicalName(databaseName)]
	return ok
}

// Bind yields the execution context for exactly one database. All storage
// operations within a request must use only this handle. Binding an unknown
// database yields an UnknownDatabase error.
func (p *Pool) Bind(databaseName string) (*DB, error) {
	db, ok := p.handles[core.CanonicalName(databaseName)]
	if !ok {
		return nil, core.Errorf(core.KindUnknownDatabase, "no such database '%s'", databaseName)
	}
	return db, nil
}

// Ping probes the reachability of the named database
func (p *Pool) Ping(ctx context.Context, databaseName string) error {
	db, err := p.Bind(databaseName)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return core.Errorf(core.KindDatabaseUnavailable, "database '%s' is not currently reachable", databaseName)
	}
	return nil
}

// Close closes all handles. Handles shared between logical databases are
// closed only once.
func (p *Pool) Close() {
	closed := map[*DB]bool{}
	for _, db := range p.handles {
		if !closed[db] {
			db.Close()
			closed[db] = true
		}
	}
}
