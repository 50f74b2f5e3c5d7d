// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

/*Package backend provides the generic request dispatcher.

The dispatcher owns no entity-specific endpoint code. Every request is routed
at request time: path parameters are parsed, the entity is resolved through
the schema registry, the database is authorized through the access policy,
the connection router yields the bound execution context, and the operation
runs through the dynamic serializer against that context. Resolution happens
freshly for every request so that authorization always reflects the current
policy and reachability.
*/
package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dynrest-tech/dynrest/core"
	"github.com/dynrest-tech/dynrest/core/csql"
	"github.com/dynrest-tech/dynrest/core/logger"
	"github.com/dynrest-tech/dynrest/core/policy"
	"github.com/dynrest-tech/dynrest/core/registry"
	"github.com/dynrest-tech/dynrest/core/serializer"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Backend is the generic rest backend
type Backend struct {
	registry             *registry.Registry
	policy               *policy.Policy
	pool                 *csql.Pool
	router               *mux.Router
	notifier             core.Notifier
	authorizationEnabled bool
	stores               map[string]*entityStore
	serializers          map[string]*serializer.Serializer
}

// Builder is a builder helper for the Backend
type Builder struct {
	// Config is the JSON description of all entities. This is mandatory.
	Config string
	// Pool maps database names to their handles. This is mandatory.
	Pool *csql.Pool
	// DefaultDatabase is the database protected entities are pinned to.
	// This is mandatory.
	DefaultDatabase string
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Notifier receives notifications for committed write operations.
	// This is optional.
	Notifier core.Notifier
	// AuthorizationEnabled requires an authenticated identity on every
	// operation when set.
	AuthorizationEnabled bool
	// UpdateSchema creates the entity tables at startup when set.
	UpdateSchema bool
}

// New realizes the actual backend. It creates the entity tables in their
// respective databases (if requested) and adds the dynamic routes to the
// router.
func New(bb *Builder) (*Backend, error) {
	if bb.Pool == nil {
		return nil, fmt.Errorf("pool is missing")
	}
	if bb.Router == nil {
		return nil, fmt.Errorf("router is missing")
	}

	reg, err := registry.New(bb.Config, bb.Pool.Databases(), bb.DefaultDatabase)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		registry: reg,
		policy: policy.New(policy.Config{
			Databases: bb.Pool.Databases(),
			Default:   bb.DefaultDatabase,
			Prober:    bb.Pool,
		}),
		pool:                 bb.Pool,
		router:               bb.Router,
		notifier:             bb.Notifier,
		authorizationEnabled: bb.AuthorizationEnabled,
		stores:               make(map[string]*entityStore),
		serializers:          make(map[string]*serializer.Serializer),
	}

	for _, desc := range reg.Entities() {
		db, err := bb.Pool.Bind(desc.Database)
		if err != nil {
			return nil, err
		}
		b.stores[desc.Name] = newEntityStore(desc, db.Schema)
		s, err := serializer.New(desc)
		if err != nil {
			return nil, err
		}
		b.serializers[desc.Name] = s
	}

	if bb.UpdateSchema {
		if err := b.updateSchema(); err != nil {
			return nil, err
		}
	}

	b.handleRoutes(bb.Router)
	return b, nil
}

// MustNew is like New but panics on error
func MustNew(bb *Builder) *Backend {
	b, err := New(bb)
	if err != nil {
		panic(err)
	}
	return b
}

// updateSchema creates the entity tables, referenced entities first so that
// the foreign key constraints can be generated.
func (b *Backend) updateSchema() error {
	created := map[string]bool{}
	remaining := b.registry.Entities()
	for len(remaining) > 0 {
		var next []*registry.EntityDescriptor
		for _, desc := range remaining {
			ready := true
			for _, f := range desc.Fields {
				if f.Type == registry.FieldForeignKey &&
					core.CanonicalName(f.References) != desc.Name &&
					!created[core.CanonicalName(f.References)] {
					ready = false
					break
				}
			}
			if !ready {
				next = append(next, desc)
				continue
			}
			db, err := b.pool.Bind(desc.Database)
			if err != nil {
				return err
			}
			if err := b.stores[desc.Name].ensureTable(db); err != nil {
				return fmt.Errorf("cannot create table for entity %s: %s", desc.Name, err)
			}
			created[desc.Name] = true
		}
		if len(next) == len(remaining) {
			return fmt.Errorf("circular foreign-key references in registry configuration")
		}
		remaining = next
	}
	return nil
}

// handleRoutes adds all necessary handlers for the dynamic routes
func (b *Backend) handleRoutes(router *mux.Router) {
	logger.Default().Debugln("backend: handle dynamic routes /{database}/{entity}/")

	router.HandleFunc("/{database}/{entity}/", b.listWithAuth).Methods(http.MethodGet)
	router.HandleFunc("/{database}/{entity}/", b.createWithAuth).Methods(http.MethodPost)
	router.HandleFunc("/{database}/{entity}/count/", b.countWithAuth).Methods(http.MethodGet)
	router.HandleFunc("/{database}/{entity}/{id}/", b.readWithAuth).Methods(http.MethodGet)
	router.HandleFunc("/{database}/{entity}/{id}/", b.updateWithAuth).Methods(http.MethodPut)
	router.HandleFunc("/{database}/{entity}/{id}/", b.patchWithAuth).Methods(http.MethodPatch)
	router.HandleFunc("/{database}/{entity}/{id}/", b.deleteWithAuth).Methods(http.MethodDelete)
}

// requestContext carries everything resolved for one request: the authorized
// database, the entity descriptor, the bound execution context, and the
// entity's store and serializer. It is built freshly per request and
// discarded with the response.
type requestContext struct {
	databaseName string
	desc         *registry.EntityDescriptor
	db           *csql.DB
	store        *entityStore
	serializer   *serializer.Serializer
}

// resolveRequest runs the resolution pipeline: parse parameters, resolve the
// entity, authorize the database, bind the execution context. Any failure
// short-circuits before storage is touched.
func (b *Backend) resolveRequest(r *http.Request) (*requestContext, error) {
	params := mux.Vars(r)

	desc, err := b.registry.Resolve(params["entity"])
	if err != nil {
		return nil, err
	}

	databaseName, err := b.policy.Authorize(r.Context(), params["database"], desc)
	if err != nil {
		return nil, err
	}

	db, err := b.pool.Bind(databaseName)
	if err != nil {
		return nil, err
	}

	return &requestContext{
		databaseName: databaseName,
		desc:         desc,
		db:           db,
		store:        b.stores[desc.Name],
		serializer:   b.serializers[desc.Name],
	}, nil
}

// references returns the foreign-key checker scoped to the bound execution
// context. Foreign keys only ever reference entities of the same database.
func (b *Backend) references(rc *requestContext) serializer.ReferenceChecker {
	return &referenceChecker{backend: b, db: rc.db}
}

type referenceChecker struct {
	backend *Backend
	db      *csql.DB
}

func (c *referenceChecker) Exists(ctx context.Context, entityName string, id uuid.UUID) (bool, error) {
	store, ok := c.backend.stores[core.CanonicalName(entityName)]
	if !ok {
		return false, core.Errorf(core.KindInternal, "unknown reference target %s", entityName)
	}
	return store.exists(ctx, c.db, id)
}
