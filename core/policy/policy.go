// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

/*Package policy decides which database/entity combinations are legal.

The policy is an immutable configuration built at startup: the closed set of
known databases, the designated default database, and a liveness prober. It is
consulted freshly for every request, before any storage access occurs.
*/
package policy

import (
	"context"

	"github.com/dynrest-tech/dynrest/core"
	"github.com/dynrest-tech/dynrest/core/registry"
)

// Prober probes the reachability of a database. Implemented by csql.Pool.
type Prober interface {
	Ping(ctx context.Context, databaseName string) error
}

// Config is the immutable policy configuration
type Config struct {
	// Databases is the closed set of known database names
	Databases []string
	// Default is the database protected entities are pinned to
	Default string
	// Prober checks database liveness; nil disables the check
	Prober Prober
}

// Policy validates (database, entity) combinations
type Policy struct {
	known       map[string]bool
	defaultName string
	prober      Prober
}

// New creates a policy from the configuration
func New(config Config) *Policy {
	p := &Policy{
		known:       make(map[string]bool, len(config.Databases)),
		defaultName: core.CanonicalName(config.Default),
		prober:      config.Prober,
	}
	for _, name := range config.Databases {
		p.known[core.CanonicalName(name)] = true
	}
	return p
}

// Default returns the name of the default database
func (p *Policy) Default() string {
	return p.defaultName
}

// Authorize validates that the entity may be served from the requested
// database and returns the authorized database name.
//
// The check order is fixed: unknown-database detection precedes any
// connectivity probe, and protection-group enforcement precedes reachability
// checks. Protected entities are never silently redirected; a caller naming
// any database other than the default is rejected.
func (p *Policy) Authorize(ctx context.Context, databaseName string, e *registry.EntityDescriptor) (string, error) {
	name := core.CanonicalName(databaseName)

	if !p.known[name] {
		return "", core.Errorf(core.KindUnknownDatabase, "no such database '%s'", databaseName)
	}

	if e.Protected {
		if name != p.defaultName {
			return "", core.Errorf(core.KindProtectedEntity,
				"entity '%s' is protected and only served from the default database", e.Name)
		}
	} else if name != e.Database {
		return "", core.Errorf(core.KindForbiddenDatabase,
			"entity '%s' is not served from database '%s'", e.Name, databaseName)
	}

	if p.prober != nil {
		if err := p.prober.Ping(ctx, name); err != nil {
			return "", err
		}
	}
	return name, nil
}
