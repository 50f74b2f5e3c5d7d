package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynrest-tech/dynrest/core"
	"github.com/dynrest-tech/dynrest/core/registry"
)

var product = &registry.EntityDescriptor{Name: "product", Database: "db1"}
var user = &registry.EntityDescriptor{Name: "user", Database: "default", Protected: true}

func newTestPolicy(prober Prober) *Policy {
	return New(Config{
		Databases: []string{"default", "db1", "db2"},
		Default:   "default",
		Prober:    prober,
	})
}

type failingProber struct {
	failures map[string]bool
}

func (p *failingProber) Ping(ctx context.Context, databaseName string) error {
	if p.failures[databaseName] {
		return core.Errorf(core.KindDatabaseUnavailable, "database '%s' is not available", databaseName)
	}
	return nil
}

func TestAuthorizeMatchingDatabase(t *testing.T) {
	p := newTestPolicy(nil)

	name, err := p.Authorize(context.Background(), "db1", product)
	require.NoError(t, err)
	assert.Equal(t, "db1", name)

	name, err = p.Authorize(context.Background(), "DB1", product)
	require.NoError(t, err)
	assert.Equal(t, "db1", name)
}

func TestAuthorizeUnknownDatabase(t *testing.T) {
	p := newTestPolicy(nil)

	_, err := p.Authorize(context.Background(), "db9", product)
	require.Error(t, err)
	assert.Equal(t, core.KindUnknownDatabase, core.AsError(err).Kind)
}

func TestAuthorizeForeignDatabase(t *testing.T) {
	p := newTestPolicy(nil)

	_, err := p.Authorize(context.Background(), "db2", product)
	require.Error(t, err)
	assert.Equal(t, core.KindForbiddenDatabase, core.AsError(err).Kind)
}

func TestAuthorizeProtectedEntity(t *testing.T) {
	p := newTestPolicy(nil)

	name, err := p.Authorize(context.Background(), "default", user)
	require.NoError(t, err)
	assert.Equal(t, "default", name)

	// protected entities are rejected, never redirected
	_, err = p.Authorize(context.Background(), "db1", user)
	require.Error(t, err)
	assert.Equal(t, core.KindProtectedEntity, core.AsError(err).Kind)
}

func TestAuthorizeUnreachableDatabase(t *testing.T) {
	p := newTestPolicy(&failingProber{failures: map[string]bool{"db1": true}})

	_, err := p.Authorize(context.Background(), "db1", product)
	require.Error(t, err)
	assert.Equal(t, core.KindDatabaseUnavailable, core.AsError(err).Kind)
}

func TestAuthorizeUnknownPrecedesUnreachable(t *testing.T) {
	p := newTestPolicy(&failingProber{failures: map[string]bool{"db9": true}})

	_, err := p.Authorize(context.Background(), "db9", product)
	require.Error(t, err)
	assert.Equal(t, core.KindUnknownDatabase, core.AsError(err).Kind)
}

func TestAuthorizeProtectedPrecedesUnreachable(t *testing.T) {
	p := newTestPolicy(&failingProber{failures: map[string]bool{"db1": true}})

	_, err := p.Authorize(context.Background(), "db1", user)
	require.Error(t, err)
	assert.Equal(t, core.KindProtectedEntity, core.AsError(err).Kind)
}
