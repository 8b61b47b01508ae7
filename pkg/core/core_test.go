package core

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paleotech/toolbox7/pkg/extension"
	"github.com/paleotech/toolbox7/pkg/resource"
)

type fakeTicks struct{ n atomic.Uint64 }

func (f *fakeTicks) Ticks() uint64 { return f.n.Add(1) }

type noExtensionsResolver struct{}

func (noExtensionsResolver) ResolveEntry(kind extension.Kind, t resource.Type, id resource.ID) (any, int, bool, uint8, uint8, bool) {
	return nil, 0, false, 0, 0, false
}

func TestBootWithNoExtensionsSucceeds(t *testing.T) {
	cfg := DefaultConfig()
	c := New(cfg, &fakeTicks{}, noExtensionsResolver{}, nil)

	require.NoError(t, c.Boot(context.Background()))
	assert.True(t, c.Booted())

	require.NoError(t, c.Shutdown(context.Background()))
	assert.False(t, c.Booted())
}

func TestDoubleBootFails(t *testing.T) {
	cfg := DefaultConfig()
	c := New(cfg, &fakeTicks{}, noExtensionsResolver{}, nil)

	require.NoError(t, c.Boot(context.Background()))
	err := c.Boot(context.Background())
	assert.Error(t, err)
}

func TestCoreWiresAllSubsystems(t *testing.T) {
	cfg := DefaultConfig()
	c := New(cfg, &fakeTicks{}, noExtensionsResolver{}, nil)

	assert.NotNil(t, c.SystemZone)
	assert.NotNil(t, c.AppZone)
	assert.NotNil(t, c.Resources)
	assert.NotNil(t, c.Extensions)
	assert.NotNil(t, c.Loader)
	assert.NotNil(t, c.AppleEvents)
	assert.NotNil(t, c.BitsPool)
	assert.NotNil(t, c.MenuBits)
}
