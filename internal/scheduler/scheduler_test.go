package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/citynews/internal/config"
	"github.com/deusflow/citynews/internal/logger"
)

func tenant(t *testing.T, key, tz string) config.Tenant {
	t.Helper()
	tenants, err := config.ParseTenants([]byte(key + ":\n  feeds: [https://example.com/rss]\n  tz: " + tz + "\n"))
	require.NoError(t, err)
	return tenants[0]
}

func TestSlotSpec(t *testing.T) {
	expr, err := SlotSpec("08:30")
	require.NoError(t, err)
	assert.Equal(t, "30 8 * * *", expr)

	_, err = SlotSpec("8:30")
	assert.Error(t, err)
}

func TestNextRunUsesTenantZone(t *testing.T) {
	s := New(logger.Discard())
	require.NoError(t, s.AddTenant(tenant(t, "chisinau", "Europe/Chisinau"), []string{"08:00", "21:00"}, func() {}))
	require.NoError(t, s.AddTenant(tenant(t, "new_york", "America/New_York"), []string{"08:00"}, func() {}))

	// 10:00 UTC is 13:00 in Chisinau and 06:00 in New York (summer time).
	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

	next := s.NextRun("chisinau", now)
	assert.Equal(t, time.Date(2024, 7, 1, 18, 0, 0, 0, time.UTC), next.UTC())

	next = s.NextRun("new_york", now)
	assert.Equal(t, time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC), next.UTC())

	assert.True(t, s.NextRun("paris", now).IsZero())
}

func TestAddTenantErrors(t *testing.T) {
	s := New(logger.Discard())
	tn := tenant(t, "x", "UTC")

	assert.Error(t, s.AddTenant(tn, []string{"99:00"}, func() {}))

	require.NoError(t, s.AddTenant(tenant(t, "y", "UTC"), []string{"08:00"}, func() {}))
	assert.Error(t, s.AddTenant(tenant(t, "y", "UTC"), []string{"08:00"}, func() {}))
}

func TestStartStop(t *testing.T) {
	s := New(logger.Discard())
	require.NoError(t, s.AddTenant(tenant(t, "x", "UTC"), []string{"08:00"}, func() {}))
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
