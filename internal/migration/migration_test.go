package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	source, err := Source()
	require.NoError(t, err)

	first, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	versions := []uint{first}
	v := first
	for {
		next, err := source.Next(v)
		if err != nil {
			break
		}
		versions = append(versions, next)
		v = next
	}
	assert.Equal(t, []uint{1, 2, 3, 4, 5}, versions)

	for _, version := range versions {
		up, _, err := source.ReadUp(version)
		require.NoError(t, err)
		_ = up.Close()
		down, _, err := source.ReadDown(version)
		require.NoError(t, err)
		_ = down.Close()
	}
}

func TestRunMigrationsRequiresDB(t *testing.T) {
	assert.Error(t, RunMigrations(nil))
}
