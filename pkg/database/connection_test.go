package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteConnectionHealthCheck(t *testing.T) {
	db, err := NewSQLiteConnection("file::memory:?cache=shared")
	require.NoError(t, err)

	assert.NoError(t, db.HealthCheck())
	require.NoError(t, db.Close())
	assert.Error(t, db.HealthCheck())
}
