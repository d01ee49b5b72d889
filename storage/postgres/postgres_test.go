package postgres

import (
	"path/filepath"
	"testing"

	"github.com/melihalgin1/CryptoVault/internal/config"
	"github.com/melihalgin1/CryptoVault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLite(t *testing.T) {
	st, err := New(config.DBConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "vault.db"),
	})
	require.NoError(t, err)
	defer st.Stop()

	assert.True(t, st.DB.Migrator().HasTable(&models.Profile{}))
	assert.True(t, st.DB.Migrator().HasTable(&models.User{}))
	assert.True(t, st.DB.Migrator().HasTable(&models.RefreshSession{}))
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := dialectorFor(config.DBConfig{Driver: "mysql"})
	assert.Error(t, err)
}
