package db

import (
	"testing"

	"github.com/TFMV/VecTrainer/pkg/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseURL(t *testing.T) {
	creds := config.DBCreds{
		Host:     "db.internal",
		Port:     "5433",
		Username: "trainer",
		Password: "p@ss word",
		Database: "vectrain",
	}
	raw := DatabaseURL(creds)

	cfg, err := pgxpool.ParseConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.ConnConfig.Host)
	assert.EqualValues(t, 5433, cfg.ConnConfig.Port)
	assert.Equal(t, "trainer", cfg.ConnConfig.User)
	assert.Equal(t, "p@ss word", cfg.ConnConfig.Password)
	assert.Equal(t, "vectrain", cfg.ConnConfig.Database)
}
