package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/obe-attainment-api/pkg/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "grader",
		Password: "p@ss word/1",
		Name:     "obe_attainment",
		SSLMode:  "require",
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:5433", u.Host)
	assert.Equal(t, "/obe_attainment", u.Path)
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss word/1", password)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}
