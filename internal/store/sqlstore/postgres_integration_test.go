//go:build integration

package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"doccenter/pkg/testutil/containers"
)

func TestPostgresStoreSuite(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()

	db, err := Open(ctx, DriverPostgres, pg.DSN, PoolConfig{MaxOpenConns: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	s := new(StoreSuite)
	s.open = func() *DB {
		require.NoError(s.T(), db.Reset(ctx))
		return db
	}
	suite.Run(t, s)
}
