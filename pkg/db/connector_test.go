// Redis DB Connetor tests in Cardpack.

package db

import (
	"Cardpack/pkg/log"
	"context"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Global context
var ctx context.Context = context.Background()

func TestDbConnectionLifeCycle(t *testing.T) {
	logger := log.Nop()
	mr := miniredis.RunT(t)
	host, port, splerr := net.SplitHostPort(mr.Addr())
	require.NoError(t, splerr)

	client, dberr := NewDbConnection(ctx, logger, Options{Addr: host, Port: port})
	// Check if there were any issues returned from NewDbConnection
	require.NoError(t, dberr)
	// Check if connection is successful
	assert.NoError(t, client.CheckDbConnection(ctx, logger))

	client.Client().Set(ctx, "leftover", "1", 0)
	client.CleanTestDbData(ctx, logger)
	assert.False(t, mr.Exists("leftover"))

	// Close connection
	assert.NoError(t, client.CloseDbConnection(ctx))
	// Check if connection is still active
	assert.Error(t, client.CheckDbConnection(ctx, logger))
}

func TestDbConnectionRejectsMissingAddress(t *testing.T) {
	_, dberr := NewDbConnection(ctx, log.Nop(), Options{Port: "6379"})
	assert.Error(t, dberr)
}
