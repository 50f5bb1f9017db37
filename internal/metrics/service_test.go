// Metrics tests in Cardpack.

package metrics

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/test"
	"Cardpack/pkg/log"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Global context
var ctx context.Context = context.Background()

func TestRecordOpening(t *testing.T) {
	client, _ := test.MockRedis(t)
	metricsService := NewService(NewRepository(client), log.Nop())

	empty, err := metricsService.GetMetrics(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.OpeningsTotal)
	assert.Empty(t, empty.OpeningsByRarity)

	require.NoError(t, metricsService.RecordOpening(ctx, entity.Common))
	require.NoError(t, metricsService.RecordOpening(ctx, entity.Common))
	require.NoError(t, metricsService.RecordOpening(ctx, entity.Legendary))

	metrics, err := metricsService.GetMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), metrics.OpeningsTotal)
	assert.Equal(t, map[entity.Rarity]int64{entity.Common: 2, entity.Legendary: 1}, metrics.OpeningsByRarity)
}

func TestGetMetricsSkipsGarbage(t *testing.T) {
	client, mr := test.MockRedis(t)
	metricsService := NewService(NewRepository(client), log.Nop())

	mr.HSet(metricsDbKey, openingsTotalField, "lots", "openings:RARE", "4")

	metrics, err := metricsService.GetMetrics(ctx)
	require.NoError(t, err)
	assert.Zero(t, metrics.OpeningsTotal)
	assert.Equal(t, int64(4), metrics.OpeningsByRarity[entity.Rare])
}
