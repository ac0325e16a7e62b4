package api

import (
	"coinindex/internal/util"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_configFromRequest(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		cfg, err := configFromRequest(calculateIndexRequest{
			StartDate:          "2023-01-01",
			EndDate:            "2023-12-31",
			BaseDate:           "2023-02-01",
			BaseValue:          500,
			TopN:               50,
			ExcludeStablecoins: true,
		})
		require.NoError(t, err)
		require.Equal(t, util.NewDate(2023, 1, 1), cfg.Start)
		require.Equal(t, util.NewDate(2023, 12, 31), cfg.End)
		require.Equal(t, util.NewDate(2023, 2, 1), cfg.BaseDate)
		require.Equal(t, float64(500), cfg.BaseValue)
		require.True(t, cfg.ExcludeStablecoins)
		require.False(t, cfg.ExcludeWrapped)
	})

	t.Run("base value defaults", func(t *testing.T) {
		cfg, err := configFromRequest(calculateIndexRequest{
			StartDate: "2023-01-01",
			EndDate:   "2023-12-31",
			TopN:      50,
		})
		require.NoError(t, err)
		require.Equal(t, float64(1000), cfg.BaseValue)
	})

	t.Run("base date left zero when omitted", func(t *testing.T) {
		cfg, err := configFromRequest(calculateIndexRequest{
			StartDate: "2023-01-01",
			EndDate:   "2023-12-31",
			TopN:      50,
		})
		require.NoError(t, err)
		require.True(t, cfg.BaseDate.IsZero())
	})

	t.Run("bad dates rejected", func(t *testing.T) {
		_, err := configFromRequest(calculateIndexRequest{
			StartDate: "01/01/2023",
			EndDate:   "2023-12-31",
			TopN:      50,
		})
		require.Error(t, err)
	})
}
