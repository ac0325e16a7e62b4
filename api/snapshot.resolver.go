package api

import (
	"coinindex/internal/util"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

type snapshotResponseRow struct {
	AssetID   string  `json:"assetId"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	MarketCap float64 `json:"marketCap"`
	Rank      int     `json:"rank"`
}

type snapshotResponse struct {
	Date  string                `json:"date"`
	Empty bool                  `json:"empty"`
	Rows  []snapshotResponseRow `json:"rows"`
}

func (m ApiHandler) snapshot(c *gin.Context) {
	date, err := util.ParseDate(c.Param("date"))
	if err != nil {
		returnErrorJsonCode(fmt.Errorf("invalid date %q: %w", c.Param("date"), err), c, 400)
		return
	}

	forceRefresh := false
	if raw := c.Query("forceRefresh"); raw != "" {
		forceRefresh, _ = strconv.ParseBool(raw)
	}

	snapshot, err := m.Store.Get(c.Request.Context(), date, forceRefresh)
	if err != nil {
		returnErrorJson(fmt.Errorf("failed to get snapshot: %w", err), c)
		return
	}

	response := snapshotResponse{
		Date:  snapshot.Date.Format("2006-01-02"),
		Empty: snapshot.Empty(),
		Rows:  []snapshotResponseRow{},
	}
	for _, row := range snapshot.Rows {
		response.Rows = append(response.Rows, snapshotResponseRow{
			AssetID:   row.AssetID,
			Price:     row.Price,
			Volume:    row.Volume,
			MarketCap: row.MarketCap,
			Rank:      row.Rank,
		})
	}

	c.JSON(200, response)
}
