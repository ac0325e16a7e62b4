package api

import (
	"coinindex/internal/calculator"
	"coinindex/internal/domain"
	"coinindex/internal/index"
	"coinindex/internal/logger"
	"coinindex/internal/util"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
)

type calculateIndexRequest struct {
	StartDate          string  `json:"startDate" binding:"required"`
	EndDate            string  `json:"endDate" binding:"required"`
	BaseDate           string  `json:"baseDate"`
	BaseValue          float64 `json:"baseValue"`
	TopN               int     `json:"topN" binding:"required"`
	ExcludeStablecoins bool    `json:"excludeStablecoins"`
	ExcludeWrapped     bool    `json:"excludeWrapped"`
}

type indexPointResponse struct {
	Date             string  `json:"date"`
	IndexValue       float64 `json:"indexValue"`
	ConstituentCount int     `json:"constituentCount"`
}

type indexMetricsResponse struct {
	AnnualizedStdev  float64 `json:"annualizedStdev"`
	AnnualizedReturn float64 `json:"annualizedReturn"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	MaxDrawdown      float64 `json:"maxDrawdown"`
	CumulativeReturn float64 `json:"cumulativeReturn"`
}

type calculateIndexResponse struct {
	Points  []indexPointResponse  `json:"points"`
	Metrics *indexMetricsResponse `json:"metrics,omitempty"`
}

func (m ApiHandler) calculateIndex(c *gin.Context) {
	var request calculateIndexRequest
	if err := c.BindJSON(&request); err != nil {
		returnErrorJsonCode(fmt.Errorf("failed to parse request: %w", err), c, 400)
		return
	}

	cfg, err := configFromRequest(request)
	if err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	series, err := m.Engine.Calculate(c.Request.Context(), cfg)
	if err != nil {
		var shortfall index.InsufficientConstituentsError
		if errors.As(err, &shortfall) {
			returnErrorJsonCode(err, c, 422)
			return
		}
		returnErrorJson(fmt.Errorf("failed to calculate index: %w", err), c)
		return
	}

	response := calculateIndexResponse{
		Points: make([]indexPointResponse, 0, len(series)),
	}
	for _, point := range series {
		response.Points = append(response.Points, indexPointResponse{
			Date:             point.Date.Format("2006-01-02"),
			IndexValue:       point.Value,
			ConstituentCount: point.ConstituentCount,
		})
	}

	if len(series) >= 2 {
		metrics, err := calculator.CalculateMetrics(series)
		if err != nil {
			logger.Warn("failed to calculate index metrics: %v", err)
		} else {
			response.Metrics = &indexMetricsResponse{
				AnnualizedStdev:  metrics.AnnualizedStdev,
				AnnualizedReturn: metrics.AnnualizedReturn,
				SharpeRatio:      metrics.SharpeRatio,
				MaxDrawdown:      metrics.MaxDrawdown,
				CumulativeReturn: metrics.CumulativeReturn,
			}
		}
	}

	c.JSON(200, response)
}

func configFromRequest(request calculateIndexRequest) (domain.IndexConfig, error) {
	cfg := domain.IndexConfig{
		BaseValue:          request.BaseValue,
		TopN:               request.TopN,
		ExcludeStablecoins: request.ExcludeStablecoins,
		ExcludeWrapped:     request.ExcludeWrapped,
	}
	if cfg.BaseValue == 0 {
		cfg.BaseValue = 1000
	}

	var err error
	if cfg.Start, err = util.ParseDate(request.StartDate); err != nil {
		return cfg, fmt.Errorf("invalid startDate: %w", err)
	}
	if cfg.End, err = util.ParseDate(request.EndDate); err != nil {
		return cfg, fmt.Errorf("invalid endDate: %w", err)
	}
	if request.BaseDate != "" {
		if cfg.BaseDate, err = util.ParseDate(request.BaseDate); err != nil {
			return cfg, fmt.Errorf("invalid baseDate: %w", err)
		}
	}
	return cfg, nil
}
