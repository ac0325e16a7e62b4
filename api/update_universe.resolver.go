package api

import (
	"coinindex/internal/universe"
	"fmt"

	"github.com/gin-gonic/gin"
)

type updateUniverseRequest struct {
	TopN       int  `json:"topN" binding:"required"`
	MaxWorkers int  `json:"maxWorkers"`
	DryRun     bool `json:"dryRun"`
}

type integrationResponse struct {
	Success       bool    `json:"success"`
	InsertedDays  int     `json:"insertedDays"`
	AttemptedDays int     `json:"attemptedDays"`
	SuccessRate   float64 `json:"successRate"`
	Error         string  `json:"error,omitempty"`
}

type updateUniverseResponse struct {
	RunID           string                         `json:"runId"`
	Status          string                         `json:"status"`
	DurationSeconds float64                        `json:"durationSeconds"`
	NewAssets       []string                       `json:"newAssets"`
	Downloads       map[string]bool                `json:"downloads"`
	Integrations    map[string]integrationResponse `json:"integrations"`
}

func (m ApiHandler) updateUniverse(c *gin.Context) {
	var request updateUniverseRequest
	if err := c.BindJSON(&request); err != nil {
		returnErrorJsonCode(fmt.Errorf("failed to parse request: %w", err), c, 400)
		return
	}

	report, err := m.Updater.Run(c.Request.Context(), universe.RunOptions{
		TopN:       request.TopN,
		MaxWorkers: request.MaxWorkers,
		DryRun:     request.DryRun,
	})
	if err != nil {
		returnErrorJson(fmt.Errorf("universe update failed: %w", err), c)
		return
	}

	response := updateUniverseResponse{
		RunID:           report.RunID.String(),
		Status:          string(report.Status),
		DurationSeconds: report.Duration.Seconds(),
		NewAssets:       report.NewAssets,
		Downloads:       map[string]bool{},
		Integrations:    map[string]integrationResponse{},
	}
	for assetID, outcome := range report.Downloads {
		response.Downloads[assetID] = outcome.Success
	}
	for assetID, outcome := range report.Integrations {
		response.Integrations[assetID] = integrationResponse{
			Success:       outcome.Success,
			InsertedDays:  outcome.InsertedDays,
			AttemptedDays: outcome.AttemptedDays,
			SuccessRate:   outcome.SuccessRate(),
			Error:         outcome.Err,
		}
	}

	c.JSON(200, response)
}
