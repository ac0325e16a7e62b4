package domain

import (
	"fmt"
	"time"
)

// IndexConfig describes one index computation run. Immutable once the
// run starts.
type IndexConfig struct {
	Start              time.Time
	End                time.Time
	BaseDate           time.Time
	BaseValue          float64
	TopN               int
	ExcludeStablecoins bool
	ExcludeWrapped     bool
}

func (c IndexConfig) Validate() error {
	if c.TopN <= 0 {
		return fmt.Errorf("top N must be positive, got %d", c.TopN)
	}
	if c.BaseValue <= 0 {
		return fmt.Errorf("base value must be positive, got %f", c.BaseValue)
	}
	if c.End.Before(c.Start) {
		return fmt.Errorf("end date %s before start date %s", c.End.Format(time.DateOnly), c.Start.Format(time.DateOnly))
	}
	return nil
}

// IndexPoint is one day of the computed index.
type IndexPoint struct {
	Date             time.Time
	Value            float64
	ConstituentCount int
}

// IndexSeries is the date-ordered result of a computation run.
type IndexSeries []IndexPoint
