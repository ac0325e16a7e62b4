package classification

import (
	"coinindex/internal/domain"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// stablecoin category labels seen in upstream metadata. Anything
// containing "stablecoin" (case-insensitive) also counts, since the
// label set drifts over time.
var stablecoinCategories = map[string]struct{}{
	"Stablecoins":            {},
	"USD Stablecoin":         {},
	"Fiat-backed Stablecoin": {},
	"Algorithmic Stablecoin": {},
	"Euro Stablecoin":        {},
}

var wrappedCategories = map[string]struct{}{
	"Wrapped-Tokens":        {},
	"Liquid Staking Tokens": {},
	"Liquid Staked ETH":     {},
	"Liquid Staking":        {},
	"Tokenized BTC":         {},
	"Crypto-Backed Tokens":  {},
}

type assetMetadata struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Symbol     string   `json:"symbol"`
	Categories []string `json:"categories"`
}

// Classifier labels assets from their locally stored metadata files.
// Assets without metadata classify as unknown, which downstream
// filters treat as included.
type Classifier struct {
	MetadataDir string

	mu    sync.RWMutex
	cache map[string]domain.Classification
}

func NewClassifier(dataDir string) *Classifier {
	return &Classifier{
		MetadataDir: filepath.Join(dataDir, "metadata"),
		cache:       map[string]domain.Classification{},
	}
}

func (c *Classifier) Classify(assetID string) domain.Classification {
	c.mu.RLock()
	if cached, ok := c.cache[assetID]; ok {
		c.mu.RUnlock()
		return cached
	}
	c.mu.RUnlock()

	result := c.classify(assetID)

	c.mu.Lock()
	c.cache[assetID] = result
	c.mu.Unlock()
	return result
}

func (c *Classifier) classify(assetID string) domain.Classification {
	data, err := os.ReadFile(filepath.Join(c.MetadataDir, assetID+".json"))
	if err != nil {
		return domain.Unknown(assetID)
	}

	var metadata assetMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return domain.Unknown(assetID)
	}

	isStablecoin := false
	isWrapped := false
	for _, category := range metadata.Categories {
		if _, ok := stablecoinCategories[category]; ok || strings.Contains(strings.ToLower(category), "stablecoin") {
			isStablecoin = true
		}
		if _, ok := wrappedCategories[category]; ok {
			isWrapped = true
		}
	}

	return domain.Known(assetID, isStablecoin, isWrapped)
}
