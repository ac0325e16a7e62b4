package domain

// Classification is the outcome of classifying an asset as stablecoin
// and/or wrapped. It is a tagged variant: when Confidence is
// ConfidenceUnknown the boolean fields carry no meaning and the asset
// must be treated as included.
type Classification struct {
	AssetID      string
	IsStablecoin bool
	IsWrapped    bool
	Confidence   Confidence
}

type Confidence string

const (
	ConfidenceKnown   Confidence = "known"
	ConfidenceUnknown Confidence = "unknown"
)

// Known builds a classification with known confidence.
func Known(assetID string, isStablecoin, isWrapped bool) Classification {
	return Classification{
		AssetID:      assetID,
		IsStablecoin: isStablecoin,
		IsWrapped:    isWrapped,
		Confidence:   ConfidenceKnown,
	}
}

// Unknown builds a classification for an asset we could not classify.
func Unknown(assetID string) Classification {
	return Classification{
		AssetID:    assetID,
		Confidence: ConfidenceUnknown,
	}
}

// Excluded reports whether the asset should be excluded under the given
// flags. Unknown-confidence assets are never excluded: excluding on an
// uncertain classification would silently shrink the universe.
func (c Classification) Excluded(excludeStablecoins, excludeWrapped bool) bool {
	if c.Confidence != ConfidenceKnown {
		return false
	}
	if excludeStablecoins && c.IsStablecoin {
		return true
	}
	if excludeWrapped && c.IsWrapped {
		return true
	}
	return false
}
