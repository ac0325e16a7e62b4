package coingecko

import (
	"coinindex/internal/domain"
	"coinindex/internal/logger"
	"coinindex/internal/util"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Client talks to the CoinGecko REST API. It serves both the live
// ranked universe (coins/markets) and full per-asset history
// downloads (coins/{id}/market_chart).
type Client struct {
	HttpClient *http.Client
	ApiKey     string
	BaseUrl    string
}

const (
	publicBaseUrl = "https://api.coingecko.com/api/v3"
	proBaseUrl    = "https://pro-api.coingecko.com/api/v3"

	// markets endpoint caps page size at 250
	marketsPageSize = 250
)

func NewClient(apiKey string) *Client {
	baseUrl := publicBaseUrl
	if apiKey != "" {
		baseUrl = proBaseUrl
	}
	return &Client{
		HttpClient: &http.Client{Timeout: 30 * time.Second},
		ApiKey:     apiKey,
		BaseUrl:    baseUrl,
	}
}

type marketsResponseRow struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	MarketCapRank int     `json:"market_cap_rank"`
	MarketCap     float64 `json:"market_cap"`
	CurrentPrice  float64 `json:"current_price"`
}

type marketChartResponse struct {
	Prices     [][2]float64 `json:"prices"`
	MarketCaps [][2]float64 `json:"market_caps"`
	Volumes    [][2]float64 `json:"total_volumes"`
}

// GetRankedUniverse pages through coins/markets and returns the top N
// assets by market cap, with their ranks.
func (c *Client) GetRankedUniverse(ctx context.Context, topN int) ([]domain.RankedAsset, error) {
	out := []domain.RankedAsset{}
	page := 1
	for len(out) < topN {
		perPage := marketsPageSize
		if remaining := topN - len(out); remaining < perPage {
			perPage = remaining
		}

		params := url.Values{}
		params.Set("vs_currency", "usd")
		params.Set("order", "market_cap_desc")
		params.Set("per_page", strconv.Itoa(perPage))
		params.Set("page", strconv.Itoa(page))

		rows := []marketsResponseRow{}
		if err := c.get(ctx, "coins/markets", params, &rows); err != nil {
			return nil, fmt.Errorf("failed to fetch ranked universe page %d: %w", page, err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			rank := row.MarketCapRank
			if rank == 0 {
				rank = len(out) + 1
			}
			out = append(out, domain.RankedAsset{AssetID: row.ID, Rank: rank})
		}
		page++
	}

	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// FetchFullHistory downloads an asset's entire daily history
// ("since listing") and joins the price/volume/market-cap streams into
// dated records, oldest first.
func (c *Client) FetchFullHistory(ctx context.Context, assetID string) (*domain.AssetHistory, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("days", "max")
	params.Set("interval", "daily")

	chart := marketChartResponse{}
	if err := c.get(ctx, fmt.Sprintf("coins/%s/market_chart", assetID), params, &chart); err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", assetID, err)
	}

	byDate := map[time.Time]*domain.AssetRecord{}
	for _, pair := range chart.Prices {
		date := dayOf(pair[0])
		record := recordFor(byDate, assetID, date)
		record.Price = pair[1]
	}
	for _, pair := range chart.MarketCaps {
		record := recordFor(byDate, assetID, dayOf(pair[0]))
		record.MarketCap = pair[1]
	}
	for _, pair := range chart.Volumes {
		record := recordFor(byDate, assetID, dayOf(pair[0]))
		record.Volume = pair[1]
	}

	records := make([]domain.AssetRecord, 0, len(byDate))
	for _, record := range byDate {
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	return &domain.AssetHistory{AssetID: assetID, Records: records}, nil
}

func recordFor(byDate map[time.Time]*domain.AssetRecord, assetID string, date time.Time) *domain.AssetRecord {
	if record, ok := byDate[date]; ok {
		return record
	}
	record := &domain.AssetRecord{AssetID: assetID, Date: date}
	byDate[date] = record
	return record
}

func dayOf(msTimestamp float64) time.Time {
	return util.Midnight(time.UnixMilli(int64(msTimestamp)).UTC())
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dest interface{}) error {
	requestUrl := fmt.Sprintf("%s/%s?%s", c.BaseUrl, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestUrl, nil)
	if err != nil {
		return err
	}
	if c.ApiKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.ApiKey)
	}

	response, err := c.HttpClient.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	responseBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("received status code %d and failed to read body: %w", response.StatusCode, err)
	}

	if response.StatusCode == 429 {
		logger.Debug("hit rate limit. sleeping...")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(60 * time.Second):
		}
		return c.get(ctx, endpoint, params, dest)
	} else if response.StatusCode != 200 {
		type errResponse struct {
			Error string `json:"error"`
		}
		errJson := errResponse{}
		err = json.Unmarshal(responseBytes, &errJson)
		if err != nil {
			return fmt.Errorf("received status code %d and failed to read error: %w", response.StatusCode, err)
		}
		return fmt.Errorf("failed with status code %d: %s", response.StatusCode, errJson.Error)
	}

	return json.Unmarshal(responseBytes, dest)
}
