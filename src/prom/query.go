package prom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// QueryClient reads back from the pool's own prometheus. The hashrate series
// are written by the stratum bridge; the monitor only formats them for the
// pool-stats endpoint.
type QueryClient struct {
	baseUrl string
	client  *http.Client
	logger  *zap.Logger
}

func NewQueryClient(baseUrl string, logger *zap.Logger) *QueryClient {
	return &QueryClient{
		baseUrl: baseUrl,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.Named("promquery"),
	}
}

type queryResponse struct {
	Data struct {
		Result []struct {
			Value []any `json:"value"` // [unix ts, string value]
		} `json:"result"`
	} `json:"data"`
}

func (c *QueryClient) query(ctx context.Context, query string) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/query?query=%s", c.baseUrl, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed building prometheus query request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "failed querying prometheus at %s", c.baseUrl)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("prometheus query returned status %d", resp.StatusCode)
	}

	parsed := queryResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, errors.Wrap(err, "failed decoding prometheus query response")
	}
	if len(parsed.Data.Result) == 0 {
		return 0, errors.Errorf("no results for query %q", query)
	}
	value := parsed.Data.Result[0].Value
	if len(value) != 2 {
		return 0, errors.Errorf("malformed sample for query %q", query)
	}
	raw, ok := value[1].(string)
	if !ok {
		return 0, errors.Errorf("malformed sample value for query %q", query)
	}
	sample, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "unparsable sample value for query %q", query)
	}
	return sample, nil
}

// PoolHashRate returns the pool's current hashrate as a display string, e.g.
// "1.21TH/s".
func (c *QueryClient) PoolHashRate(ctx context.Context) (string, error) {
	ghs, err := c.query(ctx, "pool_hash_rate_GHps")
	if err != nil {
		return "", err
	}
	return StringifyHashrate(ghs), nil
}

func StringifyHashrate(ghs float64) string {
	unitStrings := [...]string{"M", "G", "T", "P", "E", "Z", "Y"}
	unit := unitStrings[0]
	hr := ghs * 1000 // default to MH/s

	for _, u := range unitStrings {
		if hr < 1000 {
			unit = u
			break
		}
		hr /= 1000
	}

	return fmt.Sprintf("%0.2f%sH/s", hr, unit)
}
