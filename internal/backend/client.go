// Package backend implements the client for the VictoriaMetrics-style
// time series store: ranged and scalar reads over the Prometheus HTTP
// query API, and telemetry writes via Influx line protocol on /write.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"sunplot/internal/daytime"
)

var (
	// ErrBackendUnavailable covers transport failures and non-success
	// statuses on queries whose result the caller cannot do without.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrWriteFailed indicates the store did not acknowledge a write.
	ErrWriteFailed = errors.New("backend write failed")
)

const (
	powerSelector  = `power_power{location="home"}`
	energySelector = `power_day_energy{location="home"}`
)

// Client talks to the telemetry store.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger
	now     func() time.Time
}

// NewClient creates a backend client. The timeout bounds every query
// and write issued through the client.
func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		now:     time.Now,
	}
}

// query response envelope, shared by /api/v1/query and
// /api/v1/query_range
type queryResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []queryResult `json:"result"`
	} `json:"data"`
}

// queryResult carries either a single Value (instant query) or a list
// of Values (range query); timestamps are numbers, values are
// stringified numbers.
type queryResult struct {
	Metric map[string]string `json:"metric"`
	Value  []interface{}     `json:"value"`
	Values [][]interface{}   `json:"values"`
}

// FetchSeries retrieves the power curve for the window at the given
// step. An empty series is a valid result, not an error; any transport
// failure or backend-reported failure is ErrBackendUnavailable.
func (c *Client) FetchSeries(ctx context.Context, w daytime.Window, step time.Duration) ([]Sample, error) {
	params := url.Values{
		"start": {w.Start.Format(time.RFC3339)},
		"end":   {w.End.Format(time.RFC3339)},
		"step":  {strconv.FormatInt(int64(step.Seconds()), 10)},
		"query": {powerSelector},
	}

	var resp queryResponse
	if err := c.getJSON(ctx, "/api/v1/query_range", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("%w: query_range status %q", ErrBackendUnavailable, resp.Status)
	}
	if len(resp.Data.Result) == 0 {
		return nil, nil
	}

	samples := make([]Sample, 0, len(resp.Data.Result[0].Values))
	for _, pair := range resp.Data.Result[0].Values {
		ts, val, err := parsePair(pair)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		samples = append(samples, Sample{Time: time.Unix(ts, 0).UTC(), Value: int64(val)})
	}
	return samples, nil
}

// FetchPeak retrieves the window's maximum power and the instant it
// occurred, as a single union query. The peak is a best-effort
// annotation: every failure degrades to AbsentPeak instead of an error.
func (c *Client) FetchPeak(ctx context.Context, w daytime.Window) Peak {
	lookback := c.lookback(w)
	query := fmt.Sprintf(
		`union(max_over_time(%[1]s[%[2]ds]),label_set(tmax_over_time(%[1]s[%[2]ds]),"__name__","peak_timestamp"))`,
		powerSelector, lookback,
	)
	params := url.Values{
		"start": {w.Start.Format(time.RFC3339)},
		"end":   {w.End.Format(time.RFC3339)},
		"query": {query},
	}

	var resp queryResponse
	if err := c.getJSON(ctx, "/api/v1/query", params, &resp); err != nil {
		c.logger.WithError(err).Warn("Peak query failed, dropping annotation")
		return AbsentPeak
	}
	if resp.Status != "success" {
		c.logger.WithField("status", resp.Status).Warn("Peak query unsuccessful, dropping annotation")
		return AbsentPeak
	}

	peak := AbsentPeak
	for _, res := range resp.Data.Result {
		_, val, err := parsePair(res.Value)
		if err != nil {
			c.logger.WithError(err).Warn("Peak query returned malformed value")
			return AbsentPeak
		}
		switch res.Metric["__name__"] {
		case "peak_timestamp":
			peak.Timestamp = int64(val)
		case "power_power":
			peak.Value = int64(val)
		}
	}
	return peak
}

// FetchEnergyTotal retrieves the cumulative energy counter's maximum
// over the elapsed window, in watt-hours. Zero covers both "no data
// yet" and any failure; the annotation is best-effort.
func (c *Client) FetchEnergyTotal(ctx context.Context, w daytime.Window) int64 {
	query := fmt.Sprintf("max_over_time(%s[%ds])", energySelector, c.lookback(w))
	params := url.Values{
		"start": {w.Start.Format(time.RFC3339)},
		"end":   {w.End.Format(time.RFC3339)},
		"query": {query},
	}

	var resp queryResponse
	if err := c.getJSON(ctx, "/api/v1/query", params, &resp); err != nil {
		c.logger.WithError(err).Warn("Energy query failed, reporting 0 Wh")
		return 0
	}
	if resp.Status != "success" || len(resp.Data.Result) == 0 {
		return 0
	}

	_, val, err := parsePair(resp.Data.Result[0].Value)
	if err != nil {
		c.logger.WithError(err).Warn("Energy query returned malformed value")
		return 0
	}
	return int64(val)
}

// Write records one telemetry point in the store, at second precision.
func (c *Client) Write(ctx context.Context, p Point) error {
	line := fmt.Sprintf("power,location=home power=%s,day_energy=%s %d",
		formatValue(p.Power), formatValue(p.DayEnergy), p.Time.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/write?precision=s", bytes.NewBufferString(line))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: got %d", ErrWriteFailed, resp.StatusCode)
	}
	return nil
}

// lookback is the [Ns] range for *_over_time aggregates: the elapsed
// part of the window, never less than a second.
func (c *Client) lookback(w daytime.Window) int64 {
	secs := int64(math.Ceil(c.now().UTC().Sub(w.Start).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: got %d from %s", ErrBackendUnavailable, resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// parsePair decodes a [timestamp, "value"] tuple.
func parsePair(pair []interface{}) (int64, float64, error) {
	if len(pair) != 2 {
		return 0, 0, fmt.Errorf("malformed value pair: %v", pair)
	}
	ts, ok := pair[0].(float64)
	if !ok {
		return 0, 0, fmt.Errorf("malformed timestamp: %v", pair[0])
	}
	s, ok := pair[1].(string)
	if !ok {
		return 0, 0, fmt.Errorf("malformed value: %v", pair[1])
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed value %q: %v", s, err)
	}
	return int64(ts), val, nil
}

// formatValue renders a field value without exponent notation, so
// integral readings stay integral on the wire.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
