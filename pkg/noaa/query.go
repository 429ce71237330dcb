package noaa

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spencer-p/surfdash/pkg/fetch"
	"github.com/spencer-p/surfdash/pkg/ocean"
)

const (
	DefaultBaseURL = "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter"
	timeFmt        = "20060102"
)

// Client queries NOAA CO-OPS for tide predictions.
type Client struct {
	BaseURL string
	fetch   *fetch.Client
}

func NewClient(f *fetch.Client) *Client {
	return &Client{BaseURL: DefaultBaseURL, fetch: f}
}

// FetchTides returns the high and low tides at station between start and end.
func (c *Client) FetchTides(ctx context.Context, station string, start, end time.Time) ([]ocean.TideEvent, error) {
	q := PredictionQuery{Start: start, End: end, Station: station}
	preds, err := c.GetPredictions(ctx, &q)
	if err != nil {
		return nil, err
	}
	events := make([]ocean.TideEvent, len(preds))
	for i, p := range preds {
		events[i] = p.Event()
	}
	return events, nil
}

func (c *Client) GetPredictions(ctx context.Context, q *PredictionQuery) (Predictions, error) {
	addr, err := q.url(c.BaseURL)
	if err != nil {
		return nil, err
	}

	var result NOAAResult
	if err := c.fetch.GetJSON(ctx, addr.String(), &result); err != nil {
		return nil, fmt.Errorf("failed to fetch tides for station %s: %w", q.Station, err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("noaa station %s: %s", q.Station, result.Error.Message)
	}
	return result.Predictions, nil
}

func (q *PredictionQuery) url(base string) (*url.URL, error) {
	addr, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	addr.RawQuery = q.build().Encode()
	return addr, nil
}

func (q *PredictionQuery) build() url.Values {
	vals := make(url.Values)
	vals.Add("begin_date", q.Start.UTC().Format(timeFmt))
	vals.Add("end_date", q.End.UTC().Format(timeFmt))
	vals.Add("station", q.Station)
	vals.Add("product", "predictions")
	vals.Add("datum", "MLLW")
	vals.Add("time_zone", "gmt")
	vals.Add("interval", "hilo")
	vals.Add("units", "english")
	vals.Add("application", "surfdash")
	vals.Add("format", "json")
	return vals
}
