// Package schedule fetches the NHL schedule from the nhl-api5 provider,
// normalises it into Match records and syncs them into the match store.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/neexbeast/match-weather/internal/caldate"
)

const (
	DefaultBaseURL = "https://nhl-api5.p.rapidapi.com"
	DefaultHost    = "nhl-api5.p.rapidapi.com"
)

// jsonGetter is satisfied by *upstream.Client.
type jsonGetter interface {
	GetJSON(ctx context.Context, path string, query url.Values, dst any) error
}

// Client fetches one day of the schedule.
type Client struct {
	api jsonGetter
	log *slog.Logger
}

// NewClient wraps an upstream client pointed at the schedule provider.
func NewClient(api jsonGetter, log *slog.Logger) *Client {
	return &Client{api: api, log: log}
}

// FetchDay returns the normalised matches for day. Games that fail
// normalisation are logged and counted in rejected, not returned.
func (c *Client) FetchDay(ctx context.Context, day caldate.Date) (matches []Match, rejected int, err error) {
	query := url.Values{}
	query.Set("year", fmt.Sprintf("%d", day.Year))
	query.Set("month", fmt.Sprintf("%02d", int(day.Month)))
	query.Set("day", fmt.Sprintf("%02d", day.Day))

	var payload Payload
	if err := c.api.GetJSON(ctx, "/nhlschedule", query, &payload); err != nil {
		return nil, 0, fmt.Errorf("fetching schedule for %s: %w", day, err)
	}

	for _, g := range payload.Games() {
		m, err := Normalize(g)
		if err != nil {
			c.log.Warn("rejecting schedule entry", "uid", g.UID, "err", err)
			rejected++
			continue
		}
		matches = append(matches, m)
	}

	return matches, rejected, nil
}
