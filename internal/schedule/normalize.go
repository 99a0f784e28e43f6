package schedule

import (
	"bytes"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/neexbeast/match-weather/internal/apperr"
	"github.com/neexbeast/match-weather/internal/caldate"
	"github.com/neexbeast/match-weather/internal/upstream"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Payload is the nhlschedule response: an object keyed by day, each holding games.
type Payload map[string]payloadDay

type payloadDay struct {
	Games []ProviderGame `json:"games"`
}

// UnmarshalJSON ignores non-object day entries; the provider mixes metadata
// into the top level.
func (d *payloadDay) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	type plain payloadDay
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*d = payloadDay(p)
	return nil
}

// ProviderGame is one game as the provider sends it. UID and Date are
// required; everything under Competitions is optional.
type ProviderGame struct {
	UID          string                `json:"uid"`
	Date         string                `json:"date"`
	Name         string                `json:"name"`
	Competitions []providerCompetition `json:"competitions"`
}

type providerCompetition struct {
	Venue upstream.Optional[providerVenue] `json:"venue"`
}

type providerVenue struct {
	FullName string                             `json:"fullName"`
	Address  upstream.Optional[providerAddress] `json:"address"`
}

type providerAddress struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Games flattens the payload in day-key order.
func (p Payload) Games() []ProviderGame {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var games []ProviderGame
	for _, k := range keys {
		games = append(games, p[k].Games...)
	}
	return games
}

// Normalize maps a provider game to a Match. Missing venue data becomes empty
// strings; a missing or unparsable uid or date is RequiredFieldMissing.
func Normalize(g ProviderGame) (Match, error) {
	uid := strings.TrimSpace(g.UID)
	if uid == "" {
		return Match{}, apperr.Missing("uid")
	}

	if strings.TrimSpace(g.Date) == "" {
		return Match{}, apperr.Missing("date")
	}
	date, err := caldate.Parse(g.Date)
	if err != nil {
		return Match{}, apperr.Wrap(apperr.KindRequiredFieldMissing, err, "game %s: malformed date", uid)
	}

	m := Match{
		UID:  uid,
		Date: date,
		Name: strings.TrimSpace(g.Name),
	}

	if len(g.Competitions) > 0 {
		venue := g.Competitions[0].Venue.Value
		addr := venue.Address.Value
		m.VenueFullName = venue.FullName
		m.City = addr.City
		m.State = addr.State
		m.Country = addr.Country
	}

	return m, nil
}
