package forecast

import (
	"fmt"
	"strings"

	"github.com/neexbeast/match-weather/internal/apperr"
	"github.com/neexbeast/match-weather/internal/caldate"
)

// HourlyWeather is one hour of observation or forecast.
type HourlyWeather struct {
	ChanceOfRain int     `json:"chance_of_rain"`
	Cloud        int     `json:"cloud"`
	Condition    string  `json:"condition"`
	TempC        float64 `json:"temp_c"`
	WindMPH      float64 `json:"wind_mph"`
}

// Hourly maps "HH:MM" to the weather for that hour.
type Hourly map[string]HourlyWeather

// Key is the natural key of a stored weather record. MatchName is optional
// and empty when the record is not tied to a match.
type Key struct {
	Location  string       `json:"location"`
	Date      caldate.Date `json:"date"`
	MatchName string       `json:"match_name,omitempty"`
}

// NewKey trims its string parts and lowercases the location, so one city
// maps to one stored record whatever its spelling case.
func NewKey(location string, date caldate.Date, matchName string) Key {
	return Key{
		Location:  strings.ToLower(strings.TrimSpace(location)),
		Date:      date,
		MatchName: strings.TrimSpace(matchName),
	}
}

// ValidateKey is the key validator used by the weather synchronizer.
func ValidateKey(k Key) error {
	if k.Location == "" {
		return apperr.Missing("location")
	}
	if k.Date.IsZero() {
		return apperr.Missing("date")
	}
	return nil
}

func (k Key) String() string {
	if k.MatchName == "" {
		return fmt.Sprintf("%s@%s", k.Location, k.Date)
	}
	return fmt.Sprintf("%s@%s[%s]", k.Location, k.Date, k.MatchName)
}

// Record is a stored weather row.
type Record struct {
	Key    Key    `json:"key"`
	Hourly Hourly `json:"hourly_weather"`
}

// ForecastResponse is returned by the forecast endpoint.
type ForecastResponse struct {
	ForecastDate  caldate.Date `json:"forecast_date"`
	HourlyWeather Hourly       `json:"hourly_weather"`
}

// HistoryResponse is returned by the history endpoint.
type HistoryResponse struct {
	CityName      string       `json:"city_name"`
	Date          caldate.Date `json:"date"`
	HourlyWeather Hourly       `json:"hourly_weather"`
}

// CurrentWeather is the latest observation for a city. It is cached, not stored.
type CurrentWeather struct {
	CityName  string       `json:"city_name"`
	Cloud     int          `json:"cloud"`
	Condition string       `json:"condition"`
	Date      caldate.Date `json:"date"`
	Hour      string       `json:"hour"`
	TempC     float64      `json:"temp_c"`
	WindMPH   float64      `json:"wind_mph"`
}

// Astro holds sun and moon times for a city and date.
type Astro struct {
	CityName         string       `json:"city_name"`
	Date             caldate.Date `json:"date"`
	Sunrise          string       `json:"sunrise"`
	Sunset           string       `json:"sunset"`
	Moonrise         string       `json:"moonrise"`
	Moonset          string       `json:"moonset"`
	MoonPhase        string       `json:"moon_phase"`
	MoonIllumination string       `json:"moon_illumination"`
}
