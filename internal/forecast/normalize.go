package forecast

import (
	"bytes"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/neexbeast/match-weather/internal/apperr"
	"github.com/neexbeast/match-weather/internal/caldate"
	"github.com/neexbeast/match-weather/internal/upstream"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// providerPayload covers forecast.json, history.json and current.json.
type providerPayload struct {
	Location upstream.Optional[providerLocation] `json:"location"`
	Current  upstream.Optional[providerCurrent]  `json:"current"`
	Forecast upstream.Optional[providerForecast] `json:"forecast"`
}

type providerLocation struct {
	Name      string `json:"name"`
	LocalTime string `json:"localtime"`
}

type providerCondition struct {
	Text string `json:"text"`
}

type providerCurrent struct {
	LastUpdated string                              `json:"last_updated"`
	TempC       float64                             `json:"temp_c"`
	WindMPH     float64                             `json:"wind_mph"`
	Cloud       int                                 `json:"cloud"`
	Condition   upstream.Optional[providerCondition] `json:"condition"`
}

type providerForecast struct {
	ForecastDay []providerDay `json:"forecastday"`
}

type providerDay struct {
	Date string         `json:"date"`
	Hour []providerHour `json:"hour"`
}

type providerHour struct {
	Time         string                              `json:"time"`
	TempC        float64                             `json:"temp_c"`
	WindMPH      float64                             `json:"wind_mph"`
	Cloud        int                                 `json:"cloud"`
	ChanceOfRain flexInt                             `json:"chance_of_rain"`
	Condition    upstream.Optional[providerCondition] `json:"condition"`
}

// astroPayload is astronomy.json.
type astroPayload struct {
	Location  upstream.Optional[providerLocation] `json:"location"`
	Astronomy struct {
		Astro upstream.Optional[providerAstro] `json:"astro"`
	} `json:"astronomy"`
}

type providerAstro struct {
	Sunrise          string     `json:"sunrise"`
	Sunset           string     `json:"sunset"`
	Moonrise         string     `json:"moonrise"`
	Moonset          string     `json:"moonset"`
	MoonPhase        string     `json:"moon_phase"`
	MoonIllumination flexString `json:"moon_illumination"`
}

// flexInt accepts 87 and "87". Anything else decodes as zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

// flexString accepts a JSON string or number and keeps its text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

// normalizeDay picks the forecast day matching want and converts its hours.
// The day is required; hours with an unreadable time are dropped.
func normalizeDay(p providerPayload, want caldate.Date) (Hourly, error) {
	if !p.Forecast.Set {
		return nil, apperr.Missing("forecast")
	}

	for _, d := range p.Forecast.Value.ForecastDay {
		date, err := caldate.Parse(d.Date)
		if err != nil || date != want {
			continue
		}
		return normalizeHours(d.Hour), nil
	}

	return nil, apperr.New(apperr.KindRequiredFieldMissing, "no forecast day for %s", want)
}

func normalizeHours(hours []providerHour) Hourly {
	out := make(Hourly, len(hours))
	for _, h := range hours {
		key, ok := hourKey(h.Time)
		if !ok {
			continue
		}
		out[key] = HourlyWeather{
			ChanceOfRain: int(h.ChanceOfRain),
			Cloud:        h.Cloud,
			Condition:    h.Condition.Value.Text,
			TempC:        h.TempC,
			WindMPH:      h.WindMPH,
		}
	}
	return out
}

// hourKey extracts "HH:MM" from a provider time like "2024-01-01 13:00".
func hourKey(t string) (string, bool) {
	t = strings.TrimSpace(t)
	i := strings.LastIndexByte(t, ' ')
	if i < 0 || len(t)-i-1 != len("15:04") {
		return "", false
	}
	return t[i+1:], true
}

func normalizeCurrent(p providerPayload) (CurrentWeather, error) {
	if !p.Location.Set || strings.TrimSpace(p.Location.Value.Name) == "" {
		return CurrentWeather{}, apperr.Missing("location.name")
	}
	if !p.Current.Set {
		return CurrentWeather{}, apperr.Missing("current")
	}

	cur := p.Current.Value
	stamp := cur.LastUpdated
	if stamp == "" {
		stamp = p.Location.Value.LocalTime
	}
	date, err := caldate.Parse(stamp)
	if err != nil {
		return CurrentWeather{}, apperr.Wrap(apperr.KindRequiredFieldMissing, err, "current: malformed last_updated")
	}
	hour, _ := hourKey(stamp)

	return CurrentWeather{
		CityName:  p.Location.Value.Name,
		Cloud:     cur.Cloud,
		Condition: cur.Condition.Value.Text,
		Date:      date,
		Hour:      hour,
		TempC:     cur.TempC,
		WindMPH:   cur.WindMPH,
	}, nil
}

func normalizeAstro(p astroPayload, day caldate.Date) (Astro, error) {
	if !p.Astronomy.Astro.Set {
		return Astro{}, apperr.Missing("astronomy.astro")
	}
	a := p.Astronomy.Astro.Value
	return Astro{
		CityName:         p.Location.Value.Name,
		Date:             day,
		Sunrise:          a.Sunrise,
		Sunset:           a.Sunset,
		Moonrise:         a.Moonrise,
		Moonset:          a.Moonset,
		MoonPhase:        a.MoonPhase,
		MoonIllumination: string(a.MoonIllumination),
	}, nil
}
