package api

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/neexbeast/match-weather/internal/apperr"
	"github.com/neexbeast/match-weather/internal/caldate"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	_ = v.RegisterValidation("caldate", func(fl validator.FieldLevel) bool {
		_, err := caldate.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// queryBinder fills itself from URL query values.
type queryBinder interface {
	bind(url.Values)
}

// bindQuery binds and validates q. Every failure is RequiredFieldMissing
// naming the offending parameter.
func bindQuery(r *http.Request, q queryBinder) error {
	q.bind(r.URL.Query())

	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.KindRequiredFieldMissing, err, "invalid query")
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return apperr.Missing(fe.Field())
	}
	return apperr.New(apperr.KindRequiredFieldMissing, "parameter %q is malformed", fe.Field())
}

// mustDate parses a value that already passed the caldate validator.
func mustDate(s string) caldate.Date {
	d, _ := caldate.Parse(s)
	return d
}

// param returns the trimmed value of a query parameter.
func param(v url.Values, name string) string {
	return strings.TrimSpace(v.Get(name))
}

type updateQuery struct {
	Date string `query:"date" validate:"omitempty,caldate"`
}

func (q *updateQuery) bind(v url.Values) { q.Date = param(v, "date") }

type pastMatchesQuery struct {
	TargetDate string `query:"target_date" validate:"required,caldate"`
}

func (q *pastMatchesQuery) bind(v url.Values) { q.TargetDate = param(v, "target_date") }

type teamInfoQuery struct {
	GameID string `query:"game_id" validate:"required"`
}

func (q *teamInfoQuery) bind(v url.Values) { q.GameID = param(v, "game_id") }

type weatherQuery struct {
	Location  string `query:"location" validate:"required"`
	Date      string `query:"date" validate:"required,caldate"`
	MatchName string `query:"match_name"`
}

func (q *weatherQuery) bind(v url.Values) {
	q.Location = param(v, "location")
	q.Date = param(v, "date")
	q.MatchName = param(v, "match_name")
}

type cityQuery struct {
	City string `query:"city" validate:"required"`
}

func (q *cityQuery) bind(v url.Values) { q.City = param(v, "city") }

type cityDateQuery struct {
	City string `query:"city" validate:"required"`
	Date string `query:"date" validate:"required,caldate"`
}

func (q *cityDateQuery) bind(v url.Values) {
	q.City = param(v, "city")
	q.Date = param(v, "date")
}
