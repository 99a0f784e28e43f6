package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/neexbeast/match-weather/internal/apperr"
	"github.com/neexbeast/match-weather/internal/cache"
	"github.com/neexbeast/match-weather/internal/caldate"
	"github.com/neexbeast/match-weather/internal/schedule"
	"github.com/neexbeast/match-weather/internal/storage"
)

const (
	// UpcomingDays is the length of the upcoming window after today.
	UpcomingDays = 5
	// UpcomingNamespace holds cached upcoming listings. Drop it after a
	// sync inserts matches.
	UpcomingNamespace = "upcoming"
)

// MatchesHandlers serves the match query surface and the manual sync trigger.
type MatchesHandlers struct {
	store  MatchStore
	syncer ScheduleSyncer
	cache  Cache
	log    *slog.Logger
	today  func() caldate.Date
}

// NewMatchesHandlers constructs MatchesHandlers. Dates are calendar days in UTC.
func NewMatchesHandlers(store MatchStore, syncer ScheduleSyncer, cache Cache, log *slog.Logger) *MatchesHandlers {
	return &MatchesHandlers{
		store:  store,
		syncer: syncer,
		cache:  cache,
		log:    log,
		today:  func() caldate.Date { return caldate.Today(time.UTC) },
	}
}

// Update handles POST /update?date=YYYY-MM-DD. It syncs one day of the
// schedule (today by default) and drops cached listings.
func (h *MatchesHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var q updateQuery
	if err := bindQuery(r, &q); err != nil {
		WriteError(w, r, h.log, err)
		return
	}

	day := h.today()
	if q.Date != "" {
		day = mustDate(q.Date)
	}

	report, err := h.syncer.SyncDay(r.Context(), day)
	if report.Inserted > 0 {
		if cerr := h.cache.DeleteNamespace(r.Context(), UpcomingNamespace); cerr != nil {
			h.log.Warn("cache invalidation failed", "namespace", UpcomingNamespace, "err", cerr)
		}
	}
	if err != nil {
		WriteError(w, r, h.log, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// UpcomingMatches handles GET /upcoming_matches: today through today+5.
// Cache hit → return. Otherwise query, cache, return.
func (h *MatchesHandlers) UpcomingMatches(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	key := cache.Key(UpcomingNamespace, today.String())

	var cached []schedule.Match
	hit, err := h.cache.Get(r.Context(), key, &cached)
	if err != nil {
		h.log.Error("cache get failed", "key", key, "err", err)
	}
	if hit {
		WriteJSON(w, http.StatusOK, cached)
		return
	}

	matches, err := h.store.MatchesBetween(r.Context(), today, today.AddDays(UpcomingDays))
	if err != nil {
		WriteError(w, r, h.log, err)
		return
	}

	if err := h.cache.Set(r.Context(), key, matches); err != nil {
		h.log.Warn("cache set failed after db hit", "key", key, "err", err)
	}

	WriteJSON(w, http.StatusOK, matches)
}

// TodayMatches handles GET /today_matches.
func (h *MatchesHandlers) TodayMatches(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	matches, err := h.store.MatchesBetween(r.Context(), today, today)
	if err != nil {
		WriteError(w, r, h.log, err)
		return
	}
	WriteJSON(w, http.StatusOK, matches)
}

// PastMatches handles GET /past_matches?target_date=: the latest matches
// on or before the date, oldest first.
func (h *MatchesHandlers) PastMatches(w http.ResponseWriter, r *http.Request) {
	var q pastMatchesQuery
	if err := bindQuery(r, &q); err != nil {
		WriteError(w, r, h.log, err)
		return
	}

	matches, err := h.store.LatestMatches(r.Context(), mustDate(q.TargetDate), storage.LatestLimit)
	if err != nil {
		WriteError(w, r, h.log, err)
		return
	}
	WriteJSON(w, http.StatusOK, matches)
}

// TeamInfo handles GET /team_info?game_id=.
func (h *MatchesHandlers) TeamInfo(w http.ResponseWriter, r *http.Request) {
	var q teamInfoQuery
	if err := bindQuery(r, &q); err != nil {
		WriteError(w, r, h.log, err)
		return
	}

	m, err := h.store.MatchByUID(r.Context(), q.GameID)
	if err != nil {
		WriteError(w, r, h.log, err)
		return
	}
	if m == nil {
		WriteError(w, r, h.log, apperr.New(apperr.KindNotFound, "no match with game_id %q", q.GameID))
		return
	}
	WriteJSON(w, http.StatusOK, m)
}
