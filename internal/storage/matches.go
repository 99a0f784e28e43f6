package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/match-weather/internal/caldate"
	"github.com/neexbeast/match-weather/internal/schedule"
)

// LatestLimit caps the "latest matches" query.
const LatestLimit = 5

const matchColumns = `uid, match_date, name, venue, city, state, country`

// MatchRepository stores schedule.Match rows keyed by provider UID.
type MatchRepository struct {
	q Querier
}

// NewMatchRepository constructs a MatchRepository backed by the given pool.
func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{q: pool}
}

// NewMatchRepositoryWithQuerier constructs a MatchRepository with a custom Querier (for tests).
func NewMatchRepositoryWithQuerier(q Querier) *MatchRepository {
	return &MatchRepository{q: q}
}

// InsertIfAbsent inserts m unless a row with uid exists. The existence check
// and the write are one statement.
func (r *MatchRepository) InsertIfAbsent(ctx context.Context, uid string, m schedule.Match) (bool, error) {
	const q = `
		INSERT INTO matches (uid, match_date, name, venue, city, state, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (uid) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, q, uid, m.Date.Time(), m.Name, m.VenueFullName, m.City, m.State, m.Country)
	if err != nil {
		return false, storeErr(err, "inserting match %s", uid)
	}

	return tag.RowsAffected() == 1, nil
}

// MatchByUID returns the match with uid. Returns nil, nil when not found.
func (r *MatchRepository) MatchByUID(ctx context.Context, uid string) (*schedule.Match, error) {
	const q = `SELECT ` + matchColumns + ` FROM matches WHERE uid = $1`

	m, err := scanMatch(r.q.QueryRow(ctx, q, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr(err, "querying match %s", uid)
	}

	return &m, nil
}

// MatchesBetween returns matches dated within [from, to], ascending by date.
func (r *MatchRepository) MatchesBetween(ctx context.Context, from, to caldate.Date) ([]schedule.Match, error) {
	const q = `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE match_date BETWEEN $1 AND $2
		ORDER BY match_date, uid
	`

	rows, err := r.q.Query(ctx, q, from.Time(), to.Time())
	if err != nil {
		return nil, storeErr(err, "querying matches between %s and %s", from, to)
	}

	return collectMatches(rows)
}

// LatestMatches returns up to limit matches dated on or before day, the most
// recent ones, ascending by date.
func (r *MatchRepository) LatestMatches(ctx context.Context, day caldate.Date, limit int) ([]schedule.Match, error) {
	if limit <= 0 {
		limit = LatestLimit
	}

	const q = `
		SELECT ` + matchColumns + `
		FROM (
			SELECT ` + matchColumns + `
			FROM matches
			WHERE match_date <= $1
			ORDER BY match_date DESC, uid DESC
			LIMIT $2
		) latest
		ORDER BY match_date, uid
	`

	rows, err := r.q.Query(ctx, q, day.Time(), limit)
	if err != nil {
		return nil, storeErr(err, "querying latest matches before %s", day)
	}

	return collectMatches(rows)
}

func collectMatches(rows pgx.Rows) ([]schedule.Match, error) {
	defer rows.Close()

	results := []schedule.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match row: %w", err)
		}
		results = append(results, m)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "iterating match rows")
	}

	return results, nil
}

func scanMatch(row pgx.Row) (schedule.Match, error) {
	var (
		m    schedule.Match
		date time.Time
	)
	if err := row.Scan(&m.UID, &date, &m.Name, &m.VenueFullName, &m.City, &m.State, &m.Country); err != nil {
		return schedule.Match{}, err
	}
	m.Date = caldate.FromTime(date)
	return m, nil
}
