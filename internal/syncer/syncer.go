// Package syncer enforces at most one stored row per natural key.
//
// A Synchronizer is bound to one entity kind and one Policy at construction.
// Writes go through a single conditional store statement, so there is no
// check-then-write window: the store's key constraint decides whether a row
// was created.
package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neexbeast/match-weather/internal/apperr"
)

// Outcome is the result of one Upsert.
type Outcome uint8

const (
	Inserted Outcome = iota + 1
	Updated
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText lets outcomes appear as strings in JSON reports.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Policy decides what happens when the key already exists.
type Policy uint8

const (
	// SkipOnExists leaves the stored row untouched.
	SkipOnExists Policy = iota + 1
	// OverwriteOnExists replaces the stored payload.
	OverwriteOnExists
)

func (p Policy) String() string {
	switch p {
	case SkipOnExists:
		return "skip-on-exists"
	case OverwriteOnExists:
		return "overwrite-on-exists"
	default:
		return "unknown"
	}
}

// InsertIfAbsentStore writes rec only when no row holds key. inserted is
// false when the row already existed.
type InsertIfAbsentStore[K comparable, R any] interface {
	InsertIfAbsent(ctx context.Context, key K, rec R) (inserted bool, err error)
}

// InsertOrReplaceStore writes rec, replacing the payload of an existing row.
// inserted is false when an existing row was replaced.
type InsertOrReplaceStore[K comparable, R any] interface {
	InsertOrReplace(ctx context.Context, key K, rec R) (inserted bool, err error)
}

// KeyValidator rejects keys that cannot identify a row.
type KeyValidator[K comparable] func(K) error

type writeFunc[K comparable, R any] func(ctx context.Context, key K, rec R) (bool, error)

// Synchronizer upserts records of one entity kind.
type Synchronizer[K comparable, R any] struct {
	name     string
	policy   Policy
	write    writeFunc[K, R]
	validate KeyValidator[K]
	log      *slog.Logger
}

// NewSkipOnExists builds a Synchronizer whose existing rows are never rewritten.
func NewSkipOnExists[K comparable, R any](name string, store InsertIfAbsentStore[K, R], validate KeyValidator[K], log *slog.Logger) *Synchronizer[K, R] {
	return newSynchronizer(name, SkipOnExists, store.InsertIfAbsent, validate, log)
}

// NewOverwriteOnExists builds a Synchronizer that replaces existing payloads.
func NewOverwriteOnExists[K comparable, R any](name string, store InsertOrReplaceStore[K, R], validate KeyValidator[K], log *slog.Logger) *Synchronizer[K, R] {
	return newSynchronizer(name, OverwriteOnExists, store.InsertOrReplace, validate, log)
}

func newSynchronizer[K comparable, R any](name string, policy Policy, write writeFunc[K, R], validate KeyValidator[K], log *slog.Logger) *Synchronizer[K, R] {
	if log == nil {
		log = slog.Default()
	}
	if validate == nil {
		validate = func(K) error { return nil }
	}
	return &Synchronizer[K, R]{
		name:     name,
		policy:   policy,
		write:    write,
		validate: validate,
		log:      log.With("entity", name, "policy", policy.String()),
	}
}

// Policy reports the policy fixed at construction.
func (s *Synchronizer[K, R]) Policy() Policy {
	return s.policy
}

// Upsert writes rec under key according to the synchronizer's policy.
//
// Key validation failures are RequiredFieldMissing. Store errors that carry
// no kind of their own are reported as StoreUnavailable.
func (s *Synchronizer[K, R]) Upsert(ctx context.Context, key K, rec R) (Outcome, error) {
	if err := s.validate(key); err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.Wrap(apperr.KindRequiredFieldMissing, err, "%s: invalid key", s.name)
		}
		return 0, err
	}

	inserted, err := s.write(ctx, key, rec)
	if err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.Wrap(apperr.KindStoreUnavailable, err, "%s: upsert %v", s.name, key)
		}
		return 0, err
	}

	switch {
	case inserted:
		return Inserted, nil
	case s.policy == OverwriteOnExists:
		return Updated, nil
	default:
		return Skipped, nil
	}
}

// Item pairs a record with its natural key.
type Item[K comparable, R any] struct {
	Key    K
	Record R
}

// Summary counts outcomes of a batch.
type Summary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (s *Summary) add(o Outcome) {
	switch o {
	case Inserted:
		s.Inserted++
	case Updated:
		s.Updated++
	case Skipped:
		s.Skipped++
	}
}

// Total is the number of records the batch attempted.
func (s Summary) Total() int {
	return s.Inserted + s.Updated + s.Skipped + s.Failed
}

// UpsertAll upserts items in order. A failing record is logged and counted
// and the batch carries on; the first error is returned alongside the
// summary. A cancelled context stops the batch.
func (s *Synchronizer[K, R]) UpsertAll(ctx context.Context, items []Item[K, R]) (Summary, error) {
	var (
		sum   Summary
		first error
	)

	for i, it := range items {
		if err := ctx.Err(); err != nil {
			sum.Failed += len(items) - i
			if first == nil {
				first = fmt.Errorf("%s: batch interrupted: %w", s.name, err)
			}
			break
		}

		outcome, err := s.Upsert(ctx, it.Key, it.Record)
		if err != nil {
			s.log.Error("upsert failed", "key", fmt.Sprint(it.Key), "err", err)
			sum.Failed++
			if first == nil {
				first = err
			}
			continue
		}
		sum.add(outcome)
	}

	return sum, first
}
