package market

import (
	"context"
	"strings"
	"time"

	"github.com/bobmcallan/entrycheck/internal/models"
)

// Attempt is one independent asynchronous operation in a race. Each attempt
// owns its timeout; a timed-out attempt yields a timeout error rather than
// hanging the race.
type Attempt[T any] struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) (T, error)
}

// AggregateError is raised when every attempt in a race failed. Its message
// is the highest-ranked underlying error per the models.FetchErrorKind
// ranking; ties resolve to the earliest attempt in input order.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	best := e.Best()
	if best == nil {
		return "all attempts failed"
	}
	return best.Error()
}

// Best returns the highest-ranked underlying error.
func (e *AggregateError) Best() error {
	var best error
	bestRank := -1
	for _, err := range e.Errors {
		if err == nil {
			continue
		}
		if rank := models.KindOf(err).Rank(); rank > bestRank {
			best = err
			bestRank = rank
		}
	}
	return best
}

// Unwrap exposes the underlying errors to errors.Is/As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// Messages returns all underlying error messages, for diagnostics.
func (e *AggregateError) Messages() string {
	parts := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		if err != nil {
			parts = append(parts, err.Error())
		}
	}
	return strings.Join(parts, "; ")
}

type raceResult[T any] struct {
	index int
	value T
	err   error
}

// Race starts all attempts concurrently and returns the value of whichever
// completes successfully first. Losing attempts are abandoned, not awaited:
// their only side effects write the idempotent symbol cache, so ignoring
// their settlement is safe. When every attempt fails, Race returns an
// *AggregateError carrying each attempt's classified error in input order.
func Race[T any](ctx context.Context, attempts []Attempt[T]) (T, error) {
	var zero T
	if len(attempts) == 0 {
		return zero, &AggregateError{Errors: []error{models.NewFetchError(
			models.ErrKindTransport, "race", "no providers available", nil)}}
	}

	results := make(chan raceResult[T], len(attempts))
	for i, attempt := range attempts {
		go func(i int, a Attempt[T]) {
			attemptCtx := ctx
			var cancel context.CancelFunc
			if a.Timeout > 0 {
				attemptCtx, cancel = context.WithTimeout(ctx, a.Timeout)
				defer cancel()
			}

			value, err := a.Run(attemptCtx)
			if err != nil {
				err = models.ClassifyErr(a.Name, err)
			}
			results <- raceResult[T]{index: i, value: value, err: err}
		}(i, attempt)
	}

	errs := make([]error, len(attempts))
	for range attempts {
		select {
		case res := <-results:
			if res.err == nil {
				return res.value, nil
			}
			errs[res.index] = res.err
		case <-ctx.Done():
			return zero, models.ClassifyErr("race", ctx.Err())
		}
	}

	return zero, &AggregateError{Errors: errs}
}
