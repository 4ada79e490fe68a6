package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	gocache "github.com/patrickmn/go-cache"

	"github.com/praetorian-inc/approles/pkg/types"
)

// Outcome classifies how a resolution ended
type Outcome int

const (
	Found Outcome = iota
	// NotFound means every strategy answered that the id does not exist
	NotFound
	// Errored means no strategy found the id and at least one lookup failed
	Errored
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	default:
		return "errored"
	}
}

// Strategy looks an id up as one kind of principal. Lookup returns
// types.ErrNotFound when the id is definitely not of this kind.
type Strategy interface {
	Kind() types.PrincipalKind
	Priority() int // Lower number = tried first
	Lookup(ctx context.Context, id string) (types.Principal, error)
}

// Result is the outcome of one Resolve call. Err holds the last lookup
// failure when Outcome is Errored.
type Result struct {
	Principal types.Principal
	Outcome   Outcome
	Err       error
}

// Stats are cumulative counters over the resolver's lifetime
type Stats struct {
	Lookups   int
	CacheHits int
	Found     int
	NotFound  int
	Errored   int
}

// PrincipalResolver classifies opaque principal ids by trying each strategy
// in priority order.
type PrincipalResolver struct {
	strategies []Strategy
	cache      *gocache.Cache
	stats      Stats
	logger     *slog.Logger
}

func New(logger *slog.Logger, strategies ...Strategy) *PrincipalResolver {
	if logger == nil {
		logger = slog.Default()
	}
	sorted := append([]Strategy(nil), strategies...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})

	return &PrincipalResolver{
		strategies: sorted,
		cache:      gocache.New(gocache.NoExpiration, 0),
		logger:     logger,
	}
}

// Resolve never fails: principals that cannot be classified come back as
// Unknown with the reason in Outcome.
func (r *PrincipalResolver) Resolve(ctx context.Context, id string) Result {
	if cached, ok := r.cache.Get(id); ok {
		r.stats.CacheHits++
		result := cached.(Result)
		r.count(result.Outcome)
		return result
	}

	result := r.resolve(ctx, id)
	r.count(result.Outcome)

	if result.Outcome != Errored {
		r.cache.Set(id, result, gocache.NoExpiration)
	}
	return result
}

func (r *PrincipalResolver) resolve(ctx context.Context, id string) Result {
	if id == "" {
		return Result{Principal: types.UnknownPrincipal(id), Outcome: NotFound}
	}

	var lastErr error
	for _, strategy := range r.strategies {
		r.stats.Lookups++
		principal, err := strategy.Lookup(ctx, id)
		if err == nil {
			principal.ID = id
			principal.Kind = strategy.Kind()
			return Result{Principal: principal, Outcome: Found}
		}
		if errors.Is(err, types.ErrNotFound) {
			continue
		}

		r.logger.Debug("Principal lookup failed", "id", id, "kind", strategy.Kind(), "error", err)
		lastErr = err
	}

	if lastErr != nil {
		return Result{Principal: types.UnknownPrincipal(id), Outcome: Errored, Err: lastErr}
	}
	return Result{Principal: types.UnknownPrincipal(id), Outcome: NotFound}
}

func (r *PrincipalResolver) count(outcome Outcome) {
	switch outcome {
	case Found:
		r.stats.Found++
	case NotFound:
		r.stats.NotFound++
	case Errored:
		r.stats.Errored++
	}
}

// Stats returns a snapshot of the counters
func (r *PrincipalResolver) Stats() Stats {
	return r.stats
}
