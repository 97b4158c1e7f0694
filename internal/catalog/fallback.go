package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Select is the single policy deciding which catalog serves requests.
// Without a live source the fixture serves alone; otherwise the live source is
// tried first and any failure other than ErrNotFound degrades to the fixture.
func Select(live, fixture Source) Source {
	if live == nil {
		return fixture
	}
	return &FallbackSource{Live: live, Fixture: fixture}
}

// FallbackSource reads from Live and answers from Fixture when Live fails
type FallbackSource struct {
	Live    Source
	Fixture Source
}

func (s *FallbackSource) All(ctx context.Context) ([]Item, error) {
	items, err := s.Live.All(ctx)
	if err == nil {
		return items, nil
	}
	degraded("all", err)
	return s.Fixture.All(ctx)
}

func (s *FallbackSource) ByStyle(ctx context.Context, style string, limit int) ([]Item, error) {
	items, err := s.Live.ByStyle(ctx, style, limit)
	if err == nil {
		return items, nil
	}
	degraded("by_style", err)
	return s.fixtureOrAny(ctx, func() ([]Item, error) { return s.Fixture.ByStyle(ctx, style, limit) }, limit)
}

func (s *FallbackSource) Recommended(ctx context.Context, styles []string, limit int) ([]Item, error) {
	items, err := s.Live.Recommended(ctx, styles, limit)
	if err == nil {
		return items, nil
	}
	degraded("recommended", err)
	return s.fixtureOrAny(ctx, func() ([]Item, error) { return s.Fixture.Recommended(ctx, styles, limit) }, limit)
}

func (s *FallbackSource) Attributes(ctx context.Context, furnitureID string) (*Attributes, error) {
	a, err := s.Live.Attributes(ctx, furnitureID)
	if err == nil || errors.Is(err, ErrNotFound) {
		return a, err
	}
	degraded("attributes", err)
	return s.Fixture.Attributes(ctx, furnitureID)
}

func (s *FallbackSource) Count(ctx context.Context) (int, error) {
	n, err := s.Live.Count(ctx)
	if err == nil {
		return n, nil
	}
	degraded("count", err)
	return s.Fixture.Count(ctx)
}

// fixtureOrAny never leaves the user empty handed: when no fixture item matches,
// the first limit fixture items are returned instead.
func (s *FallbackSource) fixtureOrAny(ctx context.Context, query func() ([]Item, error), limit int) ([]Item, error) {
	items, err := query()
	if err != nil || len(items) > 0 {
		return items, err
	}
	all, err := s.Fixture.All(ctx)
	if err != nil {
		return nil, err
	}
	return truncate(all, normalizeLimit(limit)), nil
}

func degraded(op string, err error) {
	log.Warn().Err(err).Str("op", op).Msg("live catalog failed, serving fixture data")
}

// Status checks the live catalog the way the result screen reports it
func Status(ctx context.Context, live Source) ConnectionStatus {
	if live == nil {
		return ConnectionStatus{Success: false, Message: ErrNoLiveSource.Error() + ", using fixture data"}
	}

	n, err := live.Count(ctx)
	if err != nil {
		return ConnectionStatus{Success: false, Message: fmt.Sprintf("Database error: %v", err)}
	}
	return ConnectionStatus{
		Success: true,
		Message: fmt.Sprintf("Connected. %d furniture items available.", n),
		Count:   n,
	}
}
