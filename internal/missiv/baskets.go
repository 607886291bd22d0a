package missiv

import (
	"context"

	"github.com/tOgg1/missiv/internal/basket"
	"github.com/tOgg1/missiv/internal/models"
)

// ListBasket lists one basket for desk. Count and list come from the same
// snapshot.
func (s *Service) ListBasket(ctx context.Context, desk string, b models.Basket) (*basket.View, error) {
	const op = "list_basket"
	if err := validateDesk("desk_id", desk); err != nil {
		return nil, s.fail(op, err)
	}
	if !b.Valid() {
		return nil, s.fail(op, models.ErrInvalidBasket)
	}

	snapshot, err := s.snapshots.LoadForDesk(ctx, desk)
	if err != nil {
		return nil, s.fail(op, err)
	}

	view, err := basket.Query(snapshot, desk, b)
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.metrics.BasketQueried(b)
	s.logger.Debug().Str("desk_id", desk).Str("basket", string(b)).Int("count", view.Count).Msg("listed basket")
	return view, nil
}

// BasketCounts returns the size of every basket for desk.
func (s *Service) BasketCounts(ctx context.Context, desk string) (map[models.Basket]int, error) {
	const op = "basket_counts"
	if err := validateDesk("desk_id", desk); err != nil {
		return nil, s.fail(op, err)
	}

	snapshot, err := s.snapshots.LoadForDesk(ctx, desk)
	if err != nil {
		return nil, s.fail(op, err)
	}
	return basket.Counts(snapshot, desk), nil
}
