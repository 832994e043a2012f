package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shopcarts/internal/models"
	"github.com/Skotchmaster/shopcarts/internal/repo"
	"github.com/Skotchmaster/shopcarts/internal/transport"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events Publisher
}

func cartNotFound(id uint) error {
	return notFound("ShopCart with id '%d' was not found.", id)
}

func statusList() string {
	names := make([]string, 0, len(models.Statuses))
	for _, st := range models.Statuses {
		names = append(names, string(st))
	}
	return strings.Join(names, ", ")
}

func ParseStatus(raw string) (models.Status, error) {
	st, ok := models.ParseStatus(strings.TrimSpace(raw))
	if !ok {
		return "", invalid("Invalid status '%s': must be one of %s", raw, statusList())
	}
	return st, nil
}

func validateCart(req transport.CartRequest) (*models.ShopCart, error) {
	if req.UserID == nil {
		return nil, invalid("Invalid ShopCart: missing user_id")
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, invalid("Invalid ShopCart: missing name")
	}

	cart := &models.ShopCart{
		UserID: *req.UserID,
		Name:   strings.TrimSpace(*req.Name),
		Status: models.StatusActive,
	}
	if req.Status != nil {
		st, err := ParseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		cart.Status = st
	}
	return cart, nil
}

// CreateCart stores the cart and adds any nested items to it one by one,
// merging by name exactly like AddItem. Carts that absorb a merged quantity
// get their totals recomputed as well.
func (s *CartService) CreateCart(ctx context.Context, req transport.CartRequest) (*models.ShopCart, error) {
	cart, err := validateCart(req)
	if err != nil {
		return nil, err
	}

	items := make([]*models.Item, 0, len(req.Items))
	for _, ir := range req.Items {
		it, err := validateItem(ir)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	var (
		created *models.ShopCart
		merges  []CartEvent
	)
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := tx.CreateCart(ctx, cart); err != nil {
			return err
		}

		var (
			foreign []uint
			latest  = map[uint]*models.Item{}
		)
		for _, next := range items {
			item, merged, err := addOrMerge(ctx, tx, cart.ID, next)
			if err != nil {
				return err
			}
			if !merged || item.ShopCartID == cart.ID {
				continue
			}
			if _, seen := latest[item.ID]; !seen {
				foreign = append(foreign, item.ID)
			}
			latest[item.ID] = item
		}

		owners := map[uint]*models.ShopCart{}
		for _, id := range foreign {
			item := latest[id]
			owner, ok := owners[item.ShopCartID]
			if !ok {
				var err error
				if owner, err = recomputeTotal(ctx, tx, item.ShopCartID); err != nil {
					return err
				}
				owners[item.ShopCartID] = owner
			}
			merges = append(merges, itemEvent(EventItemMerged, owner, item))
		}

		if _, err := recomputeTotal(ctx, tx, cart.ID); err != nil {
			return err
		}
		var err error
		created, err = tx.FindCart(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, persistence(err)
	}

	s.publish(ctx, cartEvent(EventCartCreated, created))
	for _, ev := range merges {
		s.publish(ctx, ev)
	}
	return created, nil
}

func (s *CartService) GetCart(ctx context.Context, id uint) (*models.ShopCart, error) {
	cart, err := s.Repo.FindCart(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cartNotFound(id)
		}
		return nil, persistence(err)
	}
	return cart, nil
}

func (s *CartService) ListCarts(ctx context.Context, f repo.CartFilter) ([]models.ShopCart, error) {
	carts, err := s.Repo.ListCarts(ctx, f)
	if err != nil {
		return nil, persistence(err)
	}
	return carts, nil
}

// UpdateCart replaces user_id, name and, when given, status. The total is re-derived from the items.
func (s *CartService) UpdateCart(ctx context.Context, id uint, req transport.CartRequest) (*models.ShopCart, error) {
	var updated *models.ShopCart
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.FindCart(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return cartNotFound(id)
			}
			return err
		}

		next, err := validateCart(req)
		if err != nil {
			return err
		}
		cart.UserID = next.UserID
		cart.Name = next.Name
		if req.Status != nil {
			cart.Status = next.Status
		}
		cart.TotalPrice = models.TotalOf(cart.Items)

		if err := tx.SaveCart(ctx, cart); err != nil {
			return err
		}
		updated, err = tx.FindCart(ctx, id)
		return err
	})
	if err != nil {
		return nil, persistence(err)
	}

	s.publish(ctx, cartEvent(EventCartUpdated, updated))
	return updated, nil
}

func (s *CartService) UpdateStatus(ctx context.Context, id uint, raw *string) (*models.ShopCart, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, invalid("Invalid status: missing status")
	}
	st, err := ParseStatus(*raw)
	if err != nil {
		return nil, err
	}

	var updated *models.ShopCart
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := tx.UpdateCartStatus(ctx, id, st); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return cartNotFound(id)
			}
			return err
		}
		updated, err = tx.FindCart(ctx, id)
		return err
	})
	if err != nil {
		return nil, persistence(err)
	}

	s.publish(ctx, cartEvent(EventCartStatusChanged, updated))
	return updated, nil
}

// DeleteCart is idempotent: a missing cart is not an error.
func (s *CartService) DeleteCart(ctx context.Context, id uint) error {
	var gone *models.ShopCart
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.FindCartHeader(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		deleted, err := tx.DeleteCart(ctx, id)
		if err != nil {
			return err
		}
		if deleted {
			gone = cart
		}
		return nil
	})
	if err != nil {
		return persistence(err)
	}

	if gone != nil {
		ev := cartEvent(EventCartDeleted, gone)
		ev.TotalPrice = decimal.Zero.StringFixed(2)
		s.publish(ctx, ev)
	}
	return nil
}

// ClearCart drops every item of the cart.
func (s *CartService) ClearCart(ctx context.Context, id uint) (*models.ShopCart, error) {
	var cleared *models.ShopCart
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := requireCart(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.DeleteItems(ctx, id); err != nil {
			return err
		}
		if _, err := recomputeTotal(ctx, tx, id); err != nil {
			return err
		}
		var err error
		cleared, err = tx.FindCart(ctx, id)
		return err
	})
	if err != nil {
		return nil, persistence(err)
	}

	s.publish(ctx, cartEvent(EventCartCleared, cleared))
	return cleared, nil
}

func requireCart(ctx context.Context, tx *repo.GormRepo, id uint) error {
	ok, err := tx.CartExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("ShopCart with id '%d' could not be found.", id)
	}
	return nil
}

// recomputeTotal restores total_price = sum(price*quantity) for the cart and
// returns the cart row (without items) as stored afterwards.
func recomputeTotal(ctx context.Context, tx *repo.GormRepo, cartID uint) (*models.ShopCart, error) {
	items, err := tx.ListItems(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := tx.SetCartTotal(ctx, cartID, models.TotalOf(items)); err != nil {
		return nil, err
	}
	return tx.FindCartHeader(ctx, cartID)
}
