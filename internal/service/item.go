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

type ItemFilter struct {
	Name     string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

func (f ItemFilter) match(it *models.Item) bool {
	if f.Name != "" && it.Name != f.Name {
		return false
	}
	if f.MinPrice != nil && it.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && it.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

type itemLocator func(ctx context.Context, tx *repo.GormRepo) (*models.Item, error)

func byItemID(cartID, itemID uint) itemLocator {
	return func(ctx context.Context, tx *repo.GormRepo) (*models.Item, error) {
		it, err := tx.FindItem(ctx, cartID, itemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Item with id '%d' could not be found.", itemID)
		}
		return it, err
	}
}

func byProductID(cartID, productID uint) itemLocator {
	return func(ctx context.Context, tx *repo.GormRepo) (*models.Item, error) {
		it, err := tx.FindItemByProduct(ctx, cartID, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Item with product id '%d' could not be found in ShopCart '%d'.", productID, cartID)
		}
		return it, err
	}
}

func validateItem(req transport.ItemRequest) (*models.Item, error) {
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, invalid("Invalid Item: missing name")
	}
	if req.ProductID == nil {
		return nil, invalid("Invalid Item: missing product_id")
	}
	if req.Quantity == nil {
		return nil, invalid("Invalid Item: missing quantity")
	}
	if *req.Quantity < 0 {
		return nil, invalid("Invalid Item: quantity must not be negative")
	}
	if req.Price == nil {
		return nil, invalid("Invalid Item: missing price")
	}
	if req.Price.IsNegative() {
		return nil, invalid("Invalid Item: price must not be negative")
	}

	return &models.Item{
		Name:      strings.TrimSpace(*req.Name),
		ProductID: *req.ProductID,
		Quantity:  uint(*req.Quantity),
		Price:     req.Price.Round(2),
	}, nil
}

// addOrMerge inserts next into cartID, or, when an item with the same name
// already exists in any cart, adds the quantity to that item instead.
func addOrMerge(ctx context.Context, tx *repo.GormRepo, cartID uint, next *models.Item) (*models.Item, bool, error) {
	existing, err := tx.FindItemByName(ctx, next.Name)
	switch {
	case err == nil:
		if err := tx.IncrementItemQuantity(ctx, existing, next.Quantity); err != nil {
			return nil, false, err
		}
		return existing, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		next.ShopCartID = cartID
		if err := tx.CreateItem(ctx, next); err != nil {
			return nil, false, err
		}
		return next, false, nil
	default:
		return nil, false, err
	}
}

// AddItem adds the item to the cart, merging by name. merged reports whether
// an existing item absorbed the quantity; its cart is the one recomputed.
func (s *CartService) AddItem(ctx context.Context, cartID uint, req transport.ItemRequest) (item *models.Item, merged bool, err error) {
	var owner *models.ShopCart

	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := requireCart(ctx, tx, cartID); err != nil {
			return err
		}
		next, err := validateItem(req)
		if err != nil {
			return err
		}

		if item, merged, err = addOrMerge(ctx, tx, cartID, next); err != nil {
			return err
		}
		owner, err = recomputeTotal(ctx, tx, item.ShopCartID)
		return err
	})
	if err != nil {
		return nil, false, persistence(err)
	}

	typ := EventItemAdded
	if merged {
		typ = EventItemMerged
	}
	s.publish(ctx, itemEvent(typ, owner, item))
	return item, merged, nil
}

// requireFreeName fails when another item already carries name; names are
// unique across carts so that merging stays unambiguous.
func requireFreeName(ctx context.Context, tx *repo.GormRepo, name string, self uint) error {
	other, err := tx.FindItemByName(ctx, name)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != self:
		return invalid("Invalid Item: name '%s' is already used by item '%d'", name, other.ID)
	}
	return nil
}

func (s *CartService) GetItem(ctx context.Context, cartID, itemID uint) (*models.Item, error) {
	return s.getItem(ctx, cartID, byItemID(cartID, itemID))
}

func (s *CartService) GetItemByProduct(ctx context.Context, cartID, productID uint) (*models.Item, error) {
	return s.getItem(ctx, cartID, byProductID(cartID, productID))
}

func (s *CartService) getItem(ctx context.Context, cartID uint, locate itemLocator) (*models.Item, error) {
	var item *models.Item
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := requireCart(ctx, tx, cartID); err != nil {
			return err
		}
		var err error
		item, err = locate(ctx, tx)
		return err
	})
	if err != nil {
		return nil, persistence(err)
	}
	return item, nil
}

// ListItems scans the cart's items keeping those matching every filter set.
func (s *CartService) ListItems(ctx context.Context, cartID uint, f ItemFilter) ([]models.Item, error) {
	var items []models.Item
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := requireCart(ctx, tx, cartID); err != nil {
			return err
		}
		var err error
		items, err = tx.ListItems(ctx, cartID)
		return err
	})
	if err != nil {
		return nil, persistence(err)
	}

	out := make([]models.Item, 0, len(items))
	for i := range items {
		if f.match(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out, nil
}

func (s *CartService) UpdateItem(ctx context.Context, cartID, itemID uint, req transport.ItemRequest) (*models.Item, error) {
	return s.updateItem(ctx, cartID, byItemID(cartID, itemID), req)
}

func (s *CartService) UpdateItemByProduct(ctx context.Context, cartID, productID uint, req transport.ItemRequest) (*models.Item, error) {
	return s.updateItem(ctx, cartID, byProductID(cartID, productID), req)
}

func (s *CartService) updateItem(ctx context.Context, cartID uint, locate itemLocator, req transport.ItemRequest) (*models.Item, error) {
	var (
		item *models.Item
		cart *models.ShopCart
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := requireCart(ctx, tx, cartID); err != nil {
			return err
		}
		current, err := locate(ctx, tx)
		if err != nil {
			return err
		}
		next, err := validateItem(req)
		if err != nil {
			return err
		}
		if next.Name != current.Name {
			if err := requireFreeName(ctx, tx, next.Name, current.ID); err != nil {
				return err
			}
		}

		current.Name = next.Name
		current.ProductID = next.ProductID
		current.Quantity = next.Quantity
		current.Price = next.Price
		if err := tx.SaveItem(ctx, current); err != nil {
			return err
		}
		item = current

		cart, err = recomputeTotal(ctx, tx, cartID)
		return err
	})
	if err != nil {
		return nil, persistence(err)
	}

	s.publish(ctx, itemEvent(EventItemUpdated, cart, item))
	return item, nil
}

// DeleteItem removes the item; a missing item is not an error, a missing cart is.
func (s *CartService) DeleteItem(ctx context.Context, cartID, itemID uint) error {
	return s.deleteItem(ctx, cartID, byItemID(cartID, itemID))
}

func (s *CartService) DeleteItemByProduct(ctx context.Context, cartID, productID uint) error {
	return s.deleteItem(ctx, cartID, byProductID(cartID, productID))
}

func (s *CartService) deleteItem(ctx context.Context, cartID uint, locate itemLocator) error {
	var (
		removed *models.Item
		cart    *models.ShopCart
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := requireCart(ctx, tx, cartID); err != nil {
			return err
		}
		it, err := locate(ctx, tx)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if _, err := tx.DeleteItem(ctx, cartID, it.ID); err != nil {
			return err
		}
		removed = it

		cart, err = recomputeTotal(ctx, tx, cartID)
		return err
	})
	if err != nil {
		return persistence(err)
	}

	if removed != nil {
		s.publish(ctx, itemEvent(EventItemRemoved, cart, removed))
	}
	return nil
}
