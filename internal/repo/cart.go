package repo

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shopcarts/internal/models"
)

type CartFilter struct {
	Name   string
	Status models.Status
	UserID *uint

	// Limit 0 returns every match.
	Offset int
	Limit  int
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func (r *GormRepo) CreateCart(ctx context.Context, cart *models.ShopCart) error {
	return r.DB.WithContext(ctx).Create(cart).Error
}

func (r *GormRepo) FindCart(ctx context.Context, id uint) (*models.ShopCart, error) {
	var cart models.ShopCart
	if err := r.DB.WithContext(ctx).Preload("Items", orderedItems).First(&cart, id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindCartHeader loads the cart row without its items.
func (r *GormRepo) FindCartHeader(ctx context.Context, id uint) (*models.ShopCart, error) {
	var cart models.ShopCart
	if err := r.DB.WithContext(ctx).First(&cart, id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) CartExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.ShopCart{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepo) ListCarts(ctx context.Context, f CartFilter) ([]models.ShopCart, error) {
	q := r.DB.WithContext(ctx).Model(&models.ShopCart{}).Preload("Items", orderedItems)
	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}

	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}

	carts := make([]models.ShopCart, 0)
	if err := q.Order("id ASC").Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}

// SaveCart writes the mutable cart columns, zero values included.
func (r *GormRepo) SaveCart(ctx context.Context, cart *models.ShopCart) error {
	return r.DB.WithContext(ctx).
		Model(cart).
		Select("user_id", "name", "status", "total_price", "updated_at").
		Updates(cart).Error
}

func (r *GormRepo) UpdateCartStatus(ctx context.Context, id uint, status models.Status) error {
	res := r.DB.WithContext(ctx).Model(&models.ShopCart{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) SetCartTotal(ctx context.Context, id uint, total decimal.Decimal) error {
	return r.DB.WithContext(ctx).Model(&models.ShopCart{}).Where("id = ?", id).Update("total_price", total).Error
}

// DeleteCart removes the cart and its items and reports whether the cart existed.
// Items are deleted explicitly so the cascade holds on engines without FK enforcement.
func (r *GormRepo) DeleteCart(ctx context.Context, id uint) (bool, error) {
	var deleted bool
	err := r.Transaction(ctx, func(tx *GormRepo) error {
		if err := tx.DB.Where("shop_cart_id = ?", id).Delete(&models.Item{}).Error; err != nil {
			return err
		}
		res := tx.DB.Delete(&models.ShopCart{}, id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}
