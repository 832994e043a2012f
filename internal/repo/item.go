package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shopcarts/internal/models"
)

func (r *GormRepo) CreateItem(ctx context.Context, item *models.Item) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *GormRepo) FindItem(ctx context.Context, cartID, itemID uint) (*models.Item, error) {
	var item models.Item
	if err := r.DB.WithContext(ctx).Where("id = ? AND shop_cart_id = ?", itemID, cartID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) FindItemByProduct(ctx context.Context, cartID, productID uint) (*models.Item, error) {
	var item models.Item
	if err := r.DB.WithContext(ctx).
		Where("shop_cart_id = ? AND product_id = ?", cartID, productID).
		Order("id ASC").
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemByName looks across every cart; the oldest match wins.
func (r *GormRepo) FindItemByName(ctx context.Context, name string) (*models.Item, error) {
	var item models.Item
	if err := r.DB.WithContext(ctx).Where("name = ?", name).Order("id ASC").First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) ListItems(ctx context.Context, cartID uint) ([]models.Item, error) {
	items := make([]models.Item, 0)
	if err := r.DB.WithContext(ctx).Where("shop_cart_id = ?", cartID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) IncrementItemQuantity(ctx context.Context, item *models.Item, delta uint) error {
	res := r.DB.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", item.ID).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return r.DB.WithContext(ctx).First(item, item.ID).Error
}

// SaveItem replaces the mutable item columns, zero values included.
func (r *GormRepo) SaveItem(ctx context.Context, item *models.Item) error {
	return r.DB.WithContext(ctx).
		Model(item).
		Select("name", "product_id", "quantity", "price", "updated_at").
		Updates(item).Error
}

func (r *GormRepo) DeleteItem(ctx context.Context, cartID, itemID uint) (bool, error) {
	res := r.DB.WithContext(ctx).Where("id = ? AND shop_cart_id = ?", itemID, cartID).Delete(&models.Item{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) DeleteItems(ctx context.Context, cartID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Where("shop_cart_id = ?", cartID).Delete(&models.Item{})
	return res.RowsAffected, res.Error
}
