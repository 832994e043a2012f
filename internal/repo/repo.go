package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shopcarts/internal/models"
	pkgdb "github.com/Skotchmaster/shopcarts/pkg/db"
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(&models.ShopCart{}, &models.Item{})
}

// Transaction runs fn against a repo bound to a single gorm transaction.
// Returning an error from fn rolls everything back.
func (r *GormRepo) Transaction(ctx context.Context, fn func(tx *GormRepo) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepo{DB: tx})
	})
}

func (r *GormRepo) Ping(ctx context.Context) error {
	return pkgdb.Ping(ctx, r.DB)
}
