package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPending  Status = "PENDING"
	StatusInactive Status = "INACTIVE"
)

var Statuses = []Status{StatusActive, StatusPending, StatusInactive}

// ParseStatus matches case-insensitively against the fixed status set.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

type ShopCart struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"            json:"id"`
	UserID     uint            `gorm:"index;not null"                      json:"user_id"`
	Name       string          `gorm:"size:63;index;not null"              json:"name"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_price"`
	Status     Status          `gorm:"size:16;not null;default:'ACTIVE'"   json:"status"`
	Items      []Item          `gorm:"foreignKey:ShopCartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (ShopCart) TableName() string {
	return "shop_carts"
}

type Item struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"            json:"id"`
	ShopCartID uint            `gorm:"index;not null"                      json:"shop_cart_id"`
	Name       string          `gorm:"size:64;index;not null"              json:"name"`
	ProductID  uint            `gorm:"index;not null"                      json:"product_id"`
	Quantity   uint            `gorm:"not null"                           json:"quantity"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null"         json:"price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (Item) TableName() string {
	return "shop_cart_items"
}

// Subtotal is price times quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// TotalOf sums the subtotals of items, rounded to cents.
func TotalOf(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total.Round(2)
}
