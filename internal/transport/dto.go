package transport

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shopcarts/internal/models"
)

// Absent fields stay nil so a missing value can be told apart from a zero one.
// Fields not listed here (total_price included) are dropped by the decoder.

type CartRequest struct {
	UserID *uint         `json:"user_id"`
	Name   *string       `json:"name"`
	Status *string       `json:"status"`
	Items  []ItemRequest `json:"items"`
}

type ItemRequest struct {
	Name      *string          `json:"name"`
	ProductID *uint            `json:"product_id"`
	Quantity  *int64           `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

type StatusRequest struct {
	Status *string `json:"status"`
}

type ItemResponse struct {
	ID         uint   `json:"id"`
	ShopCartID uint   `json:"shop_cart_id"`
	Name       string `json:"name"`
	ProductID  uint   `json:"product_id"`
	Quantity   uint   `json:"quantity"`
	Price      string `json:"price"`
}

type CartResponse struct {
	ID         uint           `json:"id"`
	UserID     uint           `json:"user_id"`
	Name       string         `json:"name"`
	TotalPrice string         `json:"total_price"`
	Status     models.Status  `json:"status"`
	Items      []ItemResponse `json:"items"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func NewItemResponse(it *models.Item) ItemResponse {
	return ItemResponse{
		ID:         it.ID,
		ShopCartID: it.ShopCartID,
		Name:       it.Name,
		ProductID:  it.ProductID,
		Quantity:   it.Quantity,
		Price:      it.Price.StringFixed(2),
	}
}

func NewItemsResponse(items []models.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, NewItemResponse(&items[i]))
	}
	return out
}

func NewCartResponse(c *models.ShopCart) CartResponse {
	return CartResponse{
		ID:         c.ID,
		UserID:     c.UserID,
		Name:       c.Name,
		TotalPrice: c.TotalPrice.StringFixed(2),
		Status:     c.Status,
		Items:      NewItemsResponse(c.Items),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func NewCartsResponse(carts []models.ShopCart) []CartResponse {
	out := make([]CartResponse, 0, len(carts))
	for i := range carts {
		out = append(out, NewCartResponse(&carts[i]))
	}
	return out
}
