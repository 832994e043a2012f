package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/shopcarts/internal/models"
	"github.com/Skotchmaster/shopcarts/pkg/logging"
)

const (
	EventCartCreated       = "cart_created"
	EventCartUpdated       = "cart_updated"
	EventCartDeleted       = "cart_deleted"
	EventCartStatusChanged = "cart_status_changed"
	EventCartCleared       = "cart_cleared"
	EventItemAdded         = "item_added"
	EventItemMerged        = "item_merged"
	EventItemUpdated       = "item_updated"
	EventItemRemoved       = "item_removed"
)

type Publisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
}

type CartEvent struct {
	EventID    string        `json:"event_id"`
	Type       string        `json:"type"`
	CartID     uint          `json:"cart_id"`
	UserID     uint          `json:"user_id"`
	ItemID     uint          `json:"item_id,omitempty"`
	Quantity   *uint         `json:"quantity,omitempty"`
	Status     models.Status `json:"status,omitempty"`
	TotalPrice string        `json:"total_price"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func cartEvent(typ string, cart *models.ShopCart) CartEvent {
	return CartEvent{
		Type:       typ,
		CartID:     cart.ID,
		UserID:     cart.UserID,
		Status:     cart.Status,
		TotalPrice: cart.TotalPrice.StringFixed(2),
	}
}

// itemEvent describes a change to item as seen by the cart that holds it.
func itemEvent(typ string, cart *models.ShopCart, item *models.Item) CartEvent {
	qty := item.Quantity
	return CartEvent{
		Type:       typ,
		CartID:     cart.ID,
		UserID:     cart.UserID,
		ItemID:     item.ID,
		Quantity:   &qty,
		TotalPrice: cart.TotalPrice.StringFixed(2),
	}
}

// publish never fails the caller; the write has already been committed.
func (s *CartService) publish(ctx context.Context, ev CartEvent) {
	if s.Events == nil {
		return
	}
	ev.EventID = uuid.NewString()
	ev.OccurredAt = time.Now().UTC()

	if err := s.Events.PublishEvent(ctx, strconv.FormatUint(uint64(ev.CartID), 10), ev); err != nil {
		logging.FromContext(ctx).Error("publish_event_error", "type", ev.Type, "cart_id", ev.CartID, "error", err)
	}
}
