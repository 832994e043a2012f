package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shopcarts/internal/service"
	"github.com/Skotchmaster/shopcarts/internal/transport"
	"github.com/Skotchmaster/shopcarts/pkg/logging"
)

func (h *ShopCartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.item")

	cartID, err := pathID(c, "id")
	if err != nil {
		l.Warn("add_item_error", "status", http.StatusBadRequest, "error", err)
		return err
	}

	var req transport.ItemRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "add_item_error", err)
	}

	item, merged, err := h.Svc.AddItem(ctx, cartID, req)
	if err != nil {
		return fail(l, "add_item_error", err)
	}

	c.Response().Header().Set(echo.HeaderLocation, location(c, "/shopcarts/%d/items/%d", item.ShopCartID, item.ID))
	l.Info("item added to cart", "cart_id", item.ShopCartID, "item_id", item.ID, "merged", merged)
	return c.JSON(http.StatusCreated, transport.NewItemResponse(item))
}

func priceParam(c echo.Context, name string) (*decimal.Decimal, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" '"+raw+"'")
	}
	return &d, nil
}

// ListItems filters the cart's items by name, min_price and max_price.
func (h *ShopCartHTTP) ListItems(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "list.items")

	cartID, err := pathID(c, "id")
	if err != nil {
		l.Warn("list_items_error", "status", http.StatusBadRequest, "error", err)
		return err
	}

	f := service.ItemFilter{Name: c.QueryParam("name")}
	if f.MinPrice, err = priceParam(c, "min_price"); err != nil {
		l.Warn("list_items_error", "status", http.StatusBadRequest, "error", err)
		return err
	}
	if f.MaxPrice, err = priceParam(c, "max_price"); err != nil {
		l.Warn("list_items_error", "status", http.StatusBadRequest, "error", err)
		return err
	}

	items, err := h.Svc.ListItems(ctx, cartID, f)
	if err != nil {
		return fail(l, "list_items_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewItemsResponse(items))
}

// itemPath reads the cart id and the second path id named key.
func itemPath(c echo.Context, l *slog.Logger, event, key string) (cartID, id uint, err error) {
	if cartID, err = pathID(c, "id"); err == nil {
		id, err = pathID(c, key)
	}
	if err != nil {
		l.Warn(event, "status", http.StatusBadRequest, "error", err)
	}
	return cartID, id, err
}

func (h *ShopCartHTTP) GetItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.item")

	cartID, itemID, err := itemPath(c, l, "get_item_error", "item_id")
	if err != nil {
		return err
	}

	item, err := h.Svc.GetItem(ctx, cartID, itemID)
	if err != nil {
		return fail(l, "get_item_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewItemResponse(item))
}

func (h *ShopCartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "update.item")

	cartID, itemID, err := itemPath(c, l, "update_item_error", "item_id")
	if err != nil {
		return err
	}

	var req transport.ItemRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_item_error", err)
	}

	item, err := h.Svc.UpdateItem(ctx, cartID, itemID, req)
	if err != nil {
		return fail(l, "update_item_error", err)
	}

	l.Info("item updated", "cart_id", cartID, "item_id", itemID)
	return c.JSON(http.StatusOK, transport.NewItemResponse(item))
}

func (h *ShopCartHTTP) DeleteItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "delete.item")

	cartID, itemID, err := itemPath(c, l, "delete_item_error", "item_id")
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteItem(ctx, cartID, itemID); err != nil {
		return fail(l, "delete_item_error", err)
	}

	l.Info("item deleted", "cart_id", cartID, "item_id", itemID)
	return c.NoContent(http.StatusNoContent)
}

func (h *ShopCartHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.product")

	cartID, productID, err := itemPath(c, l, "get_product_error", "product_id")
	if err != nil {
		return err
	}

	item, err := h.Svc.GetItemByProduct(ctx, cartID, productID)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewItemResponse(item))
}

func (h *ShopCartHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "update.product")

	cartID, productID, err := itemPath(c, l, "update_product_error", "product_id")
	if err != nil {
		return err
	}

	var req transport.ItemRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_product_error", err)
	}

	item, err := h.Svc.UpdateItemByProduct(ctx, cartID, productID, req)
	if err != nil {
		return fail(l, "update_product_error", err)
	}

	l.Info("item updated", "cart_id", cartID, "product_id", productID)
	return c.JSON(http.StatusOK, transport.NewItemResponse(item))
}

func (h *ShopCartHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "delete.product")

	cartID, productID, err := itemPath(c, l, "delete_product_error", "product_id")
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteItemByProduct(ctx, cartID, productID); err != nil {
		return fail(l, "delete_product_error", err)
	}

	l.Info("item deleted", "cart_id", cartID, "product_id", productID)
	return c.NoContent(http.StatusNoContent)
}
