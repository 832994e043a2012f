package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shopcarts/internal/repo"
	"github.com/Skotchmaster/shopcarts/internal/service"
	"github.com/Skotchmaster/shopcarts/internal/transport"
	"github.com/Skotchmaster/shopcarts/internal/util"
	"github.com/Skotchmaster/shopcarts/pkg/logging"
)

type ShopCartHTTP struct {
	Svc *service.CartService
}

func location(c echo.Context, format string, args ...any) string {
	return c.Scheme() + "://" + c.Request().Host + fmt.Sprintf(format, args...)
}

func (h *ShopCartHTTP) CreateCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "create.cart")

	var req transport.CartRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "create_cart_error", err)
	}

	cart, err := h.Svc.CreateCart(ctx, req)
	if err != nil {
		return fail(l, "create_cart_error", err)
	}

	c.Response().Header().Set(echo.HeaderLocation, location(c, "/shopcarts/%d", cart.ID))
	l.Info("cart created", "cart_id", cart.ID)
	return c.JSON(http.StatusCreated, transport.NewCartResponse(cart))
}

func (h *ShopCartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.cart")

	id, err := pathID(c, "id")
	if err != nil {
		l.Warn("get_cart_error", "status", http.StatusBadRequest, "error", err)
		return err
	}

	cart, err := h.Svc.GetCart(ctx, id)
	if err != nil {
		return fail(l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewCartResponse(cart))
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid %s '%s'", name, raw))
	}
	return n, nil
}

// ListCarts filters by any combination of name, status and user_id.
// Results are paged only when page or size is given.
func (h *ShopCartHTTP) ListCarts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "list.carts")

	f := repo.CartFilter{Name: c.QueryParam("name")}
	if raw := c.QueryParam("status"); raw != "" {
		st, err := service.ParseStatus(raw)
		if err != nil {
			return fail(l, "list_carts_error", err)
		}
		f.Status = st
	}
	if raw := c.QueryParam("user_id"); raw != "" {
		uid, err := parseID(raw, "user_id")
		if err != nil {
			l.Warn("list_carts_error", "status", http.StatusBadRequest, "error", err)
			return err
		}
		f.UserID = &uid
	}
	if c.QueryParam("page") != "" || c.QueryParam("size") != "" {
		page, err := intQuery(c, "page", 1)
		if err != nil {
			l.Warn("list_carts_error", "status", http.StatusBadRequest, "error", err)
			return err
		}
		size, err := intQuery(c, "size", util.DefaultPageSize)
		if err != nil {
			l.Warn("list_carts_error", "status", http.StatusBadRequest, "error", err)
			return err
		}
		f.Offset, f.Limit = util.Calculate(page, size)
	}

	return h.listCarts(c, l, f)
}

func (h *ShopCartHTTP) ListCartsByStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "list.carts.by.status")

	st, err := service.ParseStatus(c.Param("name"))
	if err != nil {
		return fail(l, "list_carts_error", err)
	}
	return h.listCarts(c, l, repo.CartFilter{Status: st})
}

func (h *ShopCartHTTP) ListCartsByUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "list.carts.by.user")

	uid, err := pathID(c, "id")
	if err != nil {
		l.Warn("list_carts_error", "status", http.StatusBadRequest, "error", err)
		return err
	}
	return h.listCarts(c, l, repo.CartFilter{UserID: &uid})
}

func (h *ShopCartHTTP) listCarts(c echo.Context, l *slog.Logger, f repo.CartFilter) error {
	carts, err := h.Svc.ListCarts(c.Request().Context(), f)
	if err != nil {
		return fail(l, "list_carts_error", err)
	}
	l.Info("carts listed", "count", len(carts))
	return c.JSON(http.StatusOK, transport.NewCartsResponse(carts))
}

func (h *ShopCartHTTP) UpdateCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "update.cart")

	id, err := pathID(c, "id")
	if err != nil {
		l.Warn("update_cart_error", "status", http.StatusBadRequest, "error", err)
		return err
	}

	var req transport.CartRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_cart_error", err)
	}

	cart, err := h.Svc.UpdateCart(ctx, id, req)
	if err != nil {
		return fail(l, "update_cart_error", err)
	}

	l.Info("cart updated", "cart_id", id)
	return c.JSON(http.StatusOK, transport.NewCartResponse(cart))
}

func (h *ShopCartHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "update.cart.status")

	id, err := pathID(c, "id")
	if err != nil {
		l.Warn("update_status_error", "status", http.StatusBadRequest, "error", err)
		return err
	}

	var req transport.StatusRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_status_error", err)
	}

	cart, err := h.Svc.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return fail(l, "update_status_error", err)
	}

	l.Info("cart status changed", "cart_id", id, "cart_status", cart.Status)
	return c.JSON(http.StatusOK, transport.NewCartResponse(cart))
}

func (h *ShopCartHTTP) DeleteCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "delete.cart")

	id, err := pathID(c, "id")
	if err != nil {
		l.Warn("delete_cart_error", "status", http.StatusBadRequest, "error", err)
		return err
	}

	if err := h.Svc.DeleteCart(ctx, id); err != nil {
		return fail(l, "delete_cart_error", err)
	}

	l.Info("cart deleted", "cart_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *ShopCartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clear.cart")

	id, err := pathID(c, "id")
	if err != nil {
		l.Warn("clear_cart_error", "status", http.StatusBadRequest, "error", err)
		return err
	}

	if _, err := h.Svc.ClearCart(ctx, id); err != nil {
		return fail(l, "clear_cart_error", err)
	}

	l.Info("cart successfully cleared", "cart_id", id)
	return c.NoContent(http.StatusNoContent)
}
