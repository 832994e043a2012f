package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/shopcarts/pkg/middleware/auth"
)

type Deps struct {
	CartHandler *ShopCartHTTP
	ServiceName string
	// Ready backs /health/ready; nil means always ready.
	Ready     func(ctx context.Context) error
	JWTSecret []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"name":    d.ServiceName,
			"version": "1.0",
			"paths":   "/shopcarts",
		})
	})
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
		}
		return c.NoContent(http.StatusOK)
	})

	// Middleware goes on each route rather than the group so that a wrong
	// method on a known path still answers 405.
	mw := []echo.MiddlewareFunc{RequireJSON}
	if len(d.JWTSecret) > 0 {
		mw = append([]echo.MiddlewareFunc{authmw.NewBearerAuth(d.JWTSecret).RequireAuth}, mw...)
	}

	h := d.CartHandler
	carts := e.Group("/shopcarts")

	carts.POST("", h.CreateCart, mw...)
	carts.GET("", h.ListCarts, mw...)
	carts.GET("/status/:name", h.ListCartsByStatus, mw...)
	carts.GET("/user/:id", h.ListCartsByUser, mw...)
	carts.GET("/:id", h.GetCart, mw...)
	carts.PUT("/:id", h.UpdateCart, mw...)
	carts.DELETE("/:id", h.DeleteCart, mw...)
	carts.PATCH("/:id/status", h.UpdateStatus, mw...)

	carts.POST("/:id/items", h.AddItem, mw...)
	carts.GET("/:id/items", h.ListItems, mw...)
	carts.DELETE("/:id/items", h.ClearCart, mw...)
	carts.GET("/:id/items/:item_id", h.GetItem, mw...)
	carts.PUT("/:id/items/:item_id", h.UpdateItem, mw...)
	carts.DELETE("/:id/items/:item_id", h.DeleteItem, mw...)

	carts.GET("/:id/products/:product_id", h.GetProduct, mw...)
	carts.PUT("/:id/products/:product_id", h.UpdateProduct, mw...)
	carts.DELETE("/:id/products/:product_id", h.DeleteProduct, mw...)
}
