package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shopcarts/internal/repo"
	"github.com/Skotchmaster/shopcarts/internal/service"
	pkgdb "github.com/Skotchmaster/shopcarts/pkg/db"
)

func newTestServer(t *testing.T, secret []byte) *echo.Echo {
	t.Helper()
	db, err := pkgdb.Open(context.Background(), pkgdb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(db) })

	r := &repo.GormRepo{DB: db}
	require.NoError(t, r.Migrate(context.Background()))

	e := echo.New()
	Register(e, &Deps{
		CartHandler: &ShopCartHTTP{Svc: &service.CartService{Repo: r}},
		ServiceName: "shopcarts",
		Ready:       r.Ping,
		JWTSecret:   secret,
	})
	return e
}

func doRaw(e *echo.Echo, method, path, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func do(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw := ""
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		raw = string(b)
	}
	return doRaw(e, method, path, echo.MIMEApplicationJSON, raw)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createCart(t *testing.T, e *echo.Echo, userID int, name string) map[string]any {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/shopcarts", map[string]any{"user_id": userID, "name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func addItem(t *testing.T, e *echo.Echo, cartID any, name string, productID, qty int, price string) map[string]any {
	t.Helper()
	rec := do(t, e, http.MethodPost, path("/shopcarts/%v/items", cartID), map[string]any{
		"name": name, "product_id": productID, "quantity": qty, "price": price,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)
}
