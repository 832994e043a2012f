package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shopcarts/internal/models"
	"github.com/Skotchmaster/shopcarts/internal/repo"
	"github.com/Skotchmaster/shopcarts/internal/transport"
	pkgdb "github.com/Skotchmaster/shopcarts/pkg/db"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []CartEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := event.(CartEvent); ok {
		p.events = append(p.events, ev)
	}
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestService(t *testing.T) (*CartService, *recordingPublisher) {
	t.Helper()
	db, err := pkgdb.Open(context.Background(), pkgdb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(db) })

	r := &repo.GormRepo{DB: db}
	require.NoError(t, r.Migrate(context.Background()))

	pub := &recordingPublisher{}
	return &CartService{Repo: r, Events: pub}, pub
}

func ptr[T any](v T) *T { return &v }

func cartReq(userID uint, name string) transport.CartRequest {
	return transport.CartRequest{UserID: ptr(userID), Name: ptr(name)}
}

func itemReq(name string, productID uint, qty int64, price string) transport.ItemRequest {
	d := decimal.RequireFromString(price)
	return transport.ItemRequest{Name: ptr(name), ProductID: ptr(productID), Quantity: ptr(qty), Price: &d}
}

func mustCart(t *testing.T, s *CartService, name string) *models.ShopCart {
	t.Helper()
	cart, err := s.CreateCart(context.Background(), cartReq(1, name))
	require.NoError(t, err)
	return cart
}

func totalOf(t *testing.T, s *CartService, id uint) string {
	t.Helper()
	cart, err := s.GetCart(context.Background(), id)
	require.NoError(t, err)
	return cart.TotalPrice.StringFixed(2)
}

func TestCreateCart_DefaultsAndValidation(t *testing.T) {
	s, pub := newTestService(t)
	ctx := context.Background()

	cart, err := s.CreateCart(ctx, cartReq(3, "sc-1"))
	require.NoError(t, err)
	assert.NotZero(t, cart.ID)
	assert.Equal(t, models.StatusActive, cart.Status)
	assert.Equal(t, "0.00", cart.TotalPrice.StringFixed(2))
	assert.Equal(t, []string{EventCartCreated}, pub.types())

	tests := []struct {
		name string
		req  transport.CartRequest
	}{
		{name: "missing user_id", req: transport.CartRequest{Name: ptr("x")}},
		{name: "missing name", req: transport.CartRequest{UserID: ptr(uint(1))}},
		{name: "blank name", req: cartReq(1, "   ")},
		{name: "bad status", req: transport.CartRequest{UserID: ptr(uint(1)), Name: ptr("x"), Status: ptr("SHIPPED")}},
		{name: "bad nested item", req: transport.CartRequest{UserID: ptr(uint(1)), Name: ptr("x"), Items: []transport.ItemRequest{{Name: ptr("a")}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateCart(ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateCart_WithItemsComputesTotal(t *testing.T) {
	s, _ := newTestService(t)
	req := cartReq(1, "nested")
	req.Status = ptr("pending")
	req.Items = []transport.ItemRequest{
		itemReq("apple", 1, 2, "10.00"),
		itemReq("pear", 2, 3, "5.00"),
	}

	cart, err := s.CreateCart(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, cart.Status)
	assert.Equal(t, "35.00", totalOf(t, s, cart.ID))
}

func TestGetCart_NotFound(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.GetCart(context.Background(), 77)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "ShopCart with id '77' was not found.", Message(err))
}

func TestTotalPrice_Example(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "example")

	_, _, err := s.AddItem(ctx, cart.ID, itemReq("apple", 1, 2, "10.00"))
	require.NoError(t, err)
	_, _, err = s.AddItem(ctx, cart.ID, itemReq("pear", 2, 3, "5.00"))
	require.NoError(t, err)

	assert.Equal(t, "35.00", totalOf(t, s, cart.ID))
}

func TestTotalPrice_FollowsEveryItemMutation(t *testing.T) {
	s, pub := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "invariant")

	first, _, err := s.AddItem(ctx, cart.ID, itemReq("a", 1, 2, "1.10"))
	require.NoError(t, err)
	assert.Equal(t, "2.20", totalOf(t, s, cart.ID))

	second, _, err := s.AddItem(ctx, cart.ID, itemReq("b", 2, 1, "0.35"))
	require.NoError(t, err)
	assert.Equal(t, "2.55", totalOf(t, s, cart.ID))

	_, err = s.UpdateItem(ctx, cart.ID, first.ID, itemReq("a", 1, 3, "1.10"))
	require.NoError(t, err)
	assert.Equal(t, "3.65", totalOf(t, s, cart.ID))

	require.NoError(t, s.DeleteItem(ctx, cart.ID, second.ID))
	assert.Equal(t, "3.30", totalOf(t, s, cart.ID))

	require.NoError(t, s.DeleteItem(ctx, cart.ID, first.ID))
	assert.Equal(t, "0.00", totalOf(t, s, cart.ID))

	assert.Equal(t, []string{
		EventCartCreated, EventItemAdded, EventItemAdded, EventItemUpdated, EventItemRemoved, EventItemRemoved,
	}, pub.types())
}

func TestAddItem_MergesSameName(t *testing.T) {
	s, pub := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "merge")

	first, merged, err := s.AddItem(ctx, cart.ID, itemReq("widget", 5, 2, "4.00"))
	require.NoError(t, err)
	assert.False(t, merged)

	again, merged, err := s.AddItem(ctx, cart.ID, itemReq("widget", 5, 3, "4.00"))
	require.NoError(t, err)
	assert.True(t, merged)
	assert.Equal(t, first.ID, again.ID)
	assert.EqualValues(t, 5, again.Quantity)

	items, err := s.ListItems(ctx, cart.ID, ItemFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "20.00", totalOf(t, s, cart.ID))
	assert.Equal(t, EventItemMerged, pub.types()[len(pub.types())-1])
}

func TestAddItem_MergesAcrossCarts(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	owner := mustCart(t, s, "owner")
	other := mustCart(t, s, "other")

	orig, _, err := s.AddItem(ctx, owner.ID, itemReq("gadget", 1, 1, "2.00"))
	require.NoError(t, err)

	merged, wasMerged, err := s.AddItem(ctx, other.ID, itemReq("gadget", 1, 4, "2.00"))
	require.NoError(t, err)
	assert.True(t, wasMerged)
	assert.Equal(t, orig.ID, merged.ID)
	assert.Equal(t, owner.ID, merged.ShopCartID)

	assert.Equal(t, "10.00", totalOf(t, s, owner.ID))
	assert.Equal(t, "0.00", totalOf(t, s, other.ID))
}

func TestAddItem_Errors(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "errs")

	_, _, err := s.AddItem(ctx, cart.ID+100, itemReq("x", 1, 1, "1.00"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "ShopCart with id '101' could not be found.", Message(err))

	tests := []struct {
		name string
		req  transport.ItemRequest
	}{
		{name: "missing name", req: transport.ItemRequest{ProductID: ptr(uint(1)), Quantity: ptr(int64(1)), Price: ptr(decimal.NewFromInt(1))}},
		{name: "missing product", req: transport.ItemRequest{Name: ptr("x"), Quantity: ptr(int64(1)), Price: ptr(decimal.NewFromInt(1))}},
		{name: "missing quantity", req: transport.ItemRequest{Name: ptr("x"), ProductID: ptr(uint(1)), Price: ptr(decimal.NewFromInt(1))}},
		{name: "missing price", req: transport.ItemRequest{Name: ptr("x"), ProductID: ptr(uint(1)), Quantity: ptr(int64(1))}},
		{name: "negative quantity", req: itemReq("x", 1, -1, "1.00")},
		{name: "negative price", req: itemReq("x", 1, 1, "-0.01")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.AddItem(ctx, cart.ID, tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAddItem_RoundsPriceToCents(t *testing.T) {
	s, _ := newTestService(t)
	cart := mustCart(t, s, "round")

	item, _, err := s.AddItem(context.Background(), cart.ID, itemReq("x", 1, 1, "1.005"))
	require.NoError(t, err)
	assert.Equal(t, "1.01", item.Price.StringFixed(2))
}

func TestItemLookups(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "lookups")
	item, _, err := s.AddItem(ctx, cart.ID, itemReq("x", 42, 1, "1.00"))
	require.NoError(t, err)

	got, err := s.GetItem(ctx, cart.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Name)

	byProduct, err := s.GetItemByProduct(ctx, cart.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, item.ID, byProduct.ID)

	_, err = s.GetItem(ctx, cart.ID, item.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetItem(ctx, cart.ID+1, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetItemByProduct(ctx, cart.ID, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateItemByProduct(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "by-product")
	_, _, err := s.AddItem(ctx, cart.ID, itemReq("x", 42, 1, "1.00"))
	require.NoError(t, err)

	updated, err := s.UpdateItemByProduct(ctx, cart.ID, 42, itemReq("x", 42, 4, "2.00"))
	require.NoError(t, err)
	assert.EqualValues(t, 4, updated.Quantity)
	assert.Equal(t, "8.00", totalOf(t, s, cart.ID))

	_, err = s.UpdateItemByProduct(ctx, cart.ID, 9, itemReq("x", 9, 4, "2.00"))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteItemByProduct(ctx, cart.ID, 42))
	assert.Equal(t, "0.00", totalOf(t, s, cart.ID))
	require.NoError(t, s.DeleteItemByProduct(ctx, cart.ID, 42))
}

func TestUpdateItem_ValidationLeavesItemUntouched(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "keep")
	item, _, err := s.AddItem(ctx, cart.ID, itemReq("x", 1, 2, "1.00"))
	require.NoError(t, err)

	_, err = s.UpdateItem(ctx, cart.ID, item.ID, itemReq("x", 1, -3, "1.00"))
	require.ErrorIs(t, err, ErrValidation)

	got, err := s.GetItem(ctx, cart.ID, item.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Quantity)
}

func TestDeleteItem_MissingCart(t *testing.T) {
	s, _ := newTestService(t)
	err := s.DeleteItem(context.Background(), 5, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListItems_ConjunctiveFilters(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "filters")
	for _, r := range []transport.ItemRequest{
		itemReq("cheap", 1, 1, "1.00"),
		itemReq("mid", 2, 1, "5.00"),
		itemReq("pricey", 3, 1, "9.99"),
	} {
		_, _, err := s.AddItem(ctx, cart.ID, r)
		require.NoError(t, err)
	}

	names := func(items []models.Item) []string {
		out := []string{}
		for _, it := range items {
			out = append(out, it.Name)
		}
		return out
	}

	all, err := s.ListItems(ctx, cart.ID, ItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"cheap", "mid", "pricey"}, names(all))

	lo := decimal.RequireFromString("2")
	hi := decimal.RequireFromString("9.99")
	ranged, err := s.ListItems(ctx, cart.ID, ItemFilter{MinPrice: &lo, MaxPrice: &hi})
	require.NoError(t, err)
	assert.Equal(t, []string{"mid", "pricey"}, names(ranged))

	named, err := s.ListItems(ctx, cart.ID, ItemFilter{Name: "mid", MinPrice: &lo})
	require.NoError(t, err)
	assert.Equal(t, []string{"mid"}, names(named))

	none, err := s.ListItems(ctx, cart.ID, ItemFilter{Name: "cheap", MinPrice: &lo})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.ListItems(ctx, cart.ID+1, ItemFilter{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCart(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "old")
	_, _, err := s.AddItem(ctx, cart.ID, itemReq("x", 1, 2, "3.00"))
	require.NoError(t, err)

	req := cartReq(9, "new")
	updated, err := s.UpdateCart(ctx, cart.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Name)
	assert.EqualValues(t, 9, updated.UserID)
	assert.Equal(t, models.StatusActive, updated.Status)
	assert.Equal(t, "6.00", updated.TotalPrice.StringFixed(2))
	assert.Len(t, updated.Items, 1)

	req.Status = ptr("INACTIVE")
	updated, err = s.UpdateCart(ctx, cart.ID, req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, updated.Status)

	_, err = s.UpdateCart(ctx, cart.ID+1, req)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UpdateCart(ctx, cart.ID, transport.CartRequest{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatus(t *testing.T) {
	s, pub := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "status")

	updated, err := s.UpdateStatus(ctx, cart.ID, ptr("PENDING"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Contains(t, pub.types(), EventCartStatusChanged)

	// Any value may replace any other.
	updated, err = s.UpdateStatus(ctx, cart.ID, ptr("ACTIVE"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, updated.Status)

	for _, bad := range []*string{nil, ptr(""), ptr("SHIPPED")} {
		_, err := s.UpdateStatus(ctx, cart.ID, bad)
		assert.ErrorIs(t, err, ErrValidation)
	}
	got, err := s.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)

	_, err = s.UpdateStatus(ctx, cart.ID+1, ptr("PENDING"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCart_CascadeAndIdempotent(t *testing.T) {
	s, pub := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "bye")
	item, _, err := s.AddItem(ctx, cart.ID, itemReq("x", 1, 1, "1.00"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteCart(ctx, cart.ID))
	_, err = s.GetCart(ctx, cart.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Repo.FindItemByName(ctx, item.Name)
	assert.Error(t, err)

	require.NoError(t, s.DeleteCart(ctx, cart.ID))
	deletes := 0
	for _, typ := range pub.types() {
		if typ == EventCartDeleted {
			deletes++
		}
	}
	assert.Equal(t, 1, deletes)
}

func TestClearCart(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "clear")
	_, _, err := s.AddItem(ctx, cart.ID, itemReq("x", 1, 1, "1.00"))
	require.NoError(t, err)

	cleared, err := s.ClearCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Items)
	assert.Equal(t, "0.00", cleared.TotalPrice.StringFixed(2))

	_, err = s.ClearCart(ctx, cart.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCarts(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	mustCart(t, s, "a")
	mustCart(t, s, "b")

	carts, err := s.ListCarts(ctx, repo.CartFilter{Name: "b"})
	require.NoError(t, err)
	require.Len(t, carts, 1)
	assert.Equal(t, "b", carts[0].Name)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	s, pub := newTestService(t)
	pub.err = errors.New("broker down")

	cart, err := s.CreateCart(context.Background(), cartReq(1, "still-saved"))
	require.NoError(t, err)
	_, err = s.GetCart(context.Background(), cart.ID)
	require.NoError(t, err)
}

func TestNilPublisher(t *testing.T) {
	s, _ := newTestService(t)
	s.Events = nil
	_, err := s.CreateCart(context.Background(), cartReq(1, "quiet"))
	require.NoError(t, err)
}

func TestPersistenceErrorIsValidation(t *testing.T) {
	err := persistence(errors.New("constraint failed"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "data validation error", Message(err))
	assert.Contains(t, err.Error(), "constraint failed")

	nf := notFound("gone")
	assert.Same(t, nf, persistence(nf))
	assert.Nil(t, persistence(nil))
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" inactive ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, st)

	_, err = ParseStatus("nope")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, Message(err), "ACTIVE, PENDING, INACTIVE")
}

func TestCreateCart_NestedItemsMergeByName(t *testing.T) {
	s, pub := newTestService(t)
	ctx := context.Background()

	owner, err := s.CreateCart(ctx, cartReq(7, "owner"))
	require.NoError(t, err)
	_, _, err = s.AddItem(ctx, owner.ID, itemReq("apple", 1, 1, "1.00"))
	require.NoError(t, err)

	req := cartReq(8, "newcomer")
	req.Items = []transport.ItemRequest{
		itemReq("apple", 1, 3, "1.00"),
		itemReq("apple", 1, 4, "1.00"),
		itemReq("pear", 2, 2, "2.00"),
	}
	created, err := s.CreateCart(ctx, req)
	require.NoError(t, err)
	require.Len(t, created.Items, 1)
	assert.Equal(t, "pear", created.Items[0].Name)
	assert.Equal(t, "4.00", created.TotalPrice.StringFixed(2))

	ownerItems, err := s.ListItems(ctx, owner.ID, ItemFilter{})
	require.NoError(t, err)
	require.Len(t, ownerItems, 1)
	assert.EqualValues(t, 8, ownerItems[0].Quantity)
	assert.Equal(t, "8.00", totalOf(t, s, owner.ID))

	var merged []CartEvent
	for _, ev := range pub.events {
		if ev.Type == EventItemMerged {
			merged = append(merged, ev)
		}
	}
	require.Len(t, merged, 1)
	assert.Equal(t, owner.ID, merged[0].CartID)
	assert.EqualValues(t, 7, merged[0].UserID)
	assert.EqualValues(t, 8, *merged[0].Quantity)
	assert.Equal(t, "8.00", merged[0].TotalPrice)
}

func TestCreateCart_DuplicateNamesInBodyCollapse(t *testing.T) {
	s, _ := newTestService(t)

	req := cartReq(1, "dupes")
	req.Items = []transport.ItemRequest{
		itemReq("apple", 1, 3, "1.00"),
		itemReq("apple", 1, 4, "1.00"),
	}
	created, err := s.CreateCart(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, created.Items, 1)
	assert.EqualValues(t, 7, created.Items[0].Quantity)
	assert.Equal(t, "7.00", created.TotalPrice.StringFixed(2))
}

func TestUpdateItem_RenameToUsedNameRejected(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cart := mustCart(t, s, "rename")
	other := mustCart(t, s, "elsewhere")

	_, _, err := s.AddItem(ctx, other.ID, itemReq("apple", 1, 1, "1.00"))
	require.NoError(t, err)
	pear, _, err := s.AddItem(ctx, cart.ID, itemReq("pear", 2, 2, "2.00"))
	require.NoError(t, err)

	_, err = s.UpdateItem(ctx, cart.ID, pear.ID, itemReq("apple", 2, 2, "2.00"))
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, Message(err), "already used")

	got, err := s.GetItem(ctx, cart.ID, pear.ID)
	require.NoError(t, err)
	assert.Equal(t, "pear", got.Name)

	renamed, err := s.UpdateItem(ctx, cart.ID, pear.ID, itemReq("quince", 2, 2, "2.00"))
	require.NoError(t, err)
	assert.Equal(t, "quince", renamed.Name)

	_, err = s.UpdateItem(ctx, cart.ID, pear.ID, itemReq("quince", 2, 3, "2.00"))
	require.NoError(t, err)
}

func TestEventsCarryOwnerUserID(t *testing.T) {
	s, pub := newTestService(t)
	ctx := context.Background()

	cart, err := s.CreateCart(ctx, cartReq(33, "owned"))
	require.NoError(t, err)
	item, _, err := s.AddItem(ctx, cart.ID, itemReq("x", 1, 1, "1.00"))
	require.NoError(t, err)
	_, err = s.UpdateItem(ctx, cart.ID, item.ID, itemReq("x", 1, 2, "1.00"))
	require.NoError(t, err)
	require.NoError(t, s.DeleteItem(ctx, cart.ID, item.ID))
	require.NoError(t, s.DeleteCart(ctx, cart.ID))

	require.Equal(t, []string{
		EventCartCreated, EventItemAdded, EventItemUpdated, EventItemRemoved, EventCartDeleted,
	}, pub.types())
	for _, ev := range pub.events {
		assert.EqualValues(t, 33, ev.UserID, ev.Type)
		assert.Equal(t, cart.ID, ev.CartID, ev.Type)
	}
	assert.Equal(t, "2.00", pub.events[2].TotalPrice)
	assert.Equal(t, "0.00", pub.events[4].TotalPrice)
}
