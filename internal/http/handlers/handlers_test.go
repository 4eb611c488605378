package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/identity"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/transport"
	"github.com/yungbote/storefront-backend/internal/repos"
	"github.com/yungbote/storefront-backend/internal/services"
	"github.com/yungbote/storefront-backend/internal/types"
)

type stubOrders struct {
	mu       sync.Mutex
	orderErr error
	orders   int
	intents  int
	recorded chan string
}

func (s *stubOrders) CreateOrder(context.Context, types.OrderRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders++
	if s.orderErr != nil {
		return "", s.orderErr
	}
	return "ord_1", nil
}

func (s *stubOrders) CreatePaymentIntent(context.Context, types.PaymentIntentRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents++
	return "pi_secret", nil
}

func (s *stubOrders) RecordPayment(_ context.Context, _ types.PaymentOutcome, orderID string) error {
	if s.recorded != nil {
		s.recorded <- orderID
	}
	return nil
}

type testServer struct {
	router *gin.Engine
	orders *stubOrders
	carts  *services.CartRegistry
}

func newTestServer(t *testing.T, allowDevSkip bool) *testServer {
	t.Helper()
	return newTestServerWithCatalog(t, allowDevSkip, nil)
}

func newTestServerWithCatalog(t *testing.T, allowDevSkip bool, catalog services.Catalog) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()

	carts := services.NewCartRegistry(log, repos.NewMemoryCartStore(), catalog)
	orders := &stubOrders{recorded: make(chan string, 4)}
	checkout := services.NewCheckout(log, orders, services.CheckoutOptions{AllowDevSkip: allowDevSkip})

	ch := NewCartHandler(log, carts, observability.NewMetrics())
	co := NewCheckoutHandler(log, carts, checkout, services.NewSessionStore(0), nil)

	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Request = c.Request.WithContext(identity.WithUser(c.Request.Context(), identity.User{ID: uid}))
		}
		c.Next()
	})
	api.GET("/cart", ch.GetCart)
	api.POST("/cart/items", ch.AddItem)
	api.PUT("/cart/items/:lineItemId", ch.UpdateItem)
	api.DELETE("/cart/items/:lineItemId", ch.RemoveItem)
	api.DELETE("/cart/items", ch.RemoveMatching)
	api.DELETE("/cart", ch.ClearCart)
	api.GET("/cart/items/:lineItemId/display", ch.DisplayItem)
	api.POST("/checkout", co.StartSession)
	api.GET("/checkout/:id", co.GetSession)
	api.DELETE("/checkout/:id", co.AbandonSession)
	api.POST("/checkout/:id/submit", co.Submit)
	api.POST("/checkout/:id/back", co.Back)
	api.POST("/checkout/:id/payment", co.PaymentResult)
	api.POST("/checkout/:id/dev-skip", co.DevSkip)

	return &testServer{router: r, orders: orders, carts: carts}
}

func (ts *testServer) do(t *testing.T, method, path, user string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func sessionField(t *testing.T, body map[string]any, key string) any {
	t.Helper()
	s, ok := body["session"].(map[string]any)
	if !ok {
		t.Fatalf("response has no session: %v", body)
	}
	return s[key]
}

func burger() map[string]any {
	return map[string]any{
		"lineItemId":    "li-1",
		"catalogItemId": "burger",
		"name":          "Burger",
		"basePrice":     10.0,
		"quantity":      2,
		"addOns": []map[string]any{
			{"id": "cheese", "name": "Cheese", "unitPrice": 1.5, "quantity": 1},
		},
	}
}

func TestCartRequiresUser(t *testing.T) {
	ts := newTestServer(t, false)
	w, body := ts.do(t, http.MethodGet, "/api/cart", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=%d got=%d", http.StatusUnauthorized, w.Code)
	}
	env, _ := body["error"].(map[string]any)
	if env["code"] != "unauthorized" {
		t.Fatalf("error code: want=unauthorized got=%v", env["code"])
	}
}

func TestCartAddMergesSameLineItemID(t *testing.T) {
	ts := newTestServer(t, false)

	w, _ := ts.do(t, http.MethodPost, "/api/cart/items", "u1", burger())
	if w.Code != http.StatusCreated {
		t.Fatalf("add status: want=%d got=%d body=%s", http.StatusCreated, w.Code, w.Body.String())
	}
	w, body := ts.do(t, http.MethodPost, "/api/cart/items", "u1", burger())
	if w.Code != http.StatusCreated {
		t.Fatalf("second add status: want=%d got=%d", http.StatusCreated, w.Code)
	}

	cart := body["cart"].(map[string]any)
	items := cart["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("rows: want=1 got=%d", len(items))
	}
	if q := items[0].(map[string]any)["quantity"]; q != 4.0 {
		t.Fatalf("quantity: want=4 got=%v", q)
	}
	if total := cart["total"]; total != 46.0 {
		t.Fatalf("total: want=46 got=%v", total)
	}
}

func TestCartAddPricesFromCatalog(t *testing.T) {
	cat := &stubCatalog{items: map[string]types.CatalogItem{
		"burger": {ID: "burger", Name: "Burger", BasePrice: 10, AddOns: []types.CatalogAddOn{
			{ID: "cheese", Name: "Cheese", UnitPrice: 1.5},
		}},
	}}
	ts := newTestServerWithCatalog(t, false, cat)

	tampered := burger()
	tampered["basePrice"] = 0.01
	tampered["addOns"] = []map[string]any{{"id": "cheese", "name": "Cheese", "unitPrice": 0, "quantity": 1}}
	w, body := ts.do(t, http.MethodPost, "/api/cart/items", "u1", tampered)
	if w.Code != http.StatusCreated {
		t.Fatalf("add status: want=%d got=%d body=%s", http.StatusCreated, w.Code, w.Body.String())
	}
	item := body["item"].(map[string]any)
	if item["basePrice"] != 10.0 {
		t.Fatalf("basePrice: want=10 got=%v", item["basePrice"])
	}
	if total := body["cart"].(map[string]any)["total"]; total != 23.0 {
		t.Fatalf("total: want=23 got=%v", total)
	}

	tampered["basePrice"] = 1.0
	w, body = ts.do(t, http.MethodPut, "/api/cart/items/li-1", "u1", tampered)
	if w.Code != http.StatusOK {
		t.Fatalf("update status: want=%d got=%d", http.StatusOK, w.Code)
	}
	if total := body["cart"].(map[string]any)["total"]; total != 23.0 {
		t.Fatalf("total after update: want=23 got=%v", total)
	}
}

func TestCartAddRejectsMissingCatalogItem(t *testing.T) {
	ts := newTestServer(t, false)
	w, _ := ts.do(t, http.MethodPost, "/api/cart/items", "u1", map[string]any{"name": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, w.Code)
	}
}

func TestCartIsScopedPerUser(t *testing.T) {
	ts := newTestServer(t, false)
	ts.do(t, http.MethodPost, "/api/cart/items", "u1", burger())

	_, body := ts.do(t, http.MethodGet, "/api/cart", "u2", nil)
	cart := body["cart"].(map[string]any)
	if n := cart["count"]; n != 0.0 {
		t.Fatalf("other user's count: want=0 got=%v", n)
	}
}

func TestCartRemoveMatchingByAddOns(t *testing.T) {
	ts := newTestServer(t, false)
	ts.do(t, http.MethodPost, "/api/cart/items", "u1", burger())
	plain := burger()
	plain["lineItemId"] = "li-2"
	plain["addOns"] = []any{}
	ts.do(t, http.MethodPost, "/api/cart/items", "u1", plain)

	w, body := ts.do(t, http.MethodDelete, "/api/cart/items?catalogItemId=burger&addOns=", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, w.Code)
	}
	if n := body["removed"]; n != 1.0 {
		t.Fatalf("removed: want=1 got=%v", n)
	}
	items := body["cart"].(map[string]any)["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["lineItemId"] != "li-1" {
		t.Fatalf("remaining rows: %v", items)
	}
}

func TestCartDisplayItemNotFound(t *testing.T) {
	ts := newTestServer(t, false)
	w, _ := ts.do(t, http.MethodGet, "/api/cart/items/missing/display", "u1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d", http.StatusNotFound, w.Code)
	}
}

func TestCheckoutHappyPath(t *testing.T) {
	ts := newTestServer(t, false)
	ts.do(t, http.MethodPost, "/api/cart/items", "u1", burger())

	w, body := ts.do(t, http.MethodPost, "/api/checkout", "u1", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("start status: want=%d got=%d", http.StatusCreated, w.Code)
	}
	id, _ := sessionField(t, body, "id").(string)
	if id == "" {
		t.Fatalf("session id missing")
	}

	w, body = ts.do(t, http.MethodPost, "/api/checkout/"+id+"/submit", "u1", map[string]any{"specialInstructions": "no onions"})
	if w.Code != http.StatusOK {
		t.Fatalf("submit status: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	if step := sessionField(t, body, "step"); step != "payment" {
		t.Fatalf("step: want=payment got=%v", step)
	}
	if secret := sessionField(t, body, "clientSecret"); secret != "pi_secret" {
		t.Fatalf("clientSecret: want=pi_secret got=%v", secret)
	}

	w, body = ts.do(t, http.MethodPost, "/api/checkout/"+id+"/payment", "u1", map[string]any{
		"success": true,
		"outcome": map[string]any{"id": "pi_1", "status": "succeeded"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("payment status: want=%d got=%d", http.StatusOK, w.Code)
	}
	if step := sessionField(t, body, "step"); step != "confirmation" {
		t.Fatalf("step: want=confirmation got=%v", step)
	}
	if redirect := sessionField(t, body, "redirectToCart"); redirect != false {
		t.Fatalf("redirectToCart after payment: want=false got=%v", redirect)
	}
	if got := <-ts.orders.recorded; got != "ord_1" {
		t.Fatalf("recorded order: want=ord_1 got=%s", got)
	}

	_, body = ts.do(t, http.MethodGet, "/api/cart", "u1", nil)
	if n := body["cart"].(map[string]any)["count"]; n != 0.0 {
		t.Fatalf("cart after confirmation: want=0 got=%v", n)
	}
}

func TestCheckoutSubmitEmptyCart(t *testing.T) {
	ts := newTestServer(t, false)
	_, body := ts.do(t, http.MethodPost, "/api/checkout", "u1", nil)
	id := sessionField(t, body, "id").(string)
	if redirect := sessionField(t, body, "redirectToCart"); redirect != true {
		t.Fatalf("redirectToCart for empty cart: want=true got=%v", redirect)
	}

	w, _ := ts.do(t, http.MethodPost, "/api/checkout/"+id+"/submit", "u1", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: want=%d got=%d", http.StatusUnprocessableEntity, w.Code)
	}
	if ts.orders.orders != 0 {
		t.Fatalf("orders created: want=0 got=%d", ts.orders.orders)
	}
}

func TestCheckoutSubmitFailureKeepsReview(t *testing.T) {
	ts := newTestServer(t, false)
	ts.orders.orderErr = &transport.HTTPError{StatusCode: http.StatusBadRequest, Message: "item unavailable"}
	ts.do(t, http.MethodPost, "/api/cart/items", "u1", burger())
	_, body := ts.do(t, http.MethodPost, "/api/checkout", "u1", nil)
	id := sessionField(t, body, "id").(string)

	w, body := ts.do(t, http.MethodPost, "/api/checkout/"+id+"/submit", "u1", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status: want=%d got=%d", http.StatusBadGateway, w.Code)
	}
	if step := sessionField(t, body, "step"); step != "review" {
		t.Fatalf("step: want=review got=%v", step)
	}
	if msg, _ := sessionField(t, body, "error").(string); msg == "" {
		t.Fatalf("expected session error message")
	}
	if ts.orders.intents != 0 {
		t.Fatalf("intents after failed order: want=0 got=%d", ts.orders.intents)
	}
}

func TestCheckoutInvalidTransition(t *testing.T) {
	ts := newTestServer(t, false)
	_, body := ts.do(t, http.MethodPost, "/api/checkout", "u1", nil)
	id := sessionField(t, body, "id").(string)

	w, _ := ts.do(t, http.MethodPost, "/api/checkout/"+id+"/back", "u1", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status: want=%d got=%d", http.StatusConflict, w.Code)
	}
}

func TestCheckoutSessionIsOwnerScoped(t *testing.T) {
	ts := newTestServer(t, false)
	_, body := ts.do(t, http.MethodPost, "/api/checkout", "u1", nil)
	id := sessionField(t, body, "id").(string)

	w, _ := ts.do(t, http.MethodGet, "/api/checkout/"+id, "u2", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d", http.StatusNotFound, w.Code)
	}
	w, _ = ts.do(t, http.MethodDelete, "/api/checkout/"+id, "u1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status: want=%d got=%d", http.StatusNoContent, w.Code)
	}
	w, _ = ts.do(t, http.MethodGet, "/api/checkout/"+id, "u1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status after delete: want=%d got=%d", http.StatusNotFound, w.Code)
	}
}

func TestCheckoutDevSkip(t *testing.T) {
	ts := newTestServer(t, false)
	_, body := ts.do(t, http.MethodPost, "/api/checkout", "u1", nil)
	id := sessionField(t, body, "id").(string)
	w, _ := ts.do(t, http.MethodPost, "/api/checkout/"+id+"/dev-skip", "u1", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("disabled status: want=%d got=%d", http.StatusForbidden, w.Code)
	}

	ts = newTestServer(t, true)
	ts.do(t, http.MethodPost, "/api/cart/items", "u1", burger())
	_, body = ts.do(t, http.MethodPost, "/api/checkout", "u1", nil)
	id = sessionField(t, body, "id").(string)
	for _, want := range []string{"payment", "confirmation"} {
		w, body = ts.do(t, http.MethodPost, "/api/checkout/"+id+"/dev-skip", "u1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("dev-skip status: want=%d got=%d", http.StatusOK, w.Code)
		}
		if step := sessionField(t, body, "step"); step != want {
			t.Fatalf("step: want=%s got=%v", want, step)
		}
	}
	if ts.orders.orders != 0 {
		t.Fatalf("dev-skip must not call the network: orders=%d", ts.orders.orders)
	}
	cart, err := ts.carts.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if !cart.IsEmpty() {
		t.Fatalf("cart should be cleared after dev-skip to confirmation")
	}
}

func TestCheckoutPaymentFailureKeepsPayment(t *testing.T) {
	ts := newTestServer(t, false)
	ts.do(t, http.MethodPost, "/api/cart/items", "u1", burger())
	_, body := ts.do(t, http.MethodPost, "/api/checkout", "u1", nil)
	id := sessionField(t, body, "id").(string)
	ts.do(t, http.MethodPost, "/api/checkout/"+id+"/submit", "u1", nil)

	w, body := ts.do(t, http.MethodPost, "/api/checkout/"+id+"/payment", "u1", map[string]any{"success": false, "error": "card declined"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, w.Code)
	}
	if step := sessionField(t, body, "step"); step != "payment" {
		t.Fatalf("step: want=payment got=%v", step)
	}
	if msg := sessionField(t, body, "error"); msg != "card declined" {
		t.Fatalf("error: want=card declined got=%v", msg)
	}
}

type stubCatalog struct {
	items map[string]types.CatalogItem
	err   error
}

func (s *stubCatalog) LookupItem(_ context.Context, id string) (types.CatalogItem, bool, error) {
	it, ok := s.items[id]
	return it, ok, s.err
}

func (s *stubCatalog) ListItems(context.Context) ([]types.CatalogItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]types.CatalogItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	return out, nil
}

func (s *stubCatalog) GetItem(_ context.Context, id string) (types.CatalogItem, error) {
	if it, ok := s.items[id]; ok {
		return it, nil
	}
	return types.CatalogItem{}, &transport.HTTPError{StatusCode: http.StatusNotFound, Message: "no such item"}
}

func TestCatalogHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cat := &stubCatalog{items: map[string]types.CatalogItem{
		"burger": {ID: "burger", Name: "Burger", BasePrice: 10},
	}}
	h := NewCatalogHandler(logger.Nop(), cat)
	r := gin.New()
	r.GET("/catalog/items", h.ListItems)
	r.GET("/catalog/items/:id", h.GetItem)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/items/burger", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get status: want=%d got=%d", http.StatusOK, w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/items/pizza", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing status: want=%d got=%d", http.StatusNotFound, w.Code)
	}

	cat.err = &transport.HTTPError{StatusCode: http.StatusServiceUnavailable, Message: "down"}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/items", nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("list status: want=%d got=%d", http.StatusBadGateway, w.Code)
	}
}

func TestCartDisplayItemUsesCatalog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	cat := &stubCatalog{items: map[string]types.CatalogItem{
		"burger": {ID: "burger", Name: "Burger", BasePrice: 10, ImageRef: "img/burger.png", Description: "Beef"},
	}}
	carts := services.NewCartRegistry(log, repos.NewMemoryCartStore(), cat)
	cart, err := carts.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if _, err := cart.Add(context.Background(), types.LineItem{LineItemID: "li-1", CatalogItemID: "burger", Name: "Burger", BasePrice: 10, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	h := NewCartHandler(log, carts, nil)
	r := gin.New()
	r.GET("/cart/items/:lineItemId/display", func(c *gin.Context) {
		c.Request = c.Request.WithContext(identity.WithUser(c.Request.Context(), identity.User{ID: "u1"}))
		h.DisplayItem(c)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart/items/li-1/display", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, w.Code)
	}
	var body struct {
		Item struct {
			ImageRef string `json:"imageRef"`
		} `json:"item"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Item.ImageRef != "img/burger.png" {
		t.Fatalf("imageRef: want=img/burger.png got=%s", body.Item.ImageRef)
	}
}
