package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cestlavie/bakery/internal/auth"
	"github.com/cestlavie/bakery/internal/catalog"
	"github.com/cestlavie/bakery/internal/engine"
	"github.com/cestlavie/bakery/internal/notify"
	"github.com/cestlavie/bakery/internal/storage"
	"github.com/cestlavie/bakery/pkg/types"
)

type nopSink struct{}

func (nopSink) Send(ctx context.Context, to, subject, body string) error { return nil }

type testServer struct {
	router http.Handler
	db     *storage.SQLiteStorage
}

func newTestServer(t *testing.T) *testServer {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var sink notify.Sink = nopSink{}

	orders := engine.New(db, sink, engine.DefaultConfig(), logger)
	cat := catalog.New(db, 0, logger)
	authSvc := auth.New(db, sink, "http://localhost/api/verify", 0, logger)

	h := New(orders, cat, authSvc, logger)
	return &testServer{router: h.Router(), db: db}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: cookie})
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// adminSession seeds a verified admin and returns a live session token.
func (ts *testServer) adminSession(t *testing.T) string {
	t.Helper()
	return ts.sessionFor(t, "admin@cestlavie.example", types.RoleAdmin)
}

func (ts *testServer) sessionFor(t *testing.T, email string, role types.Role) string {
	t.Helper()
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &types.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Verification: types.VerificationVerified,
	}
	require.NoError(t, ts.db.CreateUser(ctx, user))
	session := &types.Session{Token: uuid.NewString(), UserID: user.ID, CreatedAt: time.Now()}
	require.NoError(t, ts.db.CreateSession(ctx, session))
	return session.Token
}

func (ts *testServer) seedProduct(t *testing.T, name, price string, stock int) *types.Product {
	t.Helper()
	p := &types.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	require.NoError(t, ts.db.CreateProduct(context.Background(), p))
	return p
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestCreateOrderEndpoint(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProduct(t, "croissant", "2.50", 5)

	rec := ts.do(t, http.MethodPost, "/api/order", map[string]any{
		"customerEmail": "mario@example.com",
		"lineItems":     []map[string]any{{"productId": fmt.Sprint(p.ID), "quantity": 3}},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	order := decode[types.Order](t, rec)
	assert.Len(t, order.ID, 24)
	assert.Equal(t, types.StatusPending, order.Status)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("7.50")))
}

func TestCreateOrderEndpointClientFaultsAre400(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProduct(t, "croissant", "2.50", 2)

	// Insufficient stock: a conflict elsewhere, 400 here
	rec := ts.do(t, http.MethodPost, "/api/order", map[string]any{
		"customerEmail": "mario@example.com",
		"lineItems":     []map[string]any{{"productId": fmt.Sprint(p.ID), "quantity": 3}},
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown product
	rec = ts.do(t, http.MethodPost, "/api/order", map[string]any{
		"customerEmail": "mario@example.com",
		"lineItems":     []map[string]any{{"productId": "424242", "quantity": 1}},
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed body
	req := httptest.NewRequest(http.MethodPost, "/api/order", bytes.NewReader([]byte("{nope")))
	rec2 := httptest.NewRecorder()
	ts.router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestCreateOrderEndpointSlotConflictSuggests(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProduct(t, "croissant", "2.50", 10)

	deliver := time.Date(time.Now().Year()+1, 3, 10, 15, 0, 0, 0, time.Local).Format(time.RFC3339)
	body := map[string]any{
		"customerEmail": "a@example.com",
		"lineItems":     []map[string]any{{"productId": fmt.Sprint(p.ID), "quantity": 1}},
		"deliverDate":   deliver,
	}
	rec := ts.do(t, http.MethodPost, "/api/order", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/order", body, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	require.NotNil(t, resp.SuggestedDate)
	assert.True(t, resp.SuggestedDate.After(time.Now()))
}

func TestGetOrderEndpoint(t *testing.T) {
	ts := newTestServer(t)
	p := ts.seedProduct(t, "croissant", "2.50", 5)

	rec := ts.do(t, http.MethodPost, "/api/order", map[string]any{
		"customerEmail": "mario@example.com",
		"lineItems":     []map[string]any{{"productId": fmt.Sprint(p.ID), "quantity": 1}},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[types.Order](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/order/"+order.ID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Malformed id is a 400, not a 404
	rec = ts.do(t, http.MethodGet, "/api/order/not-hex", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/order/ffffffffffffffffffffffff", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderAdminGating(t *testing.T) {
	ts := newTestServer(t)

	// No session
	rec := ts.do(t, http.MethodGet, "/api/order/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Client session
	client := ts.sessionFor(t, "client@example.com", types.RoleClient)
	rec = ts.do(t, http.MethodGet, "/api/order/", nil, client)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin session
	admin := ts.adminSession(t)
	rec = ts.do(t, http.MethodGet, "/api/order/", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderLifecycleEndpoints(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)
	p := ts.seedProduct(t, "croissant", "2.50", 5)

	rec := ts.do(t, http.MethodPost, "/api/order", map[string]any{
		"customerEmail": "mario@example.com",
		"lineItems":     []map[string]any{{"productId": fmt.Sprint(p.ID), "quantity": 1}},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[types.Order](t, rec)

	rec = ts.do(t, http.MethodPut, "/api/order/accept/"+order.ID, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Delivering from pending is a 409; after accept it succeeds
	rec = ts.do(t, http.MethodPut, "/api/order/deliver/"+order.ID, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/order/accept/"+order.ID, nil, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/order/"+order.ID, nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/order/"+order.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrdersByDateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)
	p := ts.seedProduct(t, "croissant", "2.50", 5)

	deliver := time.Date(time.Now().Year()+1, 3, 10, 15, 0, 0, 0, time.Local)
	rec := ts.do(t, http.MethodPost, "/api/order", map[string]any{
		"customerEmail": "mario@example.com",
		"lineItems":     []map[string]any{{"productId": fmt.Sprint(p.ID), "quantity": 1}},
		"deliverDate":   deliver.Format(time.RFC3339),
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/order/date/"+deliver.Format("2006-01-02"), nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode[[]types.Order](t, rec)
	assert.Len(t, orders, 1)

	rec = ts.do(t, http.MethodGet, "/api/order/date/10-03-2027", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductEndpoints(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)

	// Create requires admin
	body := map[string]any{"name": "croissant", "price": "2.50", "stock": 5}
	rec := ts.do(t, http.MethodPost, "/api/product/", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/product/", body, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[types.Product](t, rec)
	assert.Equal(t, types.Available, product.Availability)

	// Reads are public
	rec = ts.do(t, http.MethodGet, "/api/product/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]types.Product](t, rec)
	assert.Len(t, products, 1)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/product/%d", product.ID), nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/product/9999", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/product/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Restock
	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/product/restock/%d", product.ID), map[string]any{"stock": 0}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	restocked := decode[types.Product](t, rec)
	assert.Equal(t, types.OutOfStock, restocked.Availability)

	// Delete
	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/product/%d", product.ID), nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAccountEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/register", map[string]any{
		"name":     "Mario Rossi",
		"email":    "mario@example.com",
		"password": "hunter2hunter2",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Unverified login is rejected
	rec = ts.do(t, http.MethodPost, "/api/login", map[string]any{
		"email": "mario@example.com", "password": "hunter2hunter2",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Verify using the stored token
	user, err := ts.db.GetUserByEmail(context.Background(), "mario@example.com")
	require.NoError(t, err)
	rec = ts.do(t, http.MethodGet, "/api/verify?token="+user.VerificationToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/login", map[string]any{
		"email": "mario@example.com", "password": "hunter2hunter2",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sessionToken string
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			sessionToken = c.Value
		}
	}
	require.NotEmpty(t, sessionToken)

	// Wrong password
	rec = ts.do(t, http.MethodPost, "/api/login", map[string]any{
		"email": "mario@example.com", "password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/logout", nil, sessionToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
