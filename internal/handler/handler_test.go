package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/devnology/storefront/internal/domain/auth"
	"github.com/devnology/storefront/internal/domain/order"
	"github.com/devnology/storefront/internal/domain/product"
	"github.com/devnology/storefront/internal/domain/user"
)

// --- In-memory repositories ---

type memUserRepo struct {
	byEmail map[string]*user.User
	byID    map[string]*user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byEmail: make(map[string]*user.User),
		byID:    make(map[string]*user.User),
	}
}

func (m *memUserRepo) Create(_ context.Context, u *user.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	m.byEmail[u.Email] = u
	m.byID[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type memProductRepo struct {
	products []product.Product
}

func (m *memProductRepo) List(_ context.Context) ([]product.Product, error) {
	return m.products, nil
}

func (m *memProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *memProductRepo) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	var found []product.Product
	for _, id := range ids {
		for _, p := range m.products {
			if p.ID == id {
				found = append(found, p)
			}
		}
	}
	return found, nil
}

type memOrderRepo struct {
	orders []order.Order
}

func (m *memOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.orders = append([]order.Order{*o}, m.orders...)
	return nil
}

func (m *memOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

// --- Test environment ---

type testEnv struct {
	mux   *http.ServeMux
	users *memUserRepo
}

func newTestEnv(products ...product.Product) *testEnv {
	users := newMemUserRepo()
	productRepo := &memProductRepo{products: products}
	tokens := auth.NewIssuer([]byte("test-secret"), time.Hour)

	h := New(
		Config{},
		user.NewService(users, bcrypt.MinCost),
		productRepo,
		order.NewService(productRepo, &memOrderRepo{}),
		tokens,
	)
	mux := http.NewServeMux()
	h.Register(mux)

	return &testEnv{mux: mux, users: users}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its session cookie.
func (e *testEnv) register(t *testing.T, name, email, password string) *http.Cookie {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/user/create", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return sessionFromResponse(t, rec)
}

func sessionFromResponse(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func discountedChair() product.Product {
	return product.Product{
		ID:                       2,
		Name:                     "Chair",
		PriceInCents:             5000,
		HasDiscount:              true,
		DiscountInPercent:        20,
		PriceWithDiscountInCents: 4000,
		Supplier:                 product.SupplierInternational,
		Images:                   []string{"chair.jpg"},
	}
}

func plainTable() product.Product {
	return product.Product{
		ID:                       1,
		Name:                     "Table",
		PriceInCents:             10000,
		PriceWithDiscountInCents: 10000,
		Supplier:                 product.SupplierDomestic,
		Images:                   []string{"table.jpg"},
	}
}

// --- User endpoints ---

func TestCreateUser(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/user/create", map[string]string{
		"name":     "Ada Lovelace",
		"email":    "ada@example.com",
		"password": "secret1",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeJSON[map[string]any](t, rec)
	assert.NotEmpty(t, resp["id"])
	assert.Equal(t, "ada@example.com", resp["email"])
	assert.NotContains(t, rec.Body.String(), "password", "credentials must never appear in responses")

	cookie := sessionFromResponse(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)
	assert.Positive(t, cookie.MaxAge)
}

func TestCreateUser_Validation(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/user/create", map[string]string{
		"name":     "Al",
		"email":    "not-an-email",
		"password": "short",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "name")
	assert.Contains(t, resp.Fields, "email")
	assert.Contains(t, resp.Fields, "password")
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	env := newTestEnv()
	env.register(t, "Ada", "ada@example.com", "secret1")

	rec := env.do(t, http.MethodPost, "/user/create", map[string]string{
		"name":     "Imposter",
		"email":    "ada@example.com",
		"password": "other99",
	})

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv()
	env.register(t, "Ada", "ada@example.com", "secret1")

	rec := env.do(t, http.MethodPost, "/user/login", map[string]string{
		"email":    "ada@example.com",
		"password": "secret1",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionFromResponse(t, rec)
	assert.NotEmpty(t, cookie.Value)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv()
	env.register(t, "Ada", "ada@example.com", "secret1")

	wrongPassword := env.do(t, http.MethodPost, "/user/login", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong99",
	})
	unknownEmail := env.do(t, http.MethodPost, "/user/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "secret1",
	})

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	// Identical responses: login failures must not reveal which emails exist.
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestLoginWithToken(t *testing.T) {
	env := newTestEnv()
	cookie := env.register(t, "Ada", "ada@example.com", "secret1")

	rec := env.do(t, http.MethodPost, "/user/loginWithToken", nil, cookie)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeJSON[map[string]any](t, rec)
	assert.Equal(t, "ada@example.com", resp["email"])
}

func TestLoginWithToken_Unauthorized(t *testing.T) {
	env := newTestEnv()

	t.Run("no cookie", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/user/loginWithToken", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/user/loginWithToken", nil,
			&http.Cookie{Name: sessionCookie, Value: "garbage"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token for deleted user", func(t *testing.T) {
		cookie := env.register(t, "Ada", "ada@example.com", "secret1")
		env.users.byEmail = map[string]*user.User{}
		env.users.byID = map[string]*user.User{}

		rec := env.do(t, http.MethodPost, "/user/loginWithToken", nil, cookie)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv()
	cookie := env.register(t, "Ada", "ada@example.com", "secret1")

	rec := env.do(t, http.MethodPost, "/user/logout", nil, cookie)

	require.Equal(t, http.StatusNoContent, rec.Code)
	cleared := sessionFromResponse(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

// --- Product endpoints ---

func TestListProducts(t *testing.T) {
	env := newTestEnv(plainTable(), discountedChair())

	rec := env.do(t, http.MethodGet, "/products", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[[]productResponse](t, rec)
	require.Len(t, resp, 2)
	assert.Equal(t, int64(10000), resp[0].PriceInCents)
	assert.True(t, resp[1].HasDiscount)
	assert.Equal(t, 20, resp[1].DiscountInPercent)
	assert.Equal(t, int64(4000), resp[1].PriceWithDiscountInCents)
	assert.Equal(t, "international", resp[1].Supplier)
}

func TestListProducts_ImagesNeverNull(t *testing.T) {
	p := plainTable()
	p.Images = nil
	env := newTestEnv(p)

	rec := env.do(t, http.MethodGet, "/products", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"images":[]`)
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(plainTable())

	t.Run("found", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/products/1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[productResponse](t, rec)
		assert.Equal(t, "Table", resp.Name)
	})

	t.Run("non-numeric id returns 400", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/products/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/products/999", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// --- Order endpoints ---

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(plainTable(), discountedChair())
	cookie := env.register(t, "Ada", "ada@example.com", "secret1")

	rec := env.do(t, http.MethodPost, "/orders", map[string]any{
		"products": []map[string]any{
			{"productId": 1, "quantity": 2},
			{"productId": 2, "quantity": 3},
		},
	}, cookie)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeJSON[orderResponse](t, rec)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, int64(32000), resp.TotalPriceInCents)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, int64(4000), resp.Products[1].PriceWithDiscountInCents)
}

func TestCreateOrder_Unauthorized(t *testing.T) {
	env := newTestEnv(plainTable())

	rec := env.do(t, http.MethodPost, "/orders", map[string]any{
		"products": []map[string]any{{"productId": 1, "quantity": 1}},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateOrder_Invalid(t *testing.T) {
	env := newTestEnv(plainTable())
	cookie := env.register(t, "Ada", "ada@example.com", "secret1")

	t.Run("empty cart returns 400", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/orders", map[string]any{
			"products": []map[string]any{},
		}, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("zero quantity returns 400", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/orders", map[string]any{
			"products": []map[string]any{{"productId": 1, "quantity": 0}},
		}, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown product returns 422", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/orders", map[string]any{
			"products": []map[string]any{{"productId": 999, "quantity": 1}},
		}, cookie)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("{not json"))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		env.mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListOrders(t *testing.T) {
	env := newTestEnv(plainTable())
	cookie := env.register(t, "Ada", "ada@example.com", "secret1")

	t.Run("empty history is an empty array", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/orders", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("placed orders appear in history", func(t *testing.T) {
		placed := env.do(t, http.MethodPost, "/orders", map[string]any{
			"products": []map[string]any{{"productId": 1, "quantity": 1}},
		}, cookie)
		require.Equal(t, http.StatusCreated, placed.Code)

		rec := env.do(t, http.MethodGet, "/orders", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[[]orderResponse](t, rec)
		require.Len(t, resp, 1)
		assert.Equal(t, int64(10000), resp[0].TotalPriceInCents)
	})

	t.Run("requires authentication", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/orders", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListOrders_OnlyOwnOrders(t *testing.T) {
	env := newTestEnv(plainTable())
	adaCookie := env.register(t, "Ada", "ada@example.com", "secret1")
	bobCookie := env.register(t, "Bob", "bob@example.com", "secret2")

	placed := env.do(t, http.MethodPost, "/orders", map[string]any{
		"products": []map[string]any{{"productId": 1, "quantity": 1}},
	}, adaCookie)
	require.Equal(t, http.StatusCreated, placed.Code)

	rec := env.do(t, http.MethodGet, "/orders", nil, bobCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}
