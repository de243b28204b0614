package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcourier/courier-api/internal/apperr"
	"github.com/bookcourier/courier-api/internal/auth"
	"github.com/bookcourier/courier-api/internal/checkout"
	"github.com/bookcourier/courier-api/internal/checkout/checkouttest"
	"github.com/bookcourier/courier-api/internal/events"
	"github.com/bookcourier/courier-api/internal/orders"
	"github.com/bookcourier/courier-api/internal/store"
	"github.com/bookcourier/courier-api/internal/store/dynamotest"
	"github.com/bookcourier/courier-api/internal/users"
)

var testTables = Tables{
	Books:       "books",
	Orders:      "orders",
	Payments:    "payments",
	Users:       "users",
	Librarians:  "librarians",
	Idempotency: "idempotency",
}

type recordingSQS struct {
	mu   sync.Mutex
	sent []events.Event
}

func (m *recordingSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	var ev events.Event
	if err := json.Unmarshal([]byte(*in.MessageBody), &ev); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, ev)
	return &sqs.SendMessageOutput{}, nil
}

func (m *recordingSQS) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, ev := range m.sent {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	fake     *dynamotest.Fake
	checkout *checkouttest.Fake
	sqs      *recordingSQS
	jwt      *auth.JWTVerifier
	users    *users.Store
	orders   *orders.Store
	router   *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := dynamotest.New()
	fake.CreateTable(testTables.Books, store.IDAttr)
	fake.CreateTable(testTables.Orders, store.IDAttr)
	fake.CreateTable(testTables.Payments, "transactionId")
	fake.CreateTable(testTables.Users, store.IDAttr)
	fake.CreateTable(testTables.Librarians, store.IDAttr)
	fake.CreateTable(testTables.Idempotency, "idempotency_key")

	env := &testEnv{
		fake:     fake,
		checkout: checkouttest.New(),
		sqs:      &recordingSQS{},
		jwt:      auth.NewJWTVerifier("test-secret"),
		users:    users.NewStore(store.New(fake), testTables.Users),
		orders:   orders.NewStore(store.New(fake), testTables.Orders),
	}
	cfg := HandlerConfig{
		DynamoDBClient: fake,
		SQSClient:      env.sqs,
		Tables:         testTables,
		QueueURL:       "https://sqs.test/events",
		TTLWindow:      time.Hour,
		Checkout:       env.checkout,
		Verifier:       env.jwt,
		SiteDomain:     "https://books.test/",
	}
	env.router = gin.New()
	RegisterRoutes(env.router, cfg)
	return env
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	tok, err := e.jwt.Issue(email, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) seedUser(t *testing.T, email, role string) string {
	t.Helper()
	ctx := context.Background()
	res, _, err := e.users.CreateIfAbsent(ctx, users.User{Email: email, DisplayName: email})
	require.NoError(t, err)
	if role != users.RoleUser {
		_, err = e.users.SetRoleByEmail(ctx, email, role)
		require.NoError(t, err)
	}
	return res.InsertedID
}

func (e *testEnv) seedOrder(t *testing.T, email string) string {
	t.Helper()
	res, err := e.orders.Create(context.Background(), orders.Order{Email: email, BookTitle: "Dune", Price: 20})
	require.NoError(t, err)
	return res.InsertedID
}

// do sends a request. headers alternate name, value.
func (e *testEnv) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doAs(t *testing.T, email, method, path, body string) *httptest.ResponseRecorder {
	return e.do(method, path, body, "Authorization", "Bearer "+e.token(t, email))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestBooks(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/books", `{"title":"Dune","author":"Frank Herbert","price":12.5,"genres":["sci-fi"],"_id":"mine"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[store.InsertResult](t, w)
	assert.True(t, created.Acknowledged)
	assert.NotEqual(t, "mine", created.InsertedID)

	w = env.do(http.MethodGet, "/books/"+created.InsertedID, "")
	require.Equal(t, http.StatusOK, w.Code)
	book := decode[map[string]any](t, w)
	assert.Equal(t, "Dune", book["title"])
	assert.Equal(t, []any{"sci-fi"}, book["genres"])
	assert.Equal(t, created.InsertedID, book["_id"])

	w = env.do(http.MethodGet, "/books/000000000000000000000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/books", `{"title":"Dune","publisher":{"name":"Chilton"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/books", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)
}

func TestOrders_CreateAndList(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/orders", `{"email":"reader@example.com","bookId":"b1","bookTitle":"Dune","price":20,"address":"221B Baker St","paymentStatus":"paid"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[store.InsertResult](t, w).InsertedID

	w = env.do(http.MethodGet, "/orders/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	o := decode[map[string]any](t, w)
	assert.Equal(t, orders.StatusPending, o["status"])
	assert.Equal(t, orders.PaymentUnpaid, o["paymentStatus"], "clients cannot set payment state")
	assert.Equal(t, "221B Baker St", o["address"])

	env.seedOrder(t, "other@example.com")
	w = env.do(http.MethodGet, "/orders?email=reader@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = env.do(http.MethodGet, "/orders", "")
	assert.Len(t, decode[[]map[string]any](t, w), 2)

	w = env.do(http.MethodGet, "/orders/000000000000000000000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Order not found"}`, w.Body.String())

	w = env.do(http.MethodPost, "/orders", `{"bookTitle":"Dune"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrders_IdempotentCreate(t *testing.T) {
	env := newTestEnv(t)
	body := `{"email":"reader@example.com","bookTitle":"Dune","price":20}`

	first := env.do(http.MethodPost, "/orders", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := env.do(http.MethodPost, "/orders", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	assert.Equal(t, 1, env.fake.Len(testTables.Orders))
	assert.NotNil(t, env.fake.Item(testTables.Idempotency, "order:k-1"))

	third := env.do(http.MethodPost, "/orders", body, "Idempotency-Key", "k-2")
	require.Equal(t, http.StatusCreated, third.Code)
	assert.Equal(t, 2, env.fake.Len(testTables.Orders))
}

func TestCancelOrder(t *testing.T) {
	env := newTestEnv(t)
	owner := "reader@example.com"
	unpaid := env.seedOrder(t, owner)
	paid := env.seedOrder(t, owner)
	_, err := env.orders.MarkPaid(context.Background(), paid, "PRCL-20261017-ABCDEF")
	require.NoError(t, err)

	w := env.do(http.MethodPatch, "/orders/cancel/"+unpaid, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"unauthorized access"}`, w.Body.String())

	w = env.doAs(t, "intruder@example.com", http.MethodPatch, "/orders/cancel/"+unpaid, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.doAs(t, "intruder@example.com", http.MethodPatch, "/orders/cancel/"+paid, "")
	assert.Equal(t, http.StatusForbidden, w.Code, "ownership is checked before payment state")

	w = env.doAs(t, owner, http.MethodPatch, "/orders/cancel/"+paid, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Paid order cannot be canceled"}`, w.Body.String())

	w = env.doAs(t, owner, http.MethodPatch, "/orders/cancel/000000000000000000000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.doAs(t, owner, http.MethodPatch, "/orders/cancel/"+unpaid, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[store.UpdateResult](t, w).ModifiedCount)

	o, err := env.orders.Get(context.Background(), unpaid)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCanceled, o.Status)
	assert.NotNil(t, o.CanceledAt)

	p, err := env.orders.Get(context.Background(), paid)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusComplete, p.Status)

	assert.Equal(t, []string{events.TypeOrderCanceled}, env.sqs.types())
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/users/newbie@example.com/role", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"role":"user"}`, w.Body.String())

	w = env.do(http.MethodPost, "/users", `{"email":"newbie@example.com","displayName":"Newbie","role":"admin"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(http.MethodPost, "/users", `{"email":"newbie@example.com","displayName":"Again"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"user already exists"}`, w.Body.String())

	w = env.do(http.MethodGet, "/users/newbie@example.com/role", "")
	assert.JSONEq(t, `{"role":"user"}`, w.Body.String())

	w = env.do(http.MethodGet, "/users?searchText=NEW", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.doAs(t, "newbie@example.com", http.MethodGet, "/users?searchText=NEW", "")
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[[]map[string]any](t, w)
	require.Len(t, found, 1)
	assert.Equal(t, "newbie@example.com", found[0]["email"])
}

func TestUpdateRole(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "admin@example.com", users.RoleAdmin)
	env.seedUser(t, "reader@example.com", users.RoleUser)
	target := env.seedUser(t, "target@example.com", users.RoleUser)

	w := env.doAs(t, "reader@example.com", http.MethodPatch, "/users/"+target+"/role", `{"role":"admin"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"forbidden access"}`, w.Body.String())
	role, err := env.users.RoleOf(context.Background(), "target@example.com")
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, role, "no mutation on forbidden update")

	w = env.doAs(t, "stranger@example.com", http.MethodPatch, "/users/"+target+"/role", `{"role":"admin"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.doAs(t, "admin@example.com", http.MethodPatch, "/users/"+target+"/role", `{"role":"overlord"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doAs(t, "admin@example.com", http.MethodPatch, "/users/"+target+"/role", `{"role":"librarian"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	role, err = env.users.RoleOf(context.Background(), "target@example.com")
	require.NoError(t, err)
	assert.Equal(t, users.RoleLibrarian, role)
}

func TestLibrarianApproval(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "admin@example.com", users.RoleAdmin)
	env.seedUser(t, "applicant@example.com", users.RoleUser)

	w := env.do(http.MethodPost, "/librarians", `{"email":"applicant@example.com","name":"App","status":"approved","experience":"5 years"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[store.InsertResult](t, w).InsertedID

	w = env.do(http.MethodGet, "/librarians?status=pending", "")
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[[]map[string]any](t, w)
	require.Len(t, pending, 1)
	assert.Equal(t, "5 years", pending[0]["experience"])

	w = env.doAs(t, "applicant@example.com", http.MethodPatch, "/librarians/"+id, `{"status":"approved"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.doAs(t, "admin@example.com", http.MethodPatch, "/librarians/"+id, `{"status":"approved","email":"applicant@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/librarians?status=approved", "")
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = env.do(http.MethodGet, "/users/applicant@example.com/role", "")
	assert.JSONEq(t, `{"role":"librarian"}`, w.Body.String())
	assert.Equal(t, []string{events.TypeLibrarianApproved}, env.sqs.types())

	w = env.doAs(t, "admin@example.com", http.MethodPatch, "/librarians/000000000000000000000000", `{"status":"rejected"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutSession(t *testing.T) {
	env := newTestEnv(t)
	body := `{"price":19.99,"bookTitle":"Dune","orderId":"o1","orderName":"Dune","customer_email":"reader@example.com"}`

	w := env.do(http.MethodPost, "/payment-checkout-session", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"url":"https://checkout.test/pay/cs_test_1"}`, w.Body.String())

	require.Len(t, env.checkout.Created, 1)
	req := env.checkout.Created[0]
	assert.Equal(t, int64(1999), req.AmountCents)
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, "please pay for: Dune", req.ProductName)
	assert.Equal(t, "o1", req.OrderID)
	assert.Equal(t, "https://books.test/dashboard/payment-success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "https://books.test/dashboard/payment-cancelled", req.CancelURL)

	w = env.do(http.MethodPost, "/payment-checkout-session", `{"price":0,"bookTitle":"Dune","orderId":"o1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, env.checkout.Created, 1)
}

func TestCheckoutSession_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	body := `{"price":"20","bookTitle":"Dune","orderId":"o1"}`

	first := env.do(http.MethodPost, "/payment-checkout-session", body, "Idempotency-Key", "pay-1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := env.do(http.MethodPost, "/payment-checkout-session", body, "Idempotency-Key", "pay-1")
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Len(t, env.checkout.Created, 1)

	env.checkout.Err = apperr.ErrUpstream
	w := env.do(http.MethodPost, "/payment-checkout-session", body, "Idempotency-Key", "pay-2")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	env.checkout.Err = nil
	w = env.do(http.MethodPost, "/payment-checkout-session", body, "Idempotency-Key", "pay-2")
	assert.Equal(t, http.StatusConflict, w.Code, "a failed key cannot be reused")
}

func TestPaymentSuccess(t *testing.T) {
	env := newTestEnv(t)
	orderID := env.seedOrder(t, "reader@example.com")
	env.checkout.Put(&checkout.Session{
		ID:              "sess_1",
		Status:          "complete",
		PaymentStatus:   checkout.PaymentStatusPaid,
		AmountTotal:     2000,
		Currency:        "usd",
		CustomerEmail:   "reader@example.com",
		PaymentIntentID: "pi_1",
		Metadata:        map[string]string{checkout.MetaOrderID: orderID, checkout.MetaOrderName: "Dune"},
	})

	w := env.do(http.MethodPatch, "/payment-success", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPatch, "/payment-success?session_id=sess_1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[map[string]any](t, w)
	assert.Equal(t, true, first["success"])
	assert.Equal(t, "pi_1", first["transactionId"])
	assert.Regexp(t, `^PRCL-\d{8}-[0-9A-F]{6}$`, first["trackingId"])
	assert.Contains(t, first, "modifyOrder")
	assert.Contains(t, first, "paymentInfo")

	w = env.do(http.MethodPatch, "/payment-success?session_id=sess_1", "")
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[map[string]any](t, w)
	assert.Equal(t, "already exists", second["message"])
	assert.Equal(t, first["trackingId"], second["trackingId"])
	assert.Equal(t, 1, env.fake.Len(testTables.Payments))

	o, err := env.orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, o.IsPaid())
	assert.Equal(t, first["trackingId"], o.TrackingID)

	w = env.doAs(t, "reader@example.com", http.MethodPatch, "/orders/cancel/"+orderID, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPatch, "/payment-success?session_id=sess_unknown", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestListPayments(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "admin@example.com", users.RoleAdmin)
	for i, email := range []string{"a@example.com", "b@example.com"} {
		id := env.seedOrder(t, email)
		env.checkout.Put(&checkout.Session{
			ID:              "sess_" + email,
			PaymentStatus:   checkout.PaymentStatusPaid,
			AmountTotal:     int64(1000 * (i + 1)),
			CustomerEmail:   email,
			PaymentIntentID: "pi_" + email,
			Metadata:        map[string]string{checkout.MetaOrderID: id},
		})
		w := env.do(http.MethodPatch, "/payment-success?session_id=sess_"+email, "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do(http.MethodGet, "/payments", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.doAs(t, "a@example.com", http.MethodGet, "/payments?email=b@example.com", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.doAs(t, "a@example.com", http.MethodGet, "/payments", "")
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[[]map[string]any](t, w)
	require.Len(t, mine, 1)
	assert.Equal(t, "a@example.com", mine[0]["customer_email"])
	assert.Equal(t, 10.0, mine[0]["amount"])

	w = env.doAs(t, "admin@example.com", http.MethodGet, "/payments", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 2)

	w = env.doAs(t, "admin@example.com", http.MethodGet, "/payments?email=b@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)
}
