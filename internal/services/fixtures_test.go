package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"toko-checkout/internal/models"
	"toko-checkout/internal/notify"
	"toko-checkout/internal/repositories"
	"toko-checkout/internal/services"
	"toko-checkout/pkg/gateway"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testKeySecret = "test_key_secret"

var (
	customer = models.Principal{UserID: "user-1", Role: models.RoleCustomer}
	stranger = models.Principal{UserID: "user-2", Role: models.RoleCustomer}
	admin    = models.Principal{UserID: "admin-1", Role: models.RoleAdmin}
)

// MockNotifier is a mock implementation of notify.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n notify.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// sent counts notifications of the given kind.
func (m *MockNotifier) sent(kind notify.Kind) int {
	count := 0
	for _, call := range m.Calls {
		if n, ok := call.Arguments.Get(1).(notify.Notification); ok && n.Kind == kind {
			count++
		}
	}
	return count
}

// fakeGateway is an in-memory payment gateway. Fetched payments settle the
// most recently created intent.
type fakeGateway struct {
	mu        sync.Mutex
	seq       int
	createErr error
	fetchErr  error
	method    string
	last      gateway.Intent
	// paidAmount overrides the settled amount when non-zero.
	paidAmount int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{method: "card"}
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.seq++
	intent := gateway.Intent{ID: fmt.Sprintf("intent_%d", g.seq), Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}
	g.last = intent
	return &intent, nil
}

func (g *fakeGateway) FetchPayment(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	amount := g.last.Amount
	if g.paidAmount != 0 {
		amount = g.paidAmount
	}
	return &gateway.Payment{ID: paymentID, OrderID: g.last.ID, Status: "captured", Method: g.method, Amount: amount, Currency: g.last.Currency}, nil
}

type fixture struct {
	products *repositories.MockProductRepository
	ledger   *repositories.MockStockLedger
	carts    *repositories.MockCartRepository
	orders   repositories.OrderRepository
	notifier *MockNotifier
	gateway  *fakeGateway

	cartService    *services.CartService
	orderService   *services.OrderService
	paymentService *services.PaymentService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithOrders(t, repositories.NewMockOrderRepository())
}

func newFixtureWithOrders(t *testing.T, orders repositories.OrderRepository) *fixture {
	t.Helper()
	f := &fixture{
		products: repositories.NewMockProductRepository(),
		carts:    repositories.NewMockCartRepository(),
		orders:   orders,
		notifier: new(MockNotifier),
		gateway:  newFakeGateway(),
	}
	f.ledger = repositories.NewMockStockLedger(f.products)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	f.cartService = services.NewCartService(f.carts, f.products, f.ledger)
	f.orderService = services.NewOrderService(f.orders, f.products, f.carts, f.ledger, f.notifier, 2)
	f.paymentService = services.NewPaymentService(f.orderService, f.gateway, services.PaymentConfig{
		KeyID:     "key_test",
		KeySecret: testKeySecret,
		Currency:  "IDR",
		Timeout:   time.Second,
	})
	return f
}

func (f *fixture) addProduct(t *testing.T, id string, price float64, stock int, sizes ...string) {
	t.Helper()
	require.NoError(t, f.products.Create(context.Background(), &models.Product{
		ID:    id,
		Name:  "Product " + id,
		Price: price,
		Stock: stock,
		Sizes: sizes,
	}))
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	n, err := f.ledger.Available(context.Background(), id)
	require.NoError(t, err)
	return n
}

func (f *fixture) placeOrder(t *testing.T, principal models.Principal, items ...services.OrderItemInput) *models.Order {
	t.Helper()
	order, err := f.orderService.CreateOrder(context.Background(), principal, services.CreateOrderInput{
		Items:           items,
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)
	return order
}

// payOrder creates an intent and applies a correctly signed callback.
func (f *fixture) payOrder(t *testing.T, order *models.Order) *models.Order {
	t.Helper()
	ctx := context.Background()
	intent, err := f.paymentService.CreatePaymentIntent(ctx, customer, order.ID)
	require.NoError(t, err)
	paid, err := f.paymentService.VerifyAndApply(ctx, signedInput(intent.IntentID, "pay_1"))
	require.NoError(t, err)
	return paid
}

func signedInput(intentID, paymentID string) services.VerifyPaymentInput {
	return services.VerifyPaymentInput{
		GatewayOrderID:   intentID,
		GatewayPaymentID: paymentID,
		Signature:        services.SignPayment(testKeySecret, intentID, paymentID),
	}
}

func testAddress() models.ShippingAddress {
	return models.ShippingAddress{
		FullName:   "Budi Santoso",
		Phone:      "+62811000000",
		Street:     "Jl. Merdeka 1",
		City:       "Jakarta",
		PostalCode: "10110",
		Country:    "ID",
	}
}

func item(productID string, quantity int) services.OrderItemInput {
	return services.OrderItemInput{ProductID: productID, Quantity: quantity}
}

// failingOrderRepository fails every Create.
type failingOrderRepository struct {
	*repositories.MockOrderRepository
}

func (failingOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return errors.New("disk full")
}
