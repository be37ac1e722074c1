package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"toko-checkout/internal/apperrors"
	"toko-checkout/internal/models"
	"toko-checkout/internal/repositories"

	"github.com/google/uuid"
)

// AddCartItemInput is the request to put a product in the cart.
type AddCartItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Size      string `json:"size" validate:"omitempty,max=20"`
}

// CartService manages the per-customer cart. It never touches stock; stock is
// only checked so customers learn early that a quantity is unavailable.
type CartService struct {
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
	ledger      repositories.StockLedger
}

// NewCartService creates a new CartService.
func NewCartService(cartRepo repositories.CartRepository, productRepo repositories.ProductRepository, ledger repositories.StockLedger) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		ledger:      ledger,
	}
}

// GetCart returns the user's cart, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.cartRepo.GetByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	cart.Recalculate()
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, err
	}
	slog.Debug("Created cart", "user_id", userID, "cart_id", cart.ID)
	return cart, nil
}

// AddItem adds a product line. A line with the same product and size has its
// quantity replaced rather than increased.
func (s *CartService) AddItem(ctx context.Context, userID string, input AddCartItemInput) (*models.Cart, error) {
	if input.ProductID == "" {
		return nil, apperrors.Validation("product_id is required")
	}
	product, err := s.checkProduct(ctx, input.ProductID, input.Quantity, input.Size)
	if err != nil {
		return nil, err
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if idx := cart.FindLine(product.ID, input.Size); idx >= 0 {
		cart.Items[idx].Quantity = input.Quantity
		cart.Items[idx].Price = product.UnitPrice()
		cart.Items[idx].Name = product.Name
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ID:        uuid.New().String(),
			CartID:    cart.ID,
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  input.Quantity,
			Size:      input.Size,
			Price:     product.UnitPrice(),
			CreatedAt: time.Now(),
		})
	}
	return s.save(ctx, cart)
}

// UpdateItem changes the quantity of an existing line, re-checking stock and
// refreshing its unit price.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := cart.FindItem(itemID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart item %s not found", itemID)
	}

	item := &cart.Items[idx]
	product, err := s.checkProduct(ctx, item.ProductID, quantity, item.Size)
	if err != nil {
		return nil, err
	}
	item.Quantity = quantity
	item.Price = product.UnitPrice()
	item.Name = product.Name
	return s.save(ctx, cart)
}

// RemoveItem deletes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !cart.RemoveItem(itemID) {
		return nil, apperrors.NotFound("cart item %s not found", itemID)
	}
	return s.save(ctx, cart)
}

// ClearCart empties the cart.
func (s *CartService) ClearCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Clear()
	return s.save(ctx, cart)
}

// checkProduct loads the product and checks quantity, size and available stock.
func (s *CartService) checkProduct(ctx context.Context, productID string, quantity int, size string) (*models.Product, error) {
	if quantity < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if size != "" && !product.HasSize(size) {
		return nil, apperrors.Validation("size %s is not available for product %s", size, product.Name)
	}
	available, err := s.ledger.Available(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	if available < quantity {
		return nil, apperrors.InsufficientStock(product.ID, quantity, available)
	}
	return product, nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	cart.Recalculate()
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}
