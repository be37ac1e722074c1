package services

import (
	"context"

	"toko-checkout/internal/apperrors"
	"toko-checkout/internal/models"
	"toko-checkout/internal/repositories"
)

// ProductService is the read side of the catalog used by checkout, plus the
// seeding path used at startup.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct validates and stores a new product.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	return s.repo.Create(ctx, product)
}

// UpdateProduct updates catalog fields. Stock is owned by the stock ledger
// and is not changed here.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, product)
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Name == "":
		return apperrors.Validation("product name is required")
	case p.Price < 0 || p.DiscountPrice < 0:
		return apperrors.Validation("product price must not be negative")
	case p.Stock < 0:
		return apperrors.Validation("product stock must not be negative")
	}
	return nil
}
