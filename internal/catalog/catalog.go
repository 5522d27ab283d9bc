// Package catalog manages the product range: creation, edits, stock
// replenishment and removal. Stock reservation for orders lives in the
// order engine; this package only handles the admin-facing side.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cestlavie/bakery/internal/storage"
	"github.com/cestlavie/bakery/pkg/types"
)

// Service exposes product catalog operations.
type Service struct {
	store          storage.Storage
	logger         *slog.Logger
	storageTimeout time.Duration
}

// New creates a catalog service over the given store.
func New(store storage.Storage, storageTimeout time.Duration, logger *slog.Logger) *Service {
	if storageTimeout <= 0 {
		storageTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, storageTimeout: storageTimeout}
}

func (s *Service) validate(p *types.Product) error {
	if p.Name == "" {
		return fmt.Errorf("%w: product name required", types.ErrValidation)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", types.ErrValidation)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", types.ErrValidation)
	}
	return nil
}

// Create adds a product. Availability is derived from the initial stock,
// never taken from the caller.
func (s *Service) Create(ctx context.Context, p *types.Product) error {
	if err := s.validate(p); err != nil {
		return err
	}
	p.Availability = types.AvailabilityFor(p.Stock)

	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.store.CreateProduct(sctx, p); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return fmt.Errorf("%w: product %q already exists", types.ErrConflict, p.Name)
		}
		return storageErr(err)
	}
	s.logger.InfoContext(ctx, "product created", "id", p.ID, "name", p.Name)
	return nil
}

// Get loads one product by id.
func (s *Service) Get(ctx context.Context, id int64) (*types.Product, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	p, err := s.store.GetProduct(sctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w %d", types.ErrProductNotFound, id)
		}
		return nil, storageErr(err)
	}
	return p, nil
}

// GetByName loads one product by its exact name.
func (s *Service) GetByName(ctx context.Context, name string) (*types.Product, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	p, err := s.store.GetProductByName(sctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w %q", types.ErrProductNotFound, name)
		}
		return nil, storageErr(err)
	}
	return p, nil
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context) ([]*types.Product, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	products, err := s.store.ListProducts(sctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return products, nil
}

// Update overwrites a product's descriptive fields and price. Stock and
// availability are managed through Restock and order placement, so the
// incoming stock value is applied as-is with availability recomputed.
func (s *Service) Update(ctx context.Context, p *types.Product) error {
	if err := s.validate(p); err != nil {
		return err
	}
	p.Availability = types.AvailabilityFor(p.Stock)

	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.store.UpdateProduct(sctx, p); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w %d", types.ErrProductNotFound, p.ID)
		}
		return storageErr(err)
	}
	return nil
}

// Restock sets a product's stock to an absolute count. Availability follows
// the new count.
func (s *Service) Restock(ctx context.Context, id int64, stock int) error {
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", types.ErrValidation)
	}

	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.store.SetProductStock(sctx, id, stock); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w %d", types.ErrProductNotFound, id)
		}
		return storageErr(err)
	}
	s.logger.InfoContext(ctx, "product restocked", "id", id, "stock", stock)
	return nil
}

// Delete removes a product outright. Existing orders keep their line item
// snapshots; only the live display name is lost.
func (s *Service) Delete(ctx context.Context, id int64) error {
	sctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.store.DeleteProduct(sctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w %d", types.ErrProductNotFound, id)
		}
		return storageErr(err)
	}
	return nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", types.ErrStorage, err)
}
