package service

import (
	"context"
	"time"

	"warung-service/internal/models"
	"warung-service/internal/redisclient"
	"warung-service/internal/store"
	"warung-service/internal/util"

	"go.uber.org/zap"
)

const productCacheTTL = 5 * time.Minute

// CatalogService handles product catalog CRUD. Stock is owned by the order
// engine; this service only sets it on creation or explicit catalog edits.
type CatalogService struct {
	store  store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. redis may be nil.
func NewCatalogService(store store.Store, redis *redisclient.Client) *CatalogService {
	return &CatalogService{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// ProductRequest carries the caller-editable product fields.
type ProductRequest struct {
	Name             string `json:"name" binding:"required"`
	UnitPrice        int64  `json:"unit_price"`
	Stock            int    `json:"stock"`
	Location         string `json:"location,omitempty"`
	LocationHint     string `json:"location_hint,omitempty"`
	PaymentImagePath string `json:"payment_image_path,omitempty"`
}

func (r *ProductRequest) validate() error {
	if r.Name == "" {
		return NewError(KindValidation, "product name must not be empty")
	}
	if r.UnitPrice < 0 {
		return NewError(KindValidation, "unit price must be non-negative, got %d", r.UnitPrice)
	}
	if r.Stock < 0 {
		return NewError(KindValidation, "stock must be non-negative, got %d", r.Stock)
	}
	return nil
}

// CreateProduct adds a product to the catalog.
func (c *CatalogService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:             req.Name,
		UnitPrice:        req.UnitPrice,
		Stock:            req.Stock,
		Location:         req.Location,
		LocationHint:     req.LocationHint,
		PaymentImagePath: req.PaymentImagePath,
	}
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		return tx.CreateProduct(ctx, product)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name))
	return product, nil
}

// GetProduct retrieves a product by id, trying the cache first.
func (c *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	if c.redis != nil {
		if cached, err := c.redis.CachedProduct(ctx, id); err == nil && cached != nil {
			util.ProductCacheHits.Inc()
			return cached, nil
		}
		util.ProductCacheMisses.Inc()
	}

	var product *models.Product
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		p, err := tx.ProductByID(ctx, id)
		if err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, NewError(KindNotFound, "product %d not found", id)
		}
		return nil, err
	}

	c.cacheProduct(ctx, product)
	return product, nil
}

// GetProductByName retrieves the first product whose name contains the given
// string, case-insensitively.
func (c *CatalogService) GetProductByName(ctx context.Context, name string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProductByName")
	defer span.End()

	if name == "" {
		return nil, NewError(KindValidation, "product name must not be empty")
	}

	var product *models.Product
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		p, err := tx.ProductByName(ctx, name)
		if err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, NewError(KindNotFound, "no product matching %q", name)
		}
		return nil, err
	}

	c.cacheProduct(ctx, product)
	return product, nil
}

// ListProducts retrieves the whole catalog ordered by id.
func (c *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	var products []models.Product
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		ps, err := tx.Products(ctx)
		if err != nil {
			return err
		}
		products = ps
		return nil
	})
	return products, err
}

// UpdateProduct replaces a product's caller-editable fields.
func (c *CatalogService) UpdateProduct(ctx context.Context, id int64, req *ProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	var product *models.Product
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		p, err := tx.ProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		p.Name = req.Name
		p.UnitPrice = req.UnitPrice
		p.Stock = req.Stock
		p.Location = req.Location
		p.LocationHint = req.LocationHint
		p.PaymentImagePath = req.PaymentImagePath
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, NewError(KindNotFound, "product %d not found", id)
		}
		return nil, err
	}

	c.invalidate(ctx, id)
	c.logger.Info("Product updated", zap.Int64("product_id", id))
	return product, nil
}

// DeleteProduct removes a product from the catalog. Line items keep their
// product id as a weak reference; later replenishments against it surface as
// per-item errors.
func (c *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct")
	defer span.End()

	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		deleted, err := tx.DeleteProduct(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return NewError(KindNotFound, "product %d not found", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.invalidate(ctx, id)
	c.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

func (c *CatalogService) cacheProduct(ctx context.Context, p *models.Product) {
	if c.redis == nil {
		return
	}
	if err := c.redis.CacheProduct(ctx, p, productCacheTTL); err != nil {
		c.logger.Warn("Failed to cache product",
			zap.Int64("product_id", p.ID), zap.Error(err))
	}
}

func (c *CatalogService) invalidate(ctx context.Context, ids ...int64) {
	if c.redis == nil {
		return
	}
	if err := c.redis.InvalidateProducts(ctx, ids...); err != nil {
		c.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
}
