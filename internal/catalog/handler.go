package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/w3-80717/SuprabhatGroceries/internal/domain"
)

// ProductStore is the storage surface the handlers need, implemented by
// *ProductRepository.
type ProductStore interface {
	GetActive(ctx context.Context, id string) (*domain.Product, error)
	ListPublished(ctx context.Context, category string) ([]domain.Product, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) (*domain.Product, error)
	SoftDelete(ctx context.Context, id string) (*domain.Product, error)
}

type Handler struct {
	store  ProductStore
	cache  *Cache
	logger *slog.Logger
}

func NewHandler(store ProductStore, cache *Cache, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	cacheKey := "products:" + category

	var products []domain.Product
	hit, err := h.cache.Get(r.Context(), cacheKey, &products)
	if err != nil {
		h.logger.Warn("catalog cache read failed", "error", err, "key", cacheKey)
	}

	if !hit {
		products, err = h.store.ListPublished(r.Context(), category)
		if err != nil {
			h.logger.Error("failed to list products", "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if err := h.cache.Set(r.Context(), cacheKey, products); err != nil {
			h.logger.Warn("catalog cache write failed", "error", err, "key", cacheKey)
		}
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cacheKey := "product:" + id

	var product domain.Product
	hit, err := h.cache.Get(r.Context(), cacheKey, &product)
	if err != nil {
		h.logger.Warn("catalog cache read failed", "error", err, "key", cacheKey)
	}

	if !hit {
		p, err := h.store.GetActive(r.Context(), id)
		if err != nil {
			var notFound *domain.ProductNotFoundError
			if errors.As(err, &notFound) {
				h.writeError(w, http.StatusNotFound, notFound.Error())
				return
			}
			h.logger.Error("failed to get product", "error", err, "id", id)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		product = *p
		if err := h.cache.Set(r.Context(), cacheKey, product); err != nil {
			h.logger.Warn("catalog cache write failed", "error", err, "key", cacheKey)
		}
	}

	if !product.IsPublished {
		h.writeError(w, http.StatusNotFound, (&domain.ProductNotFoundError{ProductID: id}).Error())
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list all products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

type productRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	IsPublished *bool           `json:"isPublished"`
}

func (req *productRequest) toProduct() (*domain.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("product name is required")
	}
	if req.Price.IsNegative() {
		return nil, errors.New("price must not be negative")
	}
	if req.Stock < 0 {
		return nil, errors.New("stock must not be negative")
	}

	unit := domain.UnitKg
	if req.Unit != "" {
		var err error
		unit, err = domain.ToUnit(req.Unit)
		if err != nil {
			return nil, err
		}
	}

	published := true
	if req.IsPublished != nil {
		published = *req.IsPublished
	}

	return &domain.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		Unit:        unit,
		Category:    strings.TrimSpace(req.Category),
		Stock:       req.Stock,
		IsPublished: published,
	}, nil
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := req.toProduct()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Create(r.Context(), product); err != nil {
		h.logger.Error("failed to create product", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.invalidate(r.Context(), product)
	h.logger.Info("product created", "product_id", product.ID, "name", product.Name)
	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := req.toProduct()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	product.ID = id

	updated, err := h.store.Update(r.Context(), product)
	if err != nil {
		var notFound *domain.ProductNotFoundError
		if errors.As(err, &notFound) {
			h.writeError(w, http.StatusNotFound, notFound.Error())
			return
		}
		h.logger.Error("failed to update product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.invalidate(r.Context(), updated)
	h.logger.Info("product updated", "product_id", id)
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	deleted, err := h.store.SoftDelete(r.Context(), id)
	if err != nil {
		var notFound *domain.ProductNotFoundError
		if errors.As(err, &notFound) {
			h.writeError(w, http.StatusNotFound, notFound.Error())
			return
		}
		h.logger.Error("failed to delete product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.invalidate(r.Context(), deleted)
	h.logger.Info("product deleted", "product_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidate(ctx context.Context, p *domain.Product) {
	if err := h.cache.Delete(ctx, invalidationKeys(p)...); err != nil {
		h.logger.Warn("catalog cache invalidation failed", "error", err, "product_id", p.ID)
	}
}

// invalidationKeys lists every cache entry a product write makes stale: the
// product itself, the uncategorized listing and the product's category
// listing.
func invalidationKeys(p *domain.Product) []string {
	keys := []string{"product:" + p.ID, "products:"}
	if p.Category != "" {
		keys = append(keys, "products:"+p.Category)
	}
	return keys
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
