package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/SigNoz/freshmart-storefront/internal/catalog"
	"github.com/SigNoz/freshmart-storefront/internal/content"
	"github.com/SigNoz/freshmart-storefront/internal/metrics"
	"github.com/SigNoz/freshmart-storefront/internal/middleware"
	"github.com/SigNoz/freshmart-storefront/internal/models"
	"github.com/SigNoz/freshmart-storefront/internal/notify"
	"github.com/SigNoz/freshmart-storefront/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// App holds application dependencies
type App struct {
	metrics      *metrics.AppMetrics
	catalog      *catalog.Catalog
	faq          *content.FAQ
	sessions     *services.SessionManager
	sessionStore sessions.Store
	log          logrus.FieldLogger
}

// NewApp creates a new application instance
func NewApp(
	m *metrics.AppMetrics,
	c *catalog.Catalog,
	faq *content.FAQ,
	sm *services.SessionManager,
	sessionStore sessions.Store,
	log logrus.FieldLogger,
) *App {
	return &App{
		metrics:      m,
		catalog:      c,
		faq:          faq,
		sessions:     sm,
		sessionStore: sessionStore,
		log:          log,
	}
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	// Middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware(a.log))
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.ErrorHandlerMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics))

	// API Routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.SessionMiddleware(a.sessionStore))
	api.Use(middleware.NoticesMiddleware)

	// Catalog
	api.HandleFunc("/categories", a.ListCategoriesHandler).Methods("GET")
	api.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods("GET")
	api.HandleFunc("/recommendations", a.RecommendationsHandler).Methods("GET")
	api.HandleFunc("/search", a.SearchHandler).Methods("GET")
	api.HandleFunc("/search/recent", a.RecentSearchesHandler).Methods("GET")
	api.HandleFunc("/search/recent", a.ClearRecentSearchesHandler).Methods("DELETE")
	api.HandleFunc("/recently-viewed", a.RecentlyViewedHandler).Methods("GET")

	// Cart
	api.HandleFunc("/cart", a.GetCartHandler).Methods("GET")
	api.HandleFunc("/cart", a.ClearCartHandler).Methods("DELETE")
	api.HandleFunc("/cart/add", a.AddToCartHandler).Methods("POST")
	api.HandleFunc("/cart/remove", a.RemoveFromCartHandler).Methods("POST")
	api.HandleFunc("/cart/items/{id}", a.UpdateCartItemHandler).Methods("PUT")

	// Wishlist
	api.HandleFunc("/wishlist", a.GetWishlistHandler).Methods("GET")
	api.HandleFunc("/wishlist", a.AddToWishlistHandler).Methods("POST")
	api.HandleFunc("/wishlist", a.ClearWishlistHandler).Methods("DELETE")
	api.HandleFunc("/wishlist/{id}", a.WishlistContainsHandler).Methods("GET")
	api.HandleFunc("/wishlist/{id}", a.RemoveFromWishlistHandler).Methods("DELETE")

	// Orders
	api.HandleFunc("/checkout", a.CheckoutHandler).Methods("POST")
	api.HandleFunc("/orders", a.ListOrdersHandler).Methods("GET")
	api.HandleFunc("/orders/{id}", a.GetOrderHandler).Methods("GET")
	api.HandleFunc("/orders/{id}/status", a.UpdateOrderStatusHandler).Methods("PUT")

	// Help center and preferences
	api.HandleFunc("/faq", a.FAQHandler).Methods("GET")
	api.HandleFunc("/contact", a.ContactHandler).Methods("POST")
	api.HandleFunc("/visit", a.VisitHandler).Methods("POST")
	api.HandleFunc("/onboarding", a.GetOnboardingHandler).Methods("GET")
	api.HandleFunc("/onboarding", a.CompleteOnboardingHandler).Methods("POST")
	api.HandleFunc("/onboarding", a.ResetOnboardingHandler).Methods("DELETE")

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods("GET")

	// Preflight requests are answered by CORSMiddleware
	r.Methods("OPTIONS").HandlerFunc(func(http.ResponseWriter, *http.Request) {})
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "healthy",
		"products": a.catalog.Len(),
		"sessions": a.sessions.Len(),
	})
}

// ListCategoriesHandler handles GET /api/v1/categories
func (a *App) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, r, http.StatusOK, map[string]any{"categories": a.catalog.Categories()})
}

// ListProductsHandler handles GET /api/v1/products
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.Logger(r.Context())
	params := r.URL.Query()

	sortKey, err := catalog.ParseSortKey(params.Get("sort"))
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrapf(err, "sort %q", params.Get("sort")), http.StatusBadRequest)
		return
	}

	q := catalog.Query{
		Category:    params.Get("category"),
		OrganicOnly: queryBool(params.Get("organic")),
		InStockOnly: queryBool(params.Get("in_stock")),
		Sort:        sortKey,
	}
	if v := params.Get("max_price"); v != "" {
		ceiling, err := strconv.ParseFloat(v, 64)
		if err != nil {
			renderHTTPError(log, r, w, errors.Wrap(err, "invalid max_price"), http.StatusBadRequest)
			return
		}
		// Zero keeps the catalog maximum
		if ceiling < 0 || math.IsNaN(ceiling) || math.IsInf(ceiling, 0) {
			renderHTTPError(log, r, w, errors.Errorf("invalid max_price %q", v), http.StatusBadRequest)
			return
		}
		q.PriceCeiling = ceiling
	}

	products := a.catalog.List(q)
	renderJSON(w, r, http.StatusOK, map[string]any{
		"products":  productViews(products),
		"count":     len(products),
		"max_price": a.catalog.MaxPrice(),
	})
}

// GetProductHandler handles GET /api/v1/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.Logger(r.Context())
	id, err := pathID(r)
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}

	sess := a.session(r)
	product, recs, err := sess.ViewProduct(r.Context(), id)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve product"), errorStatus(err))
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]any{
		"product":         models.NewProductView(product),
		"recommendations": productViews(recs),
		"in_wishlist":     sess.Wishlist.IsInWishlist(product.ID),
	})
}

// RecommendationsHandler handles GET /api/v1/recommendations
func (a *App) RecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.Logger(r.Context())
	rc := services.RecommendationContext{Category: r.URL.Query().Get("category")}

	if v := r.URL.Query().Get("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			renderHTTPError(log, r, w, errors.Wrap(err, "invalid product_id"), http.StatusBadRequest)
			return
		}
		rc.CurrentProductID = id
		if rc.Category == "" {
			if p, err := a.catalog.Product(id); err == nil {
				rc.Category = p.Category
			}
		}
	}

	recs := a.session(r).Recommend(r.Context(), rc)
	renderJSON(w, r, http.StatusOK, map[string]any{"recommendations": productViews(recs)})
}

// SearchHandler handles GET /api/v1/search
func (a *App) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	sess := a.session(r)
	results := sess.Search(r.Context(), query)

	renderJSON(w, r, http.StatusOK, map[string]any{
		"query":           strings.TrimSpace(query),
		"results":         productViews(results),
		"recent_searches": sess.History.RecentSearches(),
	})
}

// RecentSearchesHandler handles GET /api/v1/search/recent
func (a *App) RecentSearchesHandler(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, r, http.StatusOK, map[string]any{"recent_searches": a.session(r).History.RecentSearches()})
}

// ClearRecentSearchesHandler handles DELETE /api/v1/search/recent
func (a *App) ClearRecentSearchesHandler(w http.ResponseWriter, r *http.Request) {
	sess := a.session(r)
	sess.History.ClearSearches(r.Context())
	renderJSON(w, r, http.StatusOK, map[string]any{"recent_searches": sess.History.RecentSearches()})
}

// RecentlyViewedHandler handles GET /api/v1/recently-viewed
func (a *App) RecentlyViewedHandler(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, r, http.StatusOK, map[string]any{"products": productViews(a.session(r).RecentlyViewedProducts())})
}

// GetCartHandler handles GET /api/v1/cart
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, r, http.StatusOK, map[string]any{"cart": a.session(r).Cart.Summary()})
}

// ClearCartHandler handles DELETE /api/v1/cart
func (a *App) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	sess := a.session(r)
	sess.Cart.ClearCart(r.Context())
	renderJSON(w, r, http.StatusOK, map[string]any{"cart": sess.Cart.Summary()})
}

// AddToCartHandler handles POST /api/v1/cart/add
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.Logger(r.Context())
	var req models.AddToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}

	p, err := a.catalog.Product(req.ProductID)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve product"), errorStatus(err))
		return
	}

	// Non-numeric and non-positive quantities become one before reaching the cart
	quantity := int(req.Quantity)
	if quantity < 1 {
		quantity = 1
	}

	sess := a.session(r)
	if err := sess.Cart.AddToCart(r.Context(), models.NewCartLineItem(p), quantity); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to add to cart"), errorStatus(err))
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]any{"cart": sess.Cart.Summary()})
}

// RemoveFromCartHandler handles POST /api/v1/cart/remove
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		renderHTTPError(middleware.Logger(r.Context()), r, w, err, http.StatusBadRequest)
		return
	}

	sess := a.session(r)
	removed := sess.Cart.RemoveFromCart(r.Context(), req.ProductID)
	renderJSON(w, r, http.StatusOK, map[string]any{"removed": removed, "cart": sess.Cart.Summary()})
}

// UpdateCartItemHandler handles PUT /api/v1/cart/items/{id}
func (a *App) UpdateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.Logger(r.Context())
	id, err := pathID(r)
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	var req models.UpdateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}

	sess := a.session(r)
	updated := sess.Cart.UpdateQuantity(r.Context(), id, req.Quantity)
	renderJSON(w, r, http.StatusOK, map[string]any{"updated": updated, "cart": sess.Cart.Summary()})
}

// GetWishlistHandler handles GET /api/v1/wishlist
func (a *App) GetWishlistHandler(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, r, http.StatusOK, wishlistBody(a.session(r)))
}

// AddToWishlistHandler handles POST /api/v1/wishlist
func (a *App) AddToWishlistHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.Logger(r.Context())
	var req models.ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}

	p, err := a.catalog.Product(req.ProductID)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve product"), errorStatus(err))
		return
	}

	sess := a.session(r)
	if err := sess.Wishlist.AddToWishlist(r.Context(), models.NewWishlistEntry(p)); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to add to wishlist"), errorStatus(err))
		return
	}
	renderJSON(w, r, http.StatusCreated, wishlistBody(sess))
}

// ClearWishlistHandler handles DELETE /api/v1/wishlist
func (a *App) ClearWishlistHandler(w http.ResponseWriter, r *http.Request) {
	sess := a.session(r)
	sess.Wishlist.ClearWishlist(r.Context())
	renderJSON(w, r, http.StatusOK, wishlistBody(sess))
}

// WishlistContainsHandler handles GET /api/v1/wishlist/{id}
func (a *App) WishlistContainsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		renderHTTPError(middleware.Logger(r.Context()), r, w, err, http.StatusBadRequest)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]any{
		"product_id":  id,
		"in_wishlist": a.session(r).Wishlist.IsInWishlist(id),
	})
}

// RemoveFromWishlistHandler handles DELETE /api/v1/wishlist/{id}
func (a *App) RemoveFromWishlistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		renderHTTPError(middleware.Logger(r.Context()), r, w, err, http.StatusBadRequest)
		return
	}
	sess := a.session(r)
	removed := sess.Wishlist.RemoveFromWishlist(r.Context(), id)
	body := wishlistBody(sess)
	body["removed"] = removed
	renderJSON(w, r, http.StatusOK, body)
}

// CheckoutHandler handles POST /api/v1/checkout
func (a *App) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.Logger(r.Context())
	var req models.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}

	order, err := a.session(r).Orders.PlaceOrder(r.Context(), req)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to place order"), errorStatus(err))
		return
	}
	renderJSON(w, r, http.StatusCreated, map[string]any{"order": order})
}

// ListOrdersHandler handles GET /api/v1/orders
func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, r, http.StatusOK, map[string]any{"orders": a.session(r).Orders.ListOrders()})
}

// GetOrderHandler handles GET /api/v1/orders/{id}
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, err := a.session(r).Orders.GetOrder(mux.Vars(r)["id"])
	if err != nil {
		renderHTTPError(middleware.Logger(r.Context()), r, w, err, errorStatus(err))
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]any{"order": order})
}

// UpdateOrderStatusHandler handles PUT /api/v1/orders/{id}/status
func (a *App) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.Logger(r.Context())
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}

	orders := a.session(r).Orders
	id := mux.Vars(r)["id"]
	if err := orders.UpdateOrderStatus(r.Context(), id, req.Status); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to update order status"), errorStatus(err))
		return
	}
	order, err := orders.GetOrder(id)
	if err != nil {
		renderHTTPError(log, r, w, err, errorStatus(err))
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]any{"order": order})
}

// FAQHandler handles GET /api/v1/faq
func (a *App) FAQHandler(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	renderJSON(w, r, http.StatusOK, map[string]any{
		"entries":    a.faq.Search(params.Get("q"), params.Get("category")),
		"categories": a.faq.Categories(),
	})
}

// ContactHandler handles POST /api/v1/contact
func (a *App) ContactHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.Logger(r.Context())
	var req models.ContactRequest
	if err := decodeJSON(r, &req); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}

	id, err := a.sessions.Contact().Submit(r.Context(), middleware.SessionID(r.Context()), req)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to send message"), errorStatus(err))
		return
	}
	renderJSON(w, r, http.StatusAccepted, map[string]any{"message_id": id})
}

// VisitHandler handles POST /api/v1/visit
func (a *App) VisitHandler(w http.ResponseWriter, r *http.Request) {
	sess := a.session(r)
	renderJSON(w, r, http.StatusOK, map[string]any{
		"first_visit":         sess.Preferences.MarkVisited(r.Context()),
		"onboarding_complete": sess.Preferences.OnboardingComplete(),
	})
}

// GetOnboardingHandler handles GET /api/v1/onboarding
func (a *App) GetOnboardingHandler(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, r, http.StatusOK, map[string]any{"onboarding_complete": a.session(r).Preferences.OnboardingComplete()})
}

// CompleteOnboardingHandler handles POST /api/v1/onboarding
func (a *App) CompleteOnboardingHandler(w http.ResponseWriter, r *http.Request) {
	prefs := a.session(r).Preferences
	prefs.CompleteOnboarding(r.Context())
	renderJSON(w, r, http.StatusOK, map[string]any{"onboarding_complete": prefs.OnboardingComplete()})
}

// ResetOnboardingHandler handles DELETE /api/v1/onboarding
func (a *App) ResetOnboardingHandler(w http.ResponseWriter, r *http.Request) {
	prefs := a.session(r).Preferences
	prefs.ResetOnboarding(r.Context())
	renderJSON(w, r, http.StatusOK, map[string]any{"onboarding_complete": prefs.OnboardingComplete()})
}

func (a *App) session(r *http.Request) *services.Session {
	return a.sessions.Get(r.Context(), middleware.SessionID(r.Context()))
}

func wishlistBody(sess *services.Session) map[string]any {
	return map[string]any{
		"items":       sess.Wishlist.Items(),
		"total_items": sess.Wishlist.TotalItems(),
	}
}

func productViews(products []models.Product) []models.ProductView {
	out := make([]models.ProductView, len(products))
	for i, p := range products {
		out[i] = models.NewProductView(p)
	}
	return out
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func queryBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyInWishlist):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCheckout), errors.Is(err, services.ErrInvalidContact):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidItem),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, catalog.ErrUnknownSortKey):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fieldError is one failed checkout field
type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func renderJSON(w http.ResponseWriter, r *http.Request, code int, body map[string]any) {
	body["notices"] = notices(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		middleware.Logger(r.Context()).WithError(err).Warn("failed to write response")
	}
}

func renderHTTPError(log logrus.FieldLogger, r *http.Request, w http.ResponseWriter, err error, code int) {
	if code >= http.StatusInternalServerError {
		log.WithField("error", err).Error("request error")
	} else {
		log.WithField("error", err).Debug("request rejected")
	}

	body := map[string]any{
		"error":       err.Error(),
		"status_code": code,
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]fieldError, len(verrs))
		for i, fe := range verrs {
			fields[i] = fieldError{Field: fe.Field(), Rule: fe.Tag()}
		}
		body["fields"] = fields
	}
	renderJSON(w, r, code, body)
}

func notices(r *http.Request) []notify.Notice {
	if c := notify.FromContext(r.Context()); c != nil {
		return c.Notices()
	}
	return []notify.Notice{}
}
