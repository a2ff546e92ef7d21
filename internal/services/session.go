package services

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/SigNoz/freshmart-storefront/internal/catalog"
	"github.com/SigNoz/freshmart-storefront/internal/events"
	"github.com/SigNoz/freshmart-storefront/internal/metrics"
	"github.com/SigNoz/freshmart-storefront/internal/models"
	"github.com/SigNoz/freshmart-storefront/internal/notify"
	"github.com/SigNoz/freshmart-storefront/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Session bundles the stores of one shopper
type Session struct {
	ID          string
	Cart        *CartService
	Wishlist    *WishlistService
	History     *HistoryService
	Preferences *PreferencesService
	Orders      *OrderService

	catalog     *catalog.Catalog
	recommender *Recommender
	metrics     *metrics.AppMetrics

	mu       sync.Mutex
	lastSeen time.Time
}

// ViewProduct records a product detail view and returns the product with its
// recommendations. The view is recorded before recommending, so the product
// itself is part of the history the recommendations see.
func (s *Session) ViewProduct(ctx context.Context, id int64) (models.Product, []models.Product, error) {
	p, err := s.catalog.Product(id)
	if err != nil {
		return models.Product{}, nil, err
	}
	s.History.RecordView(ctx, p.ID)
	s.metrics.ProductsViewed.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("product_category", p.Category),
	})...))

	recs := s.Recommend(ctx, RecommendationContext{CurrentProductID: p.ID, Category: p.Category})
	return p, recs, nil
}

// Recommend returns recommendations for rc using this session's history
func (s *Session) Recommend(ctx context.Context, rc RecommendationContext) []models.Product {
	recs := s.recommender.Recommend(rc, s.History.RecentlyViewed())
	s.metrics.RecommendationsServed.Record(ctx, int64(len(recs)), metric.WithAttributes(s.metrics.WithServiceName(nil)...))
	return recs
}

// Search looks term up in the catalog and remembers it as a recent search
func (s *Session) Search(ctx context.Context, term string) []models.Product {
	results := s.catalog.Search(term)
	s.History.SaveSearch(ctx, term)
	s.metrics.SearchesTotal.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.Bool("has_results", len(results) > 0),
	})...))
	return results
}

// RecentlyViewedProducts resolves the view history against the catalog, most
// recent first. Ids no longer in the catalog are skipped.
func (s *Session) RecentlyViewedProducts() []models.Product {
	ids := s.History.RecentlyViewed()
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, err := s.catalog.Product(id); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionManagerConfig holds the shared dependencies of every session
type SessionManagerConfig struct {
	Storage      storage.Storage
	Catalog      *catalog.Catalog
	Publisher    events.Publisher
	OrdersTopic  string
	ContactTopic string
	Notifier     notify.Notifier
	Metrics      *metrics.AppMetrics
	Log          logrus.FieldLogger

	// IdleTTL evicts sessions not used for this long. Zero keeps them forever.
	IdleTTL time.Duration
	// MonitorInterval defaults to 30s
	MonitorInterval time.Duration
	// PoolStats, when set, is called on every monitor tick
	PoolStats func(context.Context)
}

// SessionManager lazily builds and caches sessions by id
type SessionManager struct {
	cfg         SessionManagerConfig
	recommender *Recommender
	validate    *validator.Validate
	contact     *ContactService
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates an empty session registry
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = 30 * time.Second
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewLogNotifier(cfg.Log)
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	return &SessionManager{
		cfg:         cfg,
		recommender: NewRecommender(cfg.Catalog),
		validate:    validate,
		contact:     NewContactService(cfg.Publisher, cfg.ContactTopic, validate, cfg.Notifier, cfg.Log),
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// jsonFieldName reports validation failures under their JSON names
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// Get returns the session for id, loading its persisted state on first use.
// Loading happens outside the registry lock; when two requests race to load
// the same id, the first one stored wins.
func (m *SessionManager) Get(ctx context.Context, id string) *Session {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.touch(m.now())
		return s
	}

	built := m.build(ctx, id)

	m.mu.Lock()
	s, ok = m.sessions[id]
	if !ok {
		s = built
		m.sessions[id] = s
	}
	m.mu.Unlock()

	s.touch(m.now())
	return s
}

func (m *SessionManager) build(ctx context.Context, id string) *Session {
	state := sessionState{
		sessionID: id,
		store:     storage.WithPrefix(m.cfg.Storage, storage.SessionPrefix(id)),
		metrics:   m.cfg.Metrics,
		log:       m.cfg.Log.WithField("session", id),
	}

	cart := NewCartService(ctx, state, m.cfg.Notifier)
	s := &Session{
		ID:          id,
		Cart:        cart,
		Wishlist:    NewWishlistService(ctx, state, m.cfg.Notifier),
		History:     NewHistoryService(ctx, state),
		Preferences: NewPreferencesService(ctx, state),
		Orders:      NewOrderService(ctx, state, cart, m.cfg.Catalog, m.cfg.Publisher, m.cfg.OrdersTopic, m.validate, m.cfg.Notifier),
		catalog:     m.cfg.Catalog,
		recommender: m.recommender,
		metrics:     m.cfg.Metrics,
	}
	state.log.Debug("session loaded")
	return s
}

// Contact returns the contact form service shared by all sessions
func (m *SessionManager) Contact() *ContactService {
	return m.contact
}

// Len returns the number of sessions held in memory
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run records session gauges periodically and evicts idle sessions until ctx is done
func (m *SessionManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep evicts idle sessions and records active session and cart counts.
// Evicted sessions lose nothing since every mutation is already persisted.
func (m *SessionManager) sweep(ctx context.Context) {
	now := m.now()

	m.mu.Lock()
	evicted := 0
	if m.cfg.IdleTTL > 0 {
		for id, s := range m.sessions {
			if s.idleSince(now) > m.cfg.IdleTTL {
				delete(m.sessions, id)
				evicted++
			}
		}
	}
	active := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		active = append(active, s)
	}
	m.mu.Unlock()

	carts := 0
	for _, s := range active {
		if s.Cart.TotalItems() > 0 {
			carts++
		}
	}

	attrs := metric.WithAttributes(m.cfg.Metrics.WithServiceName([]attribute.KeyValue{})...)
	m.cfg.Metrics.ActiveSessionsCount.Record(ctx, int64(len(active)), attrs)
	m.cfg.Metrics.ActiveCartsCount.Record(ctx, int64(carts), attrs)
	if m.cfg.PoolStats != nil {
		m.cfg.PoolStats(ctx)
	}

	if evicted > 0 {
		m.cfg.Log.WithFields(logrus.Fields{"evicted": evicted, "active": len(active)}).Debug("idle sessions evicted")
	}
}
