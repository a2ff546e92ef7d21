package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/SigNoz/freshmart-storefront/internal/catalog"
	"github.com/SigNoz/freshmart-storefront/internal/metrics"
	"github.com/SigNoz/freshmart-storefront/internal/models"
	"github.com/SigNoz/freshmart-storefront/internal/notify"
	"github.com/SigNoz/freshmart-storefront/internal/storage"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func testMetrics(t *testing.T) *metrics.AppMetrics {
	t.Helper()
	m, err := metrics.NewAppMetrics(noop.NewMeterProvider().Meter("test"), "storefront-test")
	require.NoError(t, err)
	return m
}

func testState(t *testing.T, store storage.Storage) sessionState {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return sessionState{
		sessionID: "session-1",
		store:     store,
		metrics:   testMetrics(t),
		log:       logger,
	}
}

// testCatalog has seven fruits so a fruit context can be served entirely
// from its own category
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(nil, []models.Product{
		{ID: 1, Name: "Apples", Category: "fruits", Price: 120, OriginalPrice: 160, Rating: 4.5, InStock: true},
		{ID: 2, Name: "Bananas", Category: "fruits", Price: 40, Rating: 4.1, InStock: true},
		{ID: 3, Name: "Mangoes", Category: "fruits", Price: 250, Rating: 4.8, InStock: true},
		{ID: 4, Name: "Grapes", Category: "fruits", Price: 90, Rating: 3.9, InStock: true},
		{ID: 5, Name: "Papaya", Category: "fruits", Price: 60, Rating: 4.0, InStock: true},
		{ID: 6, Name: "Oranges", Category: "fruits", Price: 80, Rating: 4.2, InStock: true},
		{ID: 7, Name: "Kiwi", Category: "fruits", Price: 150, Rating: 4.3, InStock: true},
		{ID: 8, Name: "Milk", Category: "dairy", Price: 30, Rating: 4.9, InStock: true},
		{ID: 9, Name: "Paneer", Category: "dairy", Price: 95, Rating: 4.6, InStock: true},
		{ID: 10, Name: "Bread", Category: "bakery", Price: 45, Rating: 4.7, InStock: true},
	})
	require.NoError(t, err)
	return c
}

func lineItem(id int64, name string, price float64) models.CartLineItem {
	return models.CartLineItem{ProductID: id, Name: name, Price: price, Image: "/img/" + name + ".jpg"}
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (n *recordingNotifier) Success(_ context.Context, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notify.Notice{Level: notify.LevelSuccess, Message: msg})
}

func (n *recordingNotifier) Error(_ context.Context, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notify.Notice{Level: notify.LevelError, Message: msg})
}

func (n *recordingNotifier) last() notify.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return notify.Notice{}
	}
	return n.notices[len(n.notices)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

var errUnavailable = errors.New("storage unavailable")

// failingStorage fails every operation
type failingStorage struct{}

func (failingStorage) Load(context.Context, string) ([]byte, error) { return nil, errUnavailable }
func (failingStorage) Save(context.Context, string, []byte) error   { return errUnavailable }
func (failingStorage) Delete(context.Context, string) error         { return errUnavailable }

type published struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{topic: topic, key: key, event: event})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }
