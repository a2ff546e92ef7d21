package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/SigNoz/freshmart-storefront/internal/db"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

// runContract exercises the behaviour every backend must share
func runContract(t *testing.T, s Storage) {
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "cart", []byte(`[{"product_id":1}]`)))
	v, err := s.Load(ctx, "cart")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"product_id":1}]`, string(v))

	require.NoError(t, s.Save(ctx, "cart", []byte(`[]`)))
	v, err = s.Load(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(v))

	require.NoError(t, s.Delete(ctx, "cart"))
	_, err = s.Load(ctx, "cart")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting an absent key is not an error
	assert.NoError(t, s.Delete(ctx, "cart"))
}

func TestMemoryContract(t *testing.T) {
	runContract(t, NewMemory())
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	in := []byte("abc")
	require.NoError(t, m.Save(ctx, "k", in))
	in[0] = 'z'

	out, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))
	out[0] = 'y'

	again, _ := m.Load(ctx, "k")
	assert.Equal(t, "abc", string(again))
	assert.Equal(t, 1, m.Len())
}

func TestRedisContract(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedis(client, 0)
	defer r.Close()

	runContract(t, r)
}

func TestRedisTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	r, err := DialRedis(ctx, mr.Addr(), "", 0, time.Hour)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Save(ctx, "k", []byte("v")))
	assert.Equal(t, time.Hour, mr.TTL("k"))

	mr.FastForward(2 * time.Hour)
	_, err = r.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteContract(t *testing.T) {
	logger, _ := test.NewNullLogger()
	database, err := db.NewDB(db.SQLite, filepath.Join(t.TempDir(), "kv.db"), noop.NewMeterProvider().Meter("test"), "test", logger)
	require.NoError(t, err)
	defer database.Close()

	s, err := NewSQL(context.Background(), database)
	require.NoError(t, err)
	runContract(t, s)

	// schema creation is idempotent
	_, err = NewSQL(context.Background(), database)
	assert.NoError(t, err)
}

func TestWithPrefix(t *testing.T) {
	ctx := context.Background()
	base := NewMemory()
	a := WithPrefix(base, SessionPrefix("a"))
	b := WithPrefix(base, SessionPrefix("b"))

	require.NoError(t, a.Save(ctx, "cart", []byte("A")))
	_, err := b.Load(ctx, "cart")
	assert.ErrorIs(t, err, ErrNotFound)

	raw, err := base.Load(ctx, "session:a:cart")
	require.NoError(t, err)
	assert.Equal(t, "A", string(raw))

	runContract(t, b)
}
