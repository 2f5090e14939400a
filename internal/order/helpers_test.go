package order

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tabengine/internal/catalog"
	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/events"
	"github.com/roach88/tabengine/internal/store"
	"github.com/roach88/tabengine/internal/testutil"
)

type testEnv struct {
	path    string
	store   *store.Store
	catalog *catalog.Catalog
	engine  *Engine
	rec     *events.Recorder
	clock   *testutil.FakeClock
	refs    *testutil.FixedReferences
}

// newTestEnv returns an engine over a fresh store with P2 at 6000 and P4
// at 9000 cents per hour.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newBareEnv(t)
	ctx := context.Background()
	require.NoError(t, env.catalog.SetRate(ctx, domain.ModeP2, "", 6000, "admin"))
	require.NoError(t, env.catalog.SetRate(ctx, domain.ModeP4, "", 9000, "admin"))
	env.rec.Reset()
	return env
}

// newBareEnv returns an engine over a fresh store with no rates.
func newBareEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		path:  filepath.Join(t.TempDir(), "orders.db"),
		rec:   events.NewRecorder(),
		clock: testutil.NewFakeClock(time.Time{}),
		refs:  testutil.NewFixedReferences(),
	}
	env.open(t)
	return env
}

// open (re)opens the store at env.path and builds a fresh engine over it.
func (env *testEnv) open(t *testing.T) {
	t.Helper()
	s, err := store.Open(env.path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	env.store = s
	env.catalog = catalog.New(s, catalog.WithNotifier(env.rec))
	env.engine = New(s, env.catalog,
		WithNotifier(env.rec),
		WithClock(env.clock),
		WithReferences(env.refs))
}

// restart simulates a process restart: a new store handle and engine,
// rehydrated from disk.
func (env *testEnv) restart(t *testing.T) {
	t.Helper()
	require.NoError(t, env.store.Close())
	env.open(t)
	require.NoError(t, env.engine.Rehydrate(context.Background()))
}

func (env *testEnv) product(t *testing.T, name string, price int64, tracked bool, qty, min float64) {
	t.Helper()
	ctx := context.Background()
	cat, err := env.store.CategoryByName(ctx, "Menu")
	require.NoError(t, err)
	var catID int64
	if cat == nil {
		created, err := env.catalog.CreateCategory(ctx, "Menu", "admin")
		require.NoError(t, err)
		catID = created.ID
	} else {
		catID = cat.ID
	}
	_, err = env.catalog.CreateProduct(ctx, catalog.ProductInput{
		CategoryID: catID,
		Name:       name,
		PriceCents: price,
		TrackStock: tracked,
		StockQty:   qty,
		MinStock:   min,
	}, "admin")
	require.NoError(t, err)
	env.rec.Reset()
}

func (env *testEnv) stock(t *testing.T, name string) float64 {
	t.Helper()
	p, err := env.store.GetProduct(context.Background(), name)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock()
}

func (env *testEnv) add(t *testing.T, table, product string, price int64, qty float64) {
	t.Helper()
	require.NoError(t, env.engine.AddItem(context.Background(), table, product, price, qty, "", "cashier"))
}

func ptr[T any](v T) *T {
	return &v
}
