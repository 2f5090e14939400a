package reservation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/store"
	"github.com/roach88/tabengine/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *testutil.FakeClock) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "res.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	clock := testutil.NewFakeClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	return New(s, clock), clock
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, domain.ReservationSeated, NormalizeStatus(" Seated "))
	assert.Equal(t, domain.ReservationCancelled, NormalizeStatus("cancelled"))
	assert.Equal(t, domain.ReservationPending, NormalizeStatus(""))
	assert.Equal(t, domain.ReservationPending, NormalizeStatus("no-show"))
}

func TestCreate(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	when := clock.Now().Add(3 * time.Hour)

	r, err := svc.Create(ctx, Input{
		Name: "  Nour ", ReservedFor: when, TableCode: " t07 ", Status: "bogus", Phone: " 0101 ",
	}, "")
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Equal(t, "Nour", r.Name)
	assert.Equal(t, "T07", r.TableCode)
	assert.Equal(t, 1, r.PartySize)
	assert.Equal(t, domain.ReservationPending, r.Status)
	assert.Equal(t, "system", r.CreatedBy)
	assert.Equal(t, clock.Now(), r.CreatedAt)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "0101", list[0].Phone)
	assert.True(t, list[0].ReservedFor.Equal(when))
}

func TestCreate_Validation(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: "", ReservedFor: clock.Now()}, "host")
	assert.True(t, domain.IsValidationError(err))
	_, err = svc.Create(ctx, Input{Name: "Ali"}, "host")
	assert.True(t, domain.IsValidationError(err))
	_, err = svc.Create(ctx, Input{Name: "Ali", ReservedFor: clock.Now(), PartySize: -2}, "host")
	assert.True(t, domain.IsValidationError(err))
}

func TestUpdateStatusAndDelete(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, Input{Name: "Rami", ReservedFor: clock.Now(), PartySize: 6}, "host")
	require.NoError(t, err)

	ok, err := svc.UpdateStatus(ctx, r.ID, "SEATED")
	require.NoError(t, err)
	assert.True(t, ok)
	list, _ := svc.List(ctx)
	assert.Equal(t, domain.ReservationSeated, list[0].Status)

	ok, err = svc.UpdateStatus(ctx, 999, "seated")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Delete(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Delete(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
