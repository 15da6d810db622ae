package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-vesting-lab/internal/domain"
	"token-vesting-lab/internal/storage"
)

func testObservation(at int64) *domain.VestingObservation {
	return &domain.VestingObservation{
		Beneficiary: "0x1111111111111111111111111111111111111111",
		Token:       "0x00000000000000000000000000000000000000aa",
		ObservedAt:  at,
		Vested:      "123456789012345678901234567890",
		Releasable:  "23456789012345678901234567890",
		Locked:      "100000000000000000000000000000",
		Progress:    55,
	}
}

func TestVestingObservationStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewVestingObservationStore(conn)

	o := testObservation(1000)
	require.NoError(t, store.Insert(ctx, o))

	got, err := store.GetByToken(ctx, o.Beneficiary, o.Token)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Amounts round-trip as exact strings.
	assert.Equal(t, o.Vested, got[0].Vested)
	assert.Equal(t, o.Releasable, got[0].Releasable)
	assert.Equal(t, o.Locked, got[0].Locked)
	assert.Equal(t, o.Progress, got[0].Progress)
	assert.Equal(t, o.ObservedAt, got[0].ObservedAt)
}

func TestVestingObservationStore_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewVestingObservationStore(conn)

	require.NoError(t, store.Insert(ctx, testObservation(1000)))

	err := store.Insert(ctx, testObservation(1000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.Insert(ctx, testObservation(1001)))
}

func TestVestingObservationStore_InsertBulkAndTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewVestingObservationStore(conn)

	batch := []*domain.VestingObservation{
		testObservation(1000),
		testObservation(2000),
		testObservation(3000),
		testObservation(4000),
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	o := batch[0]
	got, err := store.GetByTimeRange(ctx, o.Beneficiary, o.Token, 2000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].ObservedAt)
	assert.Equal(t, int64(3000), got[1].ObservedAt)
}

func TestVestingObservationStore_InsertBulkIntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVestingObservationStore(conn)

	batch := []*domain.VestingObservation{
		testObservation(1000),
		testObservation(1000),
	}
	err := store.InsertBulk(context.Background(), batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
