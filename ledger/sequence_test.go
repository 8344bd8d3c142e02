package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotbook/stock-engine/tabular/memory"
)

func newConfigStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.CreateTable(ctx, TableConfig))
	require.NoError(t, store.WriteRange(ctx, TableConfig, "A1:B1", [][]string{ConfigHeader}))
	return store
}

func TestNextID_InitializesMissingCounter(t *testing.T) {
	// GIVEN a Config table without a lot counter
	store := newConfigStore(t)
	alloc := NewAllocator(store)
	ctx := context.Background()

	// WHEN the first ID is allocated
	id, err := alloc.NextID(ctx, KindLot)

	// THEN the counter is seeded at LOT-000 and LOT-001 is issued
	require.NoError(t, err)
	assert.Equal(t, "LOT-001", id)

	rows, err := store.ReadRange(ctx, TableConfig, "A:B")
	require.NoError(t, err)
	assert.Contains(t, rows, []string{"LastLotID", "LOT-001"})
}

func TestNextID_Monotonic(t *testing.T) {
	store := newConfigStore(t)
	alloc := NewAllocator(store)
	ctx := context.Background()

	want := []string{"LOT-001", "LOT-002", "LOT-003"}
	for _, w := range want {
		id, err := alloc.NextID(ctx, KindLot)
		require.NoError(t, err)
		assert.Equal(t, w, id)
	}
}

func TestNextID_KindsAreIndependent(t *testing.T) {
	store := newConfigStore(t)
	alloc := NewAllocator(store)
	ctx := context.Background()

	lotID, err := alloc.NextID(ctx, KindLot)
	require.NoError(t, err)
	saleID, err := alloc.NextID(ctx, KindSale)
	require.NoError(t, err)

	assert.Equal(t, "LOT-001", lotID)
	assert.Equal(t, "SALE-001", saleID)
}

func TestNextID_GrowsPastPadding(t *testing.T) {
	// GIVEN a counter already at LOT-999
	store := newConfigStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRow(ctx, TableConfig, []string{"LastLotID", "LOT-999"}))
	alloc := NewAllocator(store)

	// WHEN the next ID is allocated
	id, err := alloc.NextID(ctx, KindLot)

	// THEN the number keeps growing instead of wrapping or truncating
	require.NoError(t, err)
	assert.Equal(t, "LOT-1000", id)
}

func TestNextID_MalformedCounter(t *testing.T) {
	store := newConfigStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRow(ctx, TableConfig, []string{"LastLotID", "garbage"}))
	alloc := NewAllocator(store)

	_, err := alloc.NextID(ctx, KindLot)
	assert.ErrorIs(t, err, ErrCounterMalformed)
}

func TestNextID_WrongPrefixCounter(t *testing.T) {
	store := newConfigStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRow(ctx, TableConfig, []string{"LastLotID", "SALE-005"}))
	alloc := NewAllocator(store)

	_, err := alloc.NextID(ctx, KindLot)
	assert.ErrorIs(t, err, ErrCounterMalformed)
}

func TestNextID_PersistsBeforeReturning(t *testing.T) {
	// GIVEN a fresh counter
	store := newConfigStore(t)
	alloc := NewAllocator(store)
	ctx := context.Background()

	// WHEN an ID is allocated
	_, err := alloc.NextID(ctx, KindSale)
	require.NoError(t, err)

	// THEN the stored counter already reflects the issued value, so a
	// second allocator over the same store continues the sequence
	id, err := NewAllocator(store).NextID(ctx, KindSale)
	require.NoError(t, err)
	assert.Equal(t, "SALE-002", id)
}
