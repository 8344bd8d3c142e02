/*
sequence.go - Sequential identifier allocation

PURPOSE:
  Issues unique, monotonically increasing IDs per entity kind:
  LOT-001, LOT-002, ... and SALE-001, SALE-002, ...
  The last-issued value lives in the Config table, one row per kind.

FORMAT:
  {PREFIX}-{number zero-padded to 3 digits}. Numbers past 999 keep
  growing (LOT-1000); the padding never truncates.

ALLOCATION SEQUENCE:
  1. Read the counter row for the kind (create it at {PREFIX}-000 if absent)
  2. Parse the numeric suffix, increment
  3. Persist the new value as the new last-issued
  4. Return the new ID

NOT ATOMIC:
  The read-increment-write sequence has no cross-process coordination.
  Two processes allocating against the same store can race and issue the
  same ID. The Service serializes allocation within one process; see the
  concurrency note on Service.

SEE ALSO:
  - service.go: Serializes calls into this allocator
*/
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lotbook/stock-engine/tabular"
)

// Allocator issues sequential IDs backed by the Config table.
// Not safe for concurrent use; the owning Service serializes calls.
type Allocator struct {
	store tabular.Store
}

func NewAllocator(store tabular.Store) *Allocator {
	return &Allocator{store: store}
}

// NextID allocates and persists the next ID for kind.
func (a *Allocator) NextID(ctx context.Context, kind EntityKind) (string, error) {
	key := kind.CounterKey()

	rows, err := a.store.ReadRange(ctx, TableConfig, "A:B")
	if err != nil {
		return "", storeErr("read", TableConfig, err)
	}

	last := ""
	rowIdx := 0 // 1-based row of the counter in the Config table
	for i, row := range rows {
		if len(row) > 0 && row[0] == key {
			rowIdx = i + 1
			if len(row) > 1 {
				last = row[1]
			}
			break
		}
	}

	if rowIdx == 0 {
		// Counter doesn't exist yet: initialize at {PREFIX}-000.
		last = fmt.Sprintf("%s-000", kind)
		if err := a.store.AppendRow(ctx, TableConfig, []string{key, last}); err != nil {
			return "", storeErr("append", TableConfig, err)
		}
		rowIdx = len(rows) + 1
	}

	n, err := parseSuffix(last, kind)
	if err != nil {
		return "", err
	}

	next := fmt.Sprintf("%s-%03d", kind, n+1)

	// Persist before returning so the value is never issued twice by
	// sequential callers, even if the caller's own write later fails.
	cell := tabular.Cell(2, rowIdx)
	if err := a.store.WriteRange(ctx, TableConfig, cell, [][]string{{next}}); err != nil {
		return "", storeErr("write", TableConfig, err)
	}
	return next, nil
}

func parseSuffix(id string, kind EntityKind) (int, error) {
	prefix := string(kind) + "-"
	if !strings.HasPrefix(id, prefix) {
		return 0, fmt.Errorf("%w: %q for kind %s", ErrCounterMalformed, id, kind)
	}
	n, err := strconv.Atoi(id[len(prefix):])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q for kind %s", ErrCounterMalformed, id, kind)
	}
	return n, nil
}
