package workflow

import (
	"context"

	"github.com/zeeshankeerio/pos-application-sub002/config"
	"github.com/zeeshankeerio/pos-application-sub002/models"
)

// LedgerDrift describes one inventory item whose cached quantity disagrees
// with its replayed ledger, or whose ledger itself is inconsistent.
type LedgerDrift struct {
	InventoryId                   int    `json:"inventory_id"`
	CachedQuantity                string `json:"cached_quantity"`
	ReplayedQuantity              string `json:"replayed_quantity"`
	RowCount                      int    `json:"row_count"`
	FirstNegativeTransactionId    int    `json:"first_negative_transaction_id,omitempty"`
	SnapshotMismatchTransactionId int    `json:"snapshot_mismatch_transaction_id,omitempty"`
}

// VerifyInventoryLedger replays every item's ledger and reports each item
// whose cached current_quantity has drifted from the replayed sum. A clean
// run returns an empty slice.
func VerifyInventoryLedger(ctx context.Context) ([]LedgerDrift, error) {
	db := config.GetDB()

	var items []*models.InventoryItem
	if err := db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}

	var drifts []LedgerDrift
	for _, item := range items {
		replay, err := models.ReplayInventoryTransactions(db, ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if replay.ReplayedQuantity.Equal(item.CurrentQuantity) &&
			replay.FirstNegativeTransactionId == 0 &&
			replay.SnapshotMismatchTransactionId == 0 {
			continue
		}
		drifts = append(drifts, LedgerDrift{
			InventoryId:                   item.ID,
			CachedQuantity:                item.CurrentQuantity.String(),
			ReplayedQuantity:              replay.ReplayedQuantity.String(),
			RowCount:                      replay.RowCount,
			FirstNegativeTransactionId:    replay.FirstNegativeTransactionId,
			SnapshotMismatchTransactionId: replay.SnapshotMismatchTransactionId,
		})
	}
	return drifts, nil
}

// RepairInventoryLedger overwrites each drifted item's cached quantity with
// its replayed ledger sum. The ledger rows themselves are never touched; they
// are the source of truth the cache is rebuilt from. Returns the drifts that
// were repaired.
func RepairInventoryLedger(ctx context.Context) ([]LedgerDrift, error) {
	drifts, err := VerifyInventoryLedger(ctx)
	if err != nil {
		return nil, err
	}
	if len(drifts) == 0 {
		return nil, nil
	}

	db := config.GetDB()
	tx := db.Begin()

	for _, drift := range drifts {
		if err := AcquireInventoryPostingLock(tx, drift.InventoryId); err != nil {
			tx.Rollback()
			return nil, err
		}

		item, err := models.GetInventoryItemForUpdate(tx, ctx, drift.InventoryId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		// Replay again under the lock; the drift snapshot may be stale.
		replay, err := models.ReplayInventoryTransactions(tx, ctx, item.ID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if replay.ReplayedQuantity.Equal(item.CurrentQuantity) {
			ReleaseInventoryPostingLock(tx, drift.InventoryId)
			continue
		}
		if err := tx.WithContext(ctx).Model(&models.InventoryItem{}).
			Where("id = ?", item.ID).
			Update("current_quantity", replay.ReplayedQuantity).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		ReleaseInventoryPostingLock(tx, drift.InventoryId)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return drifts, nil
}
