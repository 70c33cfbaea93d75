package models

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeeshankeerio/pos-application-sub002/config"
	"github.com/zeeshankeerio/pos-application-sub002/utils"
	"gorm.io/gorm"
)

// InventoryTransaction is one append-only ledger row. Rows are never edited;
// the only deletion path is the compensating reversal that runs when the
// owning record (production, sales order) is itself deleted.
type InventoryTransaction struct {
	ID                int                      `gorm:"primary_key" json:"id"`
	InventoryId       int                      `gorm:"index;not null" json:"inventory_id"`
	TransactionType   InventoryTransactionType `gorm:"size:20;not null" json:"transaction_type"`
	Quantity          decimal.Decimal          `gorm:"type:decimal(20,4);not null" json:"quantity"`
	RemainingQuantity decimal.Decimal          `gorm:"type:decimal(20,4);not null" json:"remaining_quantity"`
	UnitCost          decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	TotalCost         decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	ReferenceType     InventoryReferenceType   `gorm:"size:30;index" json:"reference_type"`
	ReferenceId       int                      `gorm:"index" json:"reference_id"`
	TransactionDate   time.Time                `gorm:"not null" json:"transaction_date"`
	Notes             string                   `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time                `gorm:"autoCreateTime" json:"created_at"`
}

// TransactionReference is the polymorphic link to the originating record,
// resolved once when the ledger row is written.
type TransactionReference struct {
	Type InventoryReferenceType
	Id   int
}

type ApplyOptions struct {
	UnitCost           decimal.Decimal
	TransactionDate    time.Time // zero value defaults to now
	Notes              string
	AllowBelowMinStock bool
}

// ApplyInventoryTransaction mutates an item's quantity and appends the ledger
// row recording the delta, as one unit inside the caller's transaction.
//
// The item row is updated with a compare-and-swap against the quantity the
// caller read (under GetInventoryItemForUpdate); a lost race surfaces as a
// retryable Conflict instead of a silent lost update. A delta that would
// drive the quantity negative fails unconditionally; AllowBelowMinStock only
// suppresses the advisory low-stock warning.
//
// Returns the written row and a non-fatal warning string ("" when none).
func ApplyInventoryTransaction(tx *gorm.DB, ctx context.Context, item *InventoryItem, delta decimal.Decimal, txnType InventoryTransactionType, ref TransactionReference, opts ApplyOptions) (*InventoryTransaction, string, error) {
	if !txnType.Valid() {
		return nil, "", utils.ValidationErrorf("invalid transaction type %q", txnType)
	}

	remaining := item.CurrentQuantity.Add(delta)
	if remaining.IsNegative() {
		return nil, "", utils.NegativeInventoryErrorf(
			"transaction of %s on item %d would drive quantity below zero (current %s)",
			delta, item.ID, item.CurrentQuantity)
	}

	updates := map[string]interface{}{
		"current_quantity": remaining,
	}
	transactionDate := opts.TransactionDate
	if transactionDate.IsZero() {
		transactionDate = time.Now().UTC()
	}
	if delta.IsPositive() {
		updates["last_restocked"] = transactionDate
	}

	// CAS guard: quantity must still be what the caller read.
	res := tx.WithContext(ctx).Model(&InventoryItem{}).
		Where("id = ? AND current_quantity = ?", item.ID, item.CurrentQuantity).
		Updates(updates)
	if res.Error != nil {
		return nil, "", res.Error
	}
	if res.RowsAffected == 0 {
		return nil, "", utils.ConflictErrorf(
			"concurrent update on inventory item %d; re-read and retry", item.ID)
	}

	record := InventoryTransaction{
		InventoryId:       item.ID,
		TransactionType:   txnType,
		Quantity:          delta,
		RemainingQuantity: remaining,
		UnitCost:          opts.UnitCost,
		TotalCost:         opts.UnitCost.Mul(delta.Abs()),
		ReferenceType:     ref.Type,
		ReferenceId:       ref.Id,
		TransactionDate:   transactionDate,
		Notes:             opts.Notes,
	}
	if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, "", err
	}

	item.CurrentQuantity = remaining
	if delta.IsPositive() {
		item.LastRestocked = &transactionDate
	}

	warning := ""
	if delta.IsNegative() && remaining.LessThan(item.MinStockLevel) && !opts.AllowBelowMinStock {
		warning = fmt.Sprintf("item %d (%s) is below minimum stock level: %s < %s",
			item.ID, item.ItemName, remaining, item.MinStockLevel)
	}

	return &record, warning, nil
}

// TransactionsForReference returns the live ledger rows owned by a record,
// oldest first.
func TransactionsForReference(tx *gorm.DB, ctx context.Context, ref TransactionReference) ([]*InventoryTransaction, error) {
	var rows []*InventoryTransaction
	err := tx.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", ref.Type, ref.Id).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReverseTransactionsForReference undoes every ledger row owned by a record
// that is being deleted, restoring each touched item's quantity, and then
// deletes the rows. This is the single sanctioned path for removing ledger
// rows (compensating reversal). Returns the inventory ids that were touched.
func ReverseTransactionsForReference(tx *gorm.DB, ctx context.Context, ref TransactionReference) ([]int, error) {
	rows, err := TransactionsForReference(tx, ctx, ref)
	if err != nil {
		return nil, err
	}

	touched := make([]int, 0, len(rows))
	for _, row := range rows {
		item, err := GetInventoryItemForUpdate(tx, ctx, row.InventoryId)
		if err != nil {
			return nil, err
		}

		restored := item.CurrentQuantity.Sub(row.Quantity)
		if restored.IsNegative() {
			return nil, utils.NegativeInventoryErrorf(
				"reversing transaction %d would drive item %d below zero (current %s, reversal %s)",
				row.ID, item.ID, item.CurrentQuantity, row.Quantity.Neg())
		}

		res := tx.WithContext(ctx).Model(&InventoryItem{}).
			Where("id = ? AND current_quantity = ?", item.ID, item.CurrentQuantity).
			Update("current_quantity", restored)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, utils.ConflictErrorf(
				"concurrent update on inventory item %d; re-read and retry", item.ID)
		}

		if err := tx.WithContext(ctx).Delete(&InventoryTransaction{}, row.ID).Error; err != nil {
			return nil, err
		}
		touched = append(touched, item.ID)
	}
	return utils.UniqueSlice(touched), nil
}

// ReplayResult reports a full replay of one item's ledger.
type ReplayResult struct {
	InventoryId      int
	ReplayedQuantity decimal.Decimal
	RowCount         int
	// FirstNegativeTransactionId is non-zero when some prefix of the ledger
	// dips below zero, which should be impossible.
	FirstNegativeTransactionId int
	// SnapshotMismatchTransactionId is non-zero when a row's stored
	// RemainingQuantity disagrees with the running sum at that row.
	SnapshotMismatchTransactionId int
}

// ReplayInventoryTransactions recomputes an item's quantity by summing its
// ledger in creation order. The engine guarantees the result always matches
// the cached current_quantity; the rebuild tooling uses this to verify and
// repair drift introduced outside the engine.
func ReplayInventoryTransactions(db *gorm.DB, ctx context.Context, inventoryId int) (*ReplayResult, error) {
	var rows []*InventoryTransaction
	if err := db.WithContext(ctx).
		Where("inventory_id = ?", inventoryId).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	result := &ReplayResult{InventoryId: inventoryId, RowCount: len(rows)}
	running := decimal.Zero
	for _, row := range rows {
		running = running.Add(row.Quantity)
		if running.IsNegative() && result.FirstNegativeTransactionId == 0 {
			result.FirstNegativeTransactionId = row.ID
		}
		if !running.Equal(row.RemainingQuantity) && result.SnapshotMismatchTransactionId == 0 {
			result.SnapshotMismatchTransactionId = row.ID
		}
	}
	result.ReplayedQuantity = running
	return result, nil
}

// GetInventoryTransactions lists the ledger for one item, oldest first.
func GetInventoryTransactions(ctx context.Context, inventoryId int) ([]*InventoryTransaction, error) {
	db := config.GetDB()
	var rows []*InventoryTransaction
	err := db.WithContext(ctx).
		Where("inventory_id = ?", inventoryId).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
