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

// UpdateFabricProduction edits a production batch without rewriting ledger
// history. Quantity changes on a COMPLETED batch append ADJUSTMENT deltas; a
// transition into COMPLETED posts the initial ledger pair exactly like a
// first-time creation. CANCELLED reached from PENDING/IN_PROGRESS never
// touches inventory.
func UpdateFabricProduction(ctx context.Context, id int, input *UpdateFabricProductionInput) (*FabricProductionResult, error) {
	existing, err := utils.FetchModel[FabricProduction](ctx, id)
	if err != nil {
		return nil, utils.NotFoundErrorf("fabric production %d not found", id)
	}

	newStatus := existing.Status
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, utils.ValidationErrorf("invalid production status %q", *input.Status)
		}
		if !existing.Status.CanTransitionTo(*input.Status) {
			return nil, utils.ValidationErrorf(
				"production status cannot change %s -> %s", existing.Status, *input.Status)
		}
		newStatus = *input.Status
	}

	newQtyProduced := existing.QuantityProduced
	if input.QuantityProduced != nil {
		if !input.QuantityProduced.IsPositive() {
			return nil, utils.ValidationErrorf("quantity produced must be positive")
		}
		newQtyProduced = *input.QuantityProduced
	}
	newThreadUsed := existing.ThreadUsed
	if input.ThreadUsed != nil {
		if !input.ThreadUsed.IsPositive() {
			return nil, utils.ValidationErrorf("thread used must be positive")
		}
		newThreadUsed = *input.ThreadUsed
	}

	db := config.GetDB()
	tx := db.Begin()

	result := &FabricProductionResult{}
	wasCompleted := existing.Status == ProductionStatusCompleted
	becomesCompleted := newStatus == ProductionStatusCompleted

	switch {
	case wasCompleted && becomesCompleted:
		// Append correction deltas against the already-posted pair.
		warnings, err := adjustCompletedProduction(tx, ctx, existing, newQtyProduced, newThreadUsed, result)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		result.Warnings = append(result.Warnings, warnings...)

	case !wasCompleted && becomesCompleted:
		// First completion mirrors creation: resolve the fabric row and post
		// the initial pair with the new quantities.
		existing.QuantityProduced = newQtyProduced
		existing.ThreadUsed = newThreadUsed

		threadItem, err := GetInventoryItemForUpdate(tx, ctx, existing.ThreadInventoryId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if threadItem.CurrentQuantity.LessThan(existing.ThreadUsed) {
			tx.Rollback()
			return nil, utils.InsufficientInventoryErrorf(
				"thread item %d has %s, production needs %s",
				threadItem.ID, threadItem.CurrentQuantity, existing.ThreadUsed)
		}

		singleEntry := config.SingleInventoryEntry()
		if input.SingleEntry != nil {
			singleEntry = *input.SingleEntry
		}
		fabricItem, err := FindOrCreateInventoryItem(tx, ctx, NewInventoryItem{
			ProductType:   ProductTypeFabric,
			ItemName:      existing.FabricType,
			SpecKey:       fmt.Sprintf("%s|%s", existing.FabricType, existing.Dimensions),
			UnitOfMeasure: existing.UnitOfMeasure,
			CostPerUnit:   existing.ProductionCost,
			SalePrice:     existing.SalePrice,
		}, singleEntry)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		existing.FabricInventoryId = fabricItem.ID
		completionDate := time.Now().UTC()
		existing.CompletionDate = &completionDate

		warnings, err := postProductionTransactions(tx, ctx, existing, fabricItem, threadItem)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		result.ThreadItem = threadItem
		result.FabricItem = fabricItem
		result.Warnings = append(result.Warnings, warnings...)

	default:
		// Non-inventory states: quantities may still be edited freely.
		existing.QuantityProduced = newQtyProduced
		existing.ThreadUsed = newThreadUsed
	}

	existing.Status = newStatus
	if input.ThreadWastage != nil {
		if input.ThreadWastage.IsNegative() {
			tx.Rollback()
			return nil, utils.ValidationErrorf("thread wastage cannot be negative")
		}
		existing.ThreadWastage = *input.ThreadWastage
	}
	if input.ProductionCost != nil {
		existing.ProductionCost = *input.ProductionCost
	}
	if input.SalePrice != nil {
		existing.SalePrice = *input.SalePrice
	}
	if input.Notes != nil {
		existing.Notes = *input.Notes
	}

	if err := tx.WithContext(ctx).Save(existing).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	result.Production = existing
	return result, nil
}

// adjustCompletedProduction appends ADJUSTMENT rows for quantity edits on an
// already-COMPLETED batch and writes the new figures onto the record.
func adjustCompletedProduction(tx *gorm.DB, ctx context.Context, production *FabricProduction, newQtyProduced, newThreadUsed decimal.Decimal, result *FabricProductionResult) ([]string, error) {
	ref := TransactionReference{Type: ReferenceTypeFabricProduction, Id: production.ID}
	var warnings []string

	if !newQtyProduced.Equal(production.QuantityProduced) {
		delta := newQtyProduced.Sub(production.QuantityProduced)
		fabricItem, err := GetInventoryItemForUpdate(tx, ctx, production.FabricInventoryId)
		if err != nil {
			return nil, err
		}
		_, warning, err := ApplyInventoryTransaction(tx, ctx, fabricItem, delta,
			InventoryTransactionTypeAdjustment, ref, ApplyOptions{
				UnitCost: production.ProductionCost,
				Notes:    fmt.Sprintf("produced qty corrected %s -> %s", production.QuantityProduced, newQtyProduced),
			})
		if err != nil {
			return nil, err
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
		production.QuantityProduced = newQtyProduced
		result.FabricItem = fabricItem
	}

	if !newThreadUsed.Equal(production.ThreadUsed) {
		delta := newThreadUsed.Sub(production.ThreadUsed)
		threadItem, err := GetInventoryItemForUpdate(tx, ctx, production.ThreadInventoryId)
		if err != nil {
			return nil, err
		}
		if delta.IsPositive() && threadItem.CurrentQuantity.LessThan(delta) {
			return nil, utils.InsufficientInventoryErrorf(
				"thread item %d has %s, correction needs %s more",
				threadItem.ID, threadItem.CurrentQuantity, delta)
		}
		_, warning, err := ApplyInventoryTransaction(tx, ctx, threadItem, delta.Neg(),
			InventoryTransactionTypeAdjustment, ref, ApplyOptions{
				UnitCost: threadItem.CostPerUnit,
				Notes:    fmt.Sprintf("thread used corrected %s -> %s", production.ThreadUsed, newThreadUsed),
			})
		if err != nil {
			return nil, err
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
		production.ThreadUsed = newThreadUsed
		result.ThreadItem = threadItem
	}

	return warnings, nil
}

// DeleteFabricProduction removes a batch after reversing its ledger effect.
// It refuses while any sales order item still references the production; the
// fabric inventory row is dropped only when nothing else references it.
func DeleteFabricProduction(ctx context.Context, id int) (*FabricProduction, error) {
	existing, err := utils.FetchModel[FabricProduction](ctx, id)
	if err != nil {
		return nil, utils.NotFoundErrorf("fabric production %d not found", id)
	}

	db := config.GetDB()
	tx := db.Begin()

	// The reference count runs inside the delete transaction, after the
	// fabric row lock, so it serializes with concurrent order creation
	// against the same item. Counting on db before Begin leaves a window
	// where a committing sale can attach to a production mid-deletion.
	if existing.FabricInventoryId > 0 {
		if _, err := GetInventoryItemForUpdate(tx, ctx, existing.FabricInventoryId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	var salesRefs int64
	if err := tx.WithContext(ctx).Model(&SalesOrderItem{}).
		Where("product_type = ? AND product_id = ?", ProductTypeFabric, id).
		Count(&salesRefs).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if salesRefs > 0 {
		tx.Rollback()
		return nil, utils.ReferentialIntegrityErrorf(
			"fabric production %d is referenced by %d sales order item(s)", id, salesRefs)
	}

	ref := TransactionReference{Type: ReferenceTypeFabricProduction, Id: id}
	if _, err := ReverseTransactionsForReference(tx, ctx, ref); err != nil {
		tx.Rollback()
		return nil, err
	}

	if existing.FabricInventoryId > 0 {
		if _, err := DeleteInventoryItemIfUnreferenced(tx, ctx, existing.FabricInventoryId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.WithContext(ctx).Delete(&FabricProduction{}, id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return existing, nil
}

func GetFabricProduction(ctx context.Context, id int) (*FabricProduction, error) {
	return utils.FetchModel[FabricProduction](ctx, id)
}

func GetFabricProductions(ctx context.Context, status *ProductionStatus) ([]*FabricProduction, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	var results []*FabricProduction
	if err := dbCtx.Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
