package models

import (
	"context"
	"testing"
	"time"

	"github.com/zeeshankeerio/pos-application-sub002/utils"
	"gorm.io/gorm"
)

// seedReceivedPurchase creates a received lot with its inventory already
// seeded through the ledger, the state the receipt flow leaves behind.
func seedReceivedPurchase(t *testing.T, db *gorm.DB, quantity string) *ThreadPurchase {
	t.Helper()
	ctx := context.Background()

	purchase, err := CreateThreadPurchase(ctx, &NewThreadPurchase{
		ThreadType:    "Cotton 40s",
		Color:         "White",
		ColorStatus:   ColorStatusRaw,
		Quantity:      dec(t, quantity),
		UnitOfMeasure: "kg",
		UnitPrice:     dec(t, "50"),
		SalePrice:     dec(t, "100"),
	})
	if err != nil {
		t.Fatalf("creating purchase: %v", err)
	}

	now := time.Now().UTC()
	purchase.Received = true
	purchase.ReceivedAt = &now
	if err := db.Save(purchase).Error; err != nil {
		t.Fatalf("marking received: %v", err)
	}

	tx := db.Begin()
	item, err := FindOrCreateInventoryItem(tx, ctx, NewInventoryItem{
		ProductType:   ProductTypeThread,
		ItemName:      purchase.ThreadType,
		SpecKey:       purchase.SpecKey(),
		UnitOfMeasure: purchase.UnitOfMeasure,
		CostPerUnit:   purchase.UnitPrice,
		SalePrice:     purchase.SalePrice,
	}, false)
	if err != nil {
		tx.Rollback()
		t.Fatalf("creating seeded item: %v", err)
	}
	_, _, err = ApplyInventoryTransaction(tx, ctx, item, purchase.Quantity,
		InventoryTransactionTypeAdjustment,
		TransactionReference{Type: ReferenceTypeThreadPurchase, Id: purchase.ID},
		ApplyOptions{UnitCost: purchase.UnitPrice})
	if err != nil {
		tx.Rollback()
		t.Fatalf("seeding inventory: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("committing seed: %v", err)
	}

	purchase.InventoryItemId = item.ID
	if err := db.Save(purchase).Error; err != nil {
		t.Fatalf("linking inventory item: %v", err)
	}
	return purchase
}

func TestDeleteThreadPurchaseReversesSeededInventory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	purchase := seedReceivedPurchase(t, db, "80")
	itemId := purchase.InventoryItemId

	if _, err := DeleteThreadPurchase(ctx, purchase.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var items int64
	db.Model(&InventoryItem{}).Where("id = ?", itemId).Count(&items)
	if items != 0 {
		t.Fatalf("unreferenced seeded item survived deletion")
	}
	var purchases int64
	db.Model(&ThreadPurchase{}).Where("id = ?", purchase.ID).Count(&purchases)
	if purchases != 0 {
		t.Fatalf("purchase row survived deletion")
	}
}

func TestDeleteThreadPurchaseBlockedByDyeingReference(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	purchase := seedReceivedPurchase(t, db, "80")

	if _, err := CreateDyeingProcess(ctx, &NewDyeingProcess{
		ThreadPurchaseId: purchase.ID,
		DyeQuantity:      dec(t, "30"),
		Color:            "Indigo",
	}); err != nil {
		t.Fatalf("creating dyeing process: %v", err)
	}

	_, err := DeleteThreadPurchase(ctx, purchase.ID)
	if utils.KindOf(err) != utils.ErrorKindReferentialIntegrity {
		t.Fatalf("err = %v, want REFERENTIAL_INTEGRITY", err)
	}

	if got := itemQuantity(t, db, purchase.InventoryItemId); !got.Equal(dec(t, "80")) {
		t.Fatalf("seeded quantity = %s, blocked delete must not touch inventory", got)
	}
	var ledgerRows int64
	db.Model(&InventoryTransaction{}).
		Where("reference_type = ? AND reference_id = ?", ReferenceTypeThreadPurchase, purchase.ID).
		Count(&ledgerRows)
	if ledgerRows != 1 {
		t.Fatalf("ledger rows = %d, want 1; blocked delete leaked a reversal", ledgerRows)
	}
	var purchases int64
	db.Model(&ThreadPurchase{}).Where("id = ?", purchase.ID).Count(&purchases)
	if purchases != 1 {
		t.Fatalf("purchase row gone despite blocked delete")
	}
	assertReplayMatches(t, db, purchase.InventoryItemId)
}
