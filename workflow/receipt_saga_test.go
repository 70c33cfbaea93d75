package workflow

import (
	"context"
	"testing"

	"github.com/zeeshankeerio/pos-application-sub002/models"
	"github.com/zeeshankeerio/pos-application-sub002/utils"
)

func newReceivedLot(t *testing.T, quantity string) *models.ThreadPurchaseReceipt {
	t.Helper()
	ctx := context.Background()

	purchase, err := models.CreateThreadPurchase(ctx, &models.NewThreadPurchase{
		ThreadType:    "Cotton 40s",
		Color:         "White",
		Quantity:      dec(t, quantity),
		UnitOfMeasure: "kg",
		UnitPrice:     dec(t, "50"),
		SalePrice:     dec(t, "80"),
	})
	if err != nil {
		t.Fatalf("creating purchase: %v", err)
	}
	receipt, err := models.MarkThreadPurchaseReceived(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("marking received: %v", err)
	}
	return receipt
}

func TestProcessInventorySeedTaskSeedsInventory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	receipt := newReceivedLot(t, "100")

	item, err := ProcessInventorySeedTask(ctx, receipt.SeedTask.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if !item.CurrentQuantity.Equal(dec(t, "100")) {
		t.Fatalf("seeded quantity = %s, want 100", item.CurrentQuantity)
	}
	if item.ProductType != models.ProductTypeThread {
		t.Fatalf("seeded item type = %s", item.ProductType)
	}
	if item.LastRestocked == nil {
		t.Fatalf("seeding must stamp last_restocked")
	}

	var task models.InventorySeedTask
	if err := db.First(&task, receipt.SeedTask.ID).Error; err != nil {
		t.Fatalf("reloading task: %v", err)
	}
	if task.Status != models.SeedTaskStatusDone {
		t.Fatalf("task status = %s, want DONE", task.Status)
	}
	var purchase models.ThreadPurchase
	if err := db.First(&purchase, receipt.Purchase.ID).Error; err != nil {
		t.Fatalf("reloading purchase: %v", err)
	}
	if purchase.InventoryItemId != item.ID {
		t.Fatalf("purchase not linked to inventory item")
	}
}

func TestProcessInventorySeedTaskIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	receipt := newReceivedLot(t, "100")

	item, err := ProcessInventorySeedTask(ctx, receipt.SeedTask.ID)
	if err != nil {
		t.Fatalf("first process: %v", err)
	}
	// A DONE task is a no-op.
	if again, err := ProcessInventorySeedTask(ctx, receipt.SeedTask.ID); err != nil || again != nil {
		t.Fatalf("reprocessing DONE task: item=%v err=%v", again, err)
	}

	// A task reset to PENDING whose ledger row already landed finishes the
	// bookkeeping without posting again.
	if err := db.Model(&models.InventorySeedTask{}).
		Where("id = ?", receipt.SeedTask.ID).
		Update("status", models.SeedTaskStatusPending).Error; err != nil {
		t.Fatalf("resetting task: %v", err)
	}
	if _, err := ProcessInventorySeedTask(ctx, receipt.SeedTask.ID); err != nil {
		t.Fatalf("reprocess: %v", err)
	}

	var rows int64
	db.Model(&models.InventoryTransaction{}).
		Where("reference_type = ? AND reference_id = ?",
			models.ReferenceTypeThreadPurchase, receipt.Purchase.ID).
		Count(&rows)
	if rows != 1 {
		t.Fatalf("ledger rows = %d, want exactly 1 after retries", rows)
	}
	var quantity models.InventoryItem
	if err := db.First(&quantity, item.ID).Error; err != nil {
		t.Fatalf("reloading item: %v", err)
	}
	if !quantity.CurrentQuantity.Equal(dec(t, "100")) {
		t.Fatalf("quantity = %s after retries, want 100", quantity.CurrentQuantity)
	}
}

func TestSeedTaskFailureLeavesPhaseOneDurable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	receipt := newReceivedLot(t, "100")

	// Break phase two: un-receive the purchase behind the task's back.
	if err := db.Model(&models.ThreadPurchase{}).
		Where("id = ?", receipt.Purchase.ID).
		Update("received", false).Error; err != nil {
		t.Fatalf("breaking purchase: %v", err)
	}

	_, err := ProcessInventorySeedTask(ctx, receipt.SeedTask.ID)
	if utils.KindOf(err) != utils.ErrorKindValidation {
		t.Fatalf("err = %v, want VALIDATION", err)
	}

	var task models.InventorySeedTask
	if err := db.First(&task, receipt.SeedTask.ID).Error; err != nil {
		t.Fatalf("reloading task: %v", err)
	}
	if task.Status != models.SeedTaskStatusPending {
		t.Fatalf("task status = %s, want PENDING for retry", task.Status)
	}
	if task.Attempts != 1 || task.LastError == "" {
		t.Fatalf("attempts=%d lastError=%q, want recorded failure", task.Attempts, task.LastError)
	}

	// Fix the data and retry without re-running phase one.
	if err := db.Model(&models.ThreadPurchase{}).
		Where("id = ?", receipt.Purchase.ID).
		Update("received", true).Error; err != nil {
		t.Fatalf("repairing purchase: %v", err)
	}
	item, err := ProcessInventorySeedTask(ctx, receipt.SeedTask.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !item.CurrentQuantity.Equal(dec(t, "100")) {
		t.Fatalf("quantity = %s, want 100", item.CurrentQuantity)
	}
}
