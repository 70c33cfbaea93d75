package workflow

import (
	"context"
	"testing"

	"github.com/zeeshankeerio/pos-application-sub002/models"
)

func TestVerifyInventoryLedgerCleanAfterNormalFlow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	receipt := newReceivedLot(t, "100")
	if _, err := ProcessInventorySeedTask(ctx, receipt.SeedTask.ID); err != nil {
		t.Fatalf("seed: %v", err)
	}

	drifts, err := VerifyInventoryLedger(ctx)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(drifts) != 0 {
		t.Fatalf("drifts = %v, want none after engine-only writes", drifts)
	}
	_ = db
}

func TestRepairInventoryLedgerFixesManualDrift(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	receipt := newReceivedLot(t, "100")
	item, err := ProcessInventorySeedTask(ctx, receipt.SeedTask.ID)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Simulate a write that bypassed the engine.
	if err := db.Model(&models.InventoryItem{}).
		Where("id = ?", item.ID).
		Update("current_quantity", dec(t, "73")).Error; err != nil {
		t.Fatalf("introducing drift: %v", err)
	}

	drifts, err := VerifyInventoryLedger(ctx)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(drifts) != 1 || drifts[0].InventoryId != item.ID {
		t.Fatalf("drifts = %v, want one for item %d", drifts, item.ID)
	}

	repaired, err := RepairInventoryLedger(ctx)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if len(repaired) != 1 {
		t.Fatalf("repaired = %v, want one item", repaired)
	}

	var reloaded models.InventoryItem
	if err := db.First(&reloaded, item.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.CurrentQuantity.Equal(dec(t, "100")) {
		t.Fatalf("quantity = %s after repair, want 100", reloaded.CurrentQuantity)
	}

	clean, err := VerifyInventoryLedger(ctx)
	if err != nil {
		t.Fatalf("verify after repair: %v", err)
	}
	if len(clean) != 0 {
		t.Fatalf("ledger still drifted after repair: %v", clean)
	}
}
