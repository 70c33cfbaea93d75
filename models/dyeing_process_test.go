package models

import (
	"context"
	"testing"

	"github.com/zeeshankeerio/pos-application-sub002/utils"
)

func seedRawLot(t *testing.T, quantity string) *ThreadPurchase {
	t.Helper()
	purchase, err := CreateThreadPurchase(context.Background(), &NewThreadPurchase{
		ThreadType:    "Cotton 40s",
		Color:         "White",
		Quantity:      dec(t, quantity),
		UnitOfMeasure: "kg",
		UnitPrice:     dec(t, "50"),
	})
	if err != nil {
		t.Fatalf("seeding raw lot: %v", err)
	}
	return purchase
}

func TestCompleteDyeingProcessRecordsWastage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	lot := seedRawLot(t, "100")

	process, err := CreateDyeingProcess(ctx, &NewDyeingProcess{
		ThreadPurchaseId: lot.ID,
		DyeQuantity:      dec(t, "80"),
		Color:            "Indigo",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := CompleteDyeingProcess(ctx, process.ID, &CompleteDyeingProcessInput{
		OutputQuantity: dec(t, "75"),
		ResultStatus:   DyeingResultStatusCompleted,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if !result.Process.OutputQuantity.Equal(dec(t, "75")) {
		t.Fatalf("output = %s, want 75", result.Process.OutputQuantity)
	}
	if result.Process.CompletionDate == nil {
		t.Fatalf("COMPLETED result needs a completion date")
	}
	// Dyeing is pure record-keeping; no ledger row until a lot is received.
	var rows int64
	db.Model(&InventoryTransaction{}).Count(&rows)
	if rows != 0 {
		t.Fatalf("dyeing wrote %d ledger rows", rows)
	}
}

func TestCompleteDyeingProcessOutputExceedsDyeQuantity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	lot := seedRawLot(t, "100")

	process, err := CreateDyeingProcess(ctx, &NewDyeingProcess{
		ThreadPurchaseId: lot.ID,
		DyeQuantity:      dec(t, "80"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = CompleteDyeingProcess(ctx, process.ID, &CompleteDyeingProcessInput{
		OutputQuantity: dec(t, "81"),
		ResultStatus:   DyeingResultStatusCompleted,
	})
	if utils.KindOf(err) != utils.ErrorKindValidation {
		t.Fatalf("err = %v, want VALIDATION", err)
	}
	_ = db
}

func TestCompleteDyeingProcessCreatesRemainderLot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	lot := seedRawLot(t, "100")

	process, err := CreateDyeingProcess(ctx, &NewDyeingProcess{
		ThreadPurchaseId: lot.ID,
		DyeQuantity:      dec(t, "80"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := CompleteDyeingProcess(ctx, process.ID, &CompleteDyeingProcessInput{
		OutputQuantity:     dec(t, "78"),
		ResultStatus:       DyeingResultStatusCompleted,
		CreateRemainderLot: true,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if result.RemainderLot == nil {
		t.Fatalf("expected a remainder lot")
	}
	if !result.RemainderLot.Quantity.Equal(dec(t, "20")) {
		t.Fatalf("remainder quantity = %s, want 20", result.RemainderLot.Quantity)
	}
	if result.RemainderLot.Received {
		t.Fatalf("remainder lot must start unreceived")
	}
	if result.Process.RemainderLotId != result.RemainderLot.ID {
		t.Fatalf("process does not link the remainder lot")
	}
	// Lot creation is pure record-keeping too.
	var rows int64
	db.Model(&InventoryTransaction{}).Count(&rows)
	if rows != 0 {
		t.Fatalf("remainder lot wrote %d ledger rows", rows)
	}
}

func TestCreateDyeingProcessRejectsColoredLot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	purchase, err := CreateThreadPurchase(ctx, &NewThreadPurchase{
		ThreadType:  "Cotton 40s",
		ColorStatus: ColorStatusColored,
		Quantity:    dec(t, "50"),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err = CreateDyeingProcess(ctx, &NewDyeingProcess{
		ThreadPurchaseId: purchase.ID,
		DyeQuantity:      dec(t, "10"),
	})
	if utils.KindOf(err) != utils.ErrorKindValidation {
		t.Fatalf("err = %v, want VALIDATION", err)
	}
	_ = db
}
