package models

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/zeeshankeerio/pos-application-sub002/config"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB gives each test a fresh throwaway database wired into the
// config singleton the orchestrators read from.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A file-backed database: with :memory: every pooled connection would get
	// its own empty schema.
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	err = db.AutoMigrate(
		&InventoryItem{}, &InventoryTransaction{},
		&ThreadPurchase{}, &DyeingProcess{},
		&FabricProduction{},
		&SalesOrder{}, &SalesOrderItem{}, &Payment{}, &ChequeTransaction{},
		&InventorySeedTask{},
	)
	if err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	prev := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(prev) })
	return db
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

// seedThreadItem creates a thread inventory row with stock already applied
// through the ledger, so the replay invariant holds from the start.
func seedThreadItem(t *testing.T, db *gorm.DB, name string, quantity string) *InventoryItem {
	t.Helper()
	ctx := context.Background()

	item := &InventoryItem{
		ProductType:   ProductTypeThread,
		ItemName:      name,
		SpecKey:       name,
		UnitOfMeasure: "kg",
		CostPerUnit:   dec(t, "50"),
		SalePrice:     dec(t, "100"),
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("creating thread item: %v", err)
	}

	tx := db.Begin()
	_, _, err := ApplyInventoryTransaction(tx, ctx, item, dec(t, quantity),
		InventoryTransactionTypeAdjustment,
		TransactionReference{Type: ReferenceTypeThreadPurchase, Id: 0},
		ApplyOptions{UnitCost: item.CostPerUnit})
	if err != nil {
		tx.Rollback()
		t.Fatalf("seeding thread stock: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("committing seed: %v", err)
	}
	return item
}

func itemQuantity(t *testing.T, db *gorm.DB, id int) decimal.Decimal {
	t.Helper()
	var item InventoryItem
	if err := db.First(&item, id).Error; err != nil {
		t.Fatalf("reloading inventory item %d: %v", id, err)
	}
	return item.CurrentQuantity
}

func assertReplayMatches(t *testing.T, db *gorm.DB, inventoryId int) {
	t.Helper()
	ctx := context.Background()
	replay, err := ReplayInventoryTransactions(db, ctx, inventoryId)
	if err != nil {
		t.Fatalf("replaying ledger for item %d: %v", inventoryId, err)
	}
	cached := itemQuantity(t, db, inventoryId)
	if !replay.ReplayedQuantity.Equal(cached) {
		t.Fatalf("item %d: replayed %s but cached %s", inventoryId, replay.ReplayedQuantity, cached)
	}
	if replay.FirstNegativeTransactionId != 0 {
		t.Fatalf("item %d: ledger dips below zero at transaction %d", inventoryId, replay.FirstNegativeTransactionId)
	}
	if replay.SnapshotMismatchTransactionId != 0 {
		t.Fatalf("item %d: snapshot mismatch at transaction %d", inventoryId, replay.SnapshotMismatchTransactionId)
	}
}
