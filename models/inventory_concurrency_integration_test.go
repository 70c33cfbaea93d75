package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeeshankeerio/pos-application-sub002/config"
	"github.com/zeeshankeerio/pos-application-sub002/models"
	"github.com/zeeshankeerio/pos-application-sub002/utils"
)

// Two orders racing for the same inventory row, where the combined quantity
// exceeds stock, must end with exactly one success: never a negative
// quantity, never two winners. This needs real row locking, so it runs
// against MySQL.
func TestConcurrentSalesOrdersOneWinner(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "textile_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	db := config.GetDB()

	item := &models.InventoryItem{
		ProductType:   models.ProductTypeThread,
		ItemName:      "Cotton 40s",
		SpecKey:       "Cotton 40s",
		UnitOfMeasure: "kg",
		CostPerUnit:   decimal.NewFromInt(50),
		SalePrice:     decimal.NewFromInt(100),
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("creating item: %v", err)
	}
	tx := db.Begin()
	if _, _, err := models.ApplyInventoryTransaction(tx, ctx, item, decimal.NewFromInt(100),
		models.InventoryTransactionTypeAdjustment,
		models.TransactionReference{Type: models.ReferenceTypeThreadPurchase, Id: 0},
		models.ApplyOptions{UnitCost: item.CostPerUnit}); err != nil {
		tx.Rollback()
		t.Fatalf("seeding stock: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("committing seed: %v", err)
	}

	orderFor := func(qty int64) *models.NewSalesOrder {
		total := decimal.NewFromInt(qty * 100)
		return &models.NewSalesOrder{
			TotalSale: total,
			Items: []models.NewSalesOrderItem{{
				ProductType:     models.ProductTypeThread,
				ProductId:       1,
				InventoryItemId: item.ID,
				QuantitySold:    decimal.NewFromInt(qty),
				UnitPrice:       decimal.NewFromInt(100),
				Subtotal:        total,
			}},
		}
	}

	// 70 + 70 > 100: exactly one can win.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, err := models.CreateSalesOrder(ctx, orderFor(70))
			if err != nil && utils.KindOf(err) == utils.ErrorKindConflict {
				// Lost the compare-and-swap race: re-read and retry once.
				_, err = models.CreateSalesOrder(ctx, orderFor(70))
			}
			errs[slot] = err
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		if kind := utils.KindOf(err); kind != utils.ErrorKindInsufficientInventory {
			t.Fatalf("loser failed with %s (%v), want INSUFFICIENT_INVENTORY", kind, err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}

	var reloaded models.InventoryItem
	if err := db.First(&reloaded, item.ID).Error; err != nil {
		t.Fatalf("reloading item: %v", err)
	}
	if reloaded.CurrentQuantity.Cmp(decimal.NewFromInt(30)) != 0 {
		t.Fatalf("quantity = %s, want 30", reloaded.CurrentQuantity)
	}
	if reloaded.CurrentQuantity.IsNegative() {
		t.Fatalf("inventory went negative under concurrency")
	}

	replay, err := models.ReplayInventoryTransactions(db, ctx, item.ID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.ReplayedQuantity.Equal(reloaded.CurrentQuantity) {
		t.Fatalf("replayed %s != cached %s", replay.ReplayedQuantity, reloaded.CurrentQuantity)
	}
}

// A delete racing a sale against the same production must never leave a
// sales item pointing at a deleted production. The reference check shares
// the delete's transaction and row locks, so one side always observes the
// other's outcome. Runs against MySQL for real locking.
func TestConcurrentDeleteAndSaleKeepReferences(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "textile_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	db := config.GetDB()

	thread := &models.InventoryItem{
		ProductType:   models.ProductTypeThread,
		ItemName:      "Cotton 40s",
		SpecKey:       "Cotton 40s",
		UnitOfMeasure: "kg",
		CostPerUnit:   decimal.NewFromInt(50),
		SalePrice:     decimal.NewFromInt(100),
	}
	if err := db.Create(thread).Error; err != nil {
		t.Fatalf("creating thread item: %v", err)
	}
	tx := db.Begin()
	if _, _, err := models.ApplyInventoryTransaction(tx, ctx, thread, decimal.NewFromInt(100),
		models.InventoryTransactionTypeAdjustment,
		models.TransactionReference{Type: models.ReferenceTypeThreadPurchase, Id: 0},
		models.ApplyOptions{UnitCost: thread.CostPerUnit}); err != nil {
		tx.Rollback()
		t.Fatalf("seeding stock: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("committing seed: %v", err)
	}

	// Two consolidated batches on one fabric item, so reversing the first
	// still succeeds after a small sale.
	batch := func() *models.NewFabricProduction {
		return &models.NewFabricProduction{
			ThreadInventoryId: thread.ID,
			FabricType:        "Plain Weave",
			Dimensions:        "60x90",
			QuantityProduced:  decimal.NewFromInt(38),
			ThreadUsed:        decimal.NewFromInt(40),
			UnitOfMeasure:     "m",
			ProductionCost:    decimal.NewFromInt(60),
			SalePrice:         decimal.NewFromInt(200),
			SingleEntry:       utils.NewTrue(),
		}
	}
	first, err := models.CreateFabricProduction(ctx, batch())
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if _, err := models.CreateFabricProduction(ctx, batch()); err != nil {
		t.Fatalf("second batch: %v", err)
	}
	fabricItemId := first.FabricItem.ID
	targetId := first.Production.ID

	saleFor := func() *models.NewSalesOrder {
		total := decimal.NewFromInt(5 * 200)
		return &models.NewSalesOrder{
			TotalSale: total,
			Items: []models.NewSalesOrderItem{{
				ProductType:     models.ProductTypeFabric,
				ProductId:       targetId,
				InventoryItemId: fabricItemId,
				QuantitySold:    decimal.NewFromInt(5),
				UnitPrice:       decimal.NewFromInt(200),
				Subtotal:        total,
			}},
		}
	}

	var deleteErr, saleErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, deleteErr = models.DeleteFabricProduction(ctx, targetId)
		if deleteErr != nil && utils.KindOf(deleteErr) == utils.ErrorKindConflict {
			_, deleteErr = models.DeleteFabricProduction(ctx, targetId)
		}
	}()
	go func() {
		defer wg.Done()
		_, saleErr = models.CreateSalesOrder(ctx, saleFor())
		if saleErr != nil && utils.KindOf(saleErr) == utils.ErrorKindConflict {
			_, saleErr = models.CreateSalesOrder(ctx, saleFor())
		}
	}()
	wg.Wait()

	var productions int64
	db.Model(&models.FabricProduction{}).Where("id = ?", targetId).Count(&productions)
	var refs int64
	db.Model(&models.SalesOrderItem{}).
		Where("product_type = ? AND product_id = ?", models.ProductTypeFabric, targetId).
		Count(&refs)

	if productions == 0 && refs > 0 {
		t.Fatalf("%d sales item(s) reference deleted production %d", refs, targetId)
	}
	if deleteErr == nil && productions != 0 {
		t.Fatalf("delete reported success but production row survived")
	}
	if deleteErr != nil {
		if kind := utils.KindOf(deleteErr); kind != utils.ErrorKindReferentialIntegrity {
			t.Fatalf("delete failed with %s (%v), want REFERENTIAL_INTEGRITY", kind, deleteErr)
		}
		if saleErr != nil {
			t.Fatalf("delete blocked by a sale that also failed: %v", saleErr)
		}
	}

	var reloaded models.InventoryItem
	if err := db.First(&reloaded, fabricItemId).Error; err != nil {
		t.Fatalf("reloading fabric item: %v", err)
	}
	if reloaded.CurrentQuantity.IsNegative() {
		t.Fatalf("fabric inventory went negative under concurrency")
	}
	replay, err := models.ReplayInventoryTransactions(db, ctx, fabricItemId)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.ReplayedQuantity.Equal(reloaded.CurrentQuantity) {
		t.Fatalf("replayed %s != cached %s", replay.ReplayedQuantity, reloaded.CurrentQuantity)
	}
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("textile-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=textile_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
