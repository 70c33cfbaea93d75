package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"github.com/zeeshankeerio/pos-application-sub002/config"
	"github.com/zeeshankeerio/pos-application-sub002/models"
	"github.com/zeeshankeerio/pos-application-sub002/utils"
)

// ProcessInventorySeedTask runs phase two of the receipt flow for one task:
// resolve (or create) the thread inventory row and post the receipt
// transaction. It is idempotent (a task whose ledger row already exists is
// marked DONE without posting again) and safe to retry: any failure leaves
// the task PENDING with the error recorded, never touching phase one.
func ProcessInventorySeedTask(ctx context.Context, taskId int) (*models.InventoryItem, error) {
	db := config.GetDB()

	var task models.InventorySeedTask
	if err := db.WithContext(ctx).First(&task, taskId).Error; err != nil {
		return nil, utils.NotFoundErrorf("seed task %d not found", taskId)
	}
	if task.Status == models.SeedTaskStatusDone {
		return nil, nil
	}

	item, err := seedPurchaseInventory(ctx, &task)
	if err != nil {
		now := time.Now().UTC()
		db.WithContext(ctx).Model(&models.InventorySeedTask{}).
			Where("id = ?", task.ID).
			Updates(map[string]interface{}{
				"attempts":   task.Attempts + 1,
				"last_error": err.Error(),
				"updated_at": now,
			})
		return nil, err
	}
	return item, nil
}

func seedPurchaseInventory(ctx context.Context, task *models.InventorySeedTask) (*models.InventoryItem, error) {
	db := config.GetDB()

	var purchase models.ThreadPurchase
	if err := db.WithContext(ctx).First(&purchase, task.ThreadPurchaseId).Error; err != nil {
		return nil, utils.NotFoundErrorf("thread purchase %d not found", task.ThreadPurchaseId)
	}
	if !purchase.Received {
		return nil, utils.ValidationErrorf("thread purchase %d is not received", purchase.ID)
	}

	tx := db.Begin()

	ref := models.TransactionReference{Type: models.ReferenceTypeThreadPurchase, Id: purchase.ID}
	existing, err := models.TransactionsForReference(tx, ctx, ref)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	var item *models.InventoryItem
	if len(existing) > 0 {
		// A previous attempt got as far as posting; just finish the bookkeeping.
		item, err = models.GetInventoryItemForUpdate(tx, ctx, existing[0].InventoryId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		item, err = models.FindOrCreateInventoryItem(tx, ctx, models.NewInventoryItem{
			ProductType:   models.ProductTypeThread,
			ItemName:      purchase.ThreadType,
			SpecKey:       purchase.SpecKey(),
			UnitOfMeasure: purchase.UnitOfMeasure,
			CostPerUnit:   purchase.UnitPrice,
			SalePrice:     purchase.SalePrice,
			MinStockLevel: purchase.MinStockLevel,
		}, config.SingleInventoryEntry())
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		_, _, err = models.ApplyInventoryTransaction(tx, ctx, item, purchase.Quantity,
			models.InventoryTransactionTypeAdjustment, ref, models.ApplyOptions{
				UnitCost: purchase.UnitPrice,
				Notes:    fmt.Sprintf("receipt of thread purchase %d", purchase.ID),
			})
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.WithContext(ctx).Model(&models.ThreadPurchase{}).
		Where("id = ?", purchase.ID).
		Update("inventory_item_id", item.ID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	if err := tx.WithContext(ctx).Model(&models.InventorySeedTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":       models.SeedTaskStatusDone,
			"attempts":     task.Attempts + 1,
			"last_error":   "",
			"processed_at": now,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return item, nil
}

// maxSeedAttempts parks a task as FAILED once retries stop making sense;
// operators requeue by resetting the status.
const maxSeedAttempts = 10

// RunSeedTaskDispatcher drains pending seed tasks on an interval until ctx is
// cancelled. When Redis is configured, a lock keeps multiple instances from
// draining the queue at once; without Redis each task is still posted at most
// once, the instances just duplicate work.
func RunSeedTaskDispatcher(ctx context.Context, interval time.Duration) {
	logger := config.GetLogger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dispatchPendingSeedTasks(ctx, logger)
		}
	}
}

func dispatchPendingSeedTasks(ctx context.Context, logger *logrus.Logger) {
	locker := config.GetRedisLock()
	if locker != nil {
		lock, err := locker.Obtain(ctx, "lock:seed-dispatcher", 30*time.Second, nil)
		if err == redislock.ErrNotObtained {
			return
		} else if err != nil {
			logger.WithField("field", "dispatchPendingSeedTasks").
				Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
		} else {
			defer func() { _ = lock.Release(ctx) }()
		}
	}

	db := config.GetDB()
	var tasks []*models.InventorySeedTask
	if err := db.WithContext(ctx).
		Where("status = ? AND attempts < ?", models.SeedTaskStatusPending, maxSeedAttempts).
		Order("id").Limit(50).
		Find(&tasks).Error; err != nil {
		config.LogError(logger, "workflow", "dispatchPendingSeedTasks", "listing pending tasks", nil, err)
		return
	}

	for _, task := range tasks {
		if _, err := ProcessInventorySeedTask(ctx, task.ID); err != nil {
			config.LogError(logger, "workflow", "dispatchPendingSeedTasks", "processing seed task", task.ID, err)
			if task.Attempts+1 >= maxSeedAttempts {
				db.WithContext(ctx).Model(&models.InventorySeedTask{}).
					Where("id = ?", task.ID).
					Update("status", models.SeedTaskStatusFailed)
			}
		}
	}
}
