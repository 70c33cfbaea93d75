package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireInventoryPostingLock serializes maintenance posting per inventory row
// across instances using MySQL advisory locks. Dialects without GET_LOCK
// (sqlite in tests) skip it; the compare-and-swap guard still protects writes.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will do the posting transaction.
func AcquireInventoryPostingLock(tx *gorm.DB, inventoryId int) error {
	if tx.Dialector.Name() != "mysql" {
		return nil
	}
	lockName := fmt.Sprintf("inventory-posting:%d", inventoryId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for inventory_id=%d", inventoryId)
	}
	return nil
}

func ReleaseInventoryPostingLock(tx *gorm.DB, inventoryId int) {
	if tx.Dialector.Name() != "mysql" {
		return
	}
	lockName := fmt.Sprintf("inventory-posting:%d", inventoryId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
