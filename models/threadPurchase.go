package models

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeeshankeerio/pos-application-sub002/config"
	"github.com/zeeshankeerio/pos-application-sub002/utils"
)

// ThreadPurchase is one purchased thread lot. The record itself carries no
// ledger effect; inventory is seeded only when the lot is marked received,
// through the seed-task queue.
type ThreadPurchase struct {
	ID              int             `gorm:"primary_key" json:"id"`
	ThreadType      string          `gorm:"size:100;not null" json:"thread_type"`
	Supplier        string          `gorm:"size:191" json:"supplier"`
	Color           string          `gorm:"size:100" json:"color"`
	ColorStatus     ColorStatus     `gorm:"size:10;not null;default:RAW" json:"color_status"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitOfMeasure   string          `gorm:"size:50" json:"unit_of_measure"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	TotalCost       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	SalePrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sale_price"`
	MinStockLevel   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"min_stock_level"`
	PurchaseDate    time.Time       `gorm:"not null" json:"purchase_date"`
	Received        bool            `gorm:"not null;default:false" json:"received"`
	ReceivedAt      *time.Time      `json:"received_at"`
	InventoryItemId int             `gorm:"index" json:"inventory_item_id"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewThreadPurchase struct {
	ThreadType    string          `json:"thread_type" binding:"required"`
	Supplier      string          `json:"supplier"`
	Color         string          `json:"color"`
	ColorStatus   ColorStatus     `json:"color_status"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	PurchaseDate  *time.Time      `json:"purchase_date"`
	Notes         string          `json:"notes"`
}

func (input *NewThreadPurchase) validate() error {
	if !input.Quantity.IsPositive() {
		return utils.ValidationErrorf("purchase quantity must be positive")
	}
	if input.UnitPrice.IsNegative() {
		return utils.ValidationErrorf("unit price cannot be negative")
	}
	if input.ColorStatus != "" && input.ColorStatus != ColorStatusRaw && input.ColorStatus != ColorStatusColored {
		return utils.ValidationErrorf("invalid color status %q", input.ColorStatus)
	}
	return nil
}

func CreateThreadPurchase(ctx context.Context, input *NewThreadPurchase) (*ThreadPurchase, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	colorStatus := input.ColorStatus
	if colorStatus == "" {
		colorStatus = ColorStatusRaw
	}
	purchaseDate := time.Now().UTC()
	if input.PurchaseDate != nil {
		purchaseDate = *input.PurchaseDate
	}

	purchase := ThreadPurchase{
		ThreadType:    input.ThreadType,
		Supplier:      input.Supplier,
		Color:         input.Color,
		ColorStatus:   colorStatus,
		Quantity:      input.Quantity,
		UnitOfMeasure: input.UnitOfMeasure,
		UnitPrice:     input.UnitPrice,
		TotalCost:     input.Quantity.Mul(input.UnitPrice),
		SalePrice:     input.SalePrice,
		MinStockLevel: input.MinStockLevel,
		PurchaseDate:  purchaseDate,
		Notes:         input.Notes,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&purchase).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

// ThreadPurchaseReceipt is the result of marking a lot received: the durable
// phase-one record plus the seed task queued for phase two.
type ThreadPurchaseReceipt struct {
	Purchase *ThreadPurchase    `json:"purchase"`
	SeedTask *InventorySeedTask `json:"seed_task"`
}

// MarkThreadPurchaseReceived is phase one of the receipt flow: it flips the
// received flag and enqueues an inventory seed task, committing both together.
// Inventory seeding itself is phase two and runs outside this scope; its
// failure never un-receives the lot.
func MarkThreadPurchaseReceived(ctx context.Context, id int) (*ThreadPurchaseReceipt, error) {
	purchase, err := utils.FetchModel[ThreadPurchase](ctx, id)
	if err != nil {
		return nil, utils.NotFoundErrorf("thread purchase %d not found", id)
	}
	if purchase.Received {
		return nil, utils.ValidationErrorf("thread purchase %d is already received", id)
	}

	db := config.GetDB()
	tx := db.Begin()

	now := time.Now().UTC()
	purchase.Received = true
	purchase.ReceivedAt = &now
	if err := tx.WithContext(ctx).Save(purchase).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	task := InventorySeedTask{
		ThreadPurchaseId: purchase.ID,
		Status:           SeedTaskStatusPending,
	}
	if err := tx.WithContext(ctx).Create(&task).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &ThreadPurchaseReceipt{Purchase: purchase, SeedTask: &task}, nil
}

// DeleteThreadPurchase removes a lot after reversing any seeded inventory.
// Lots still referenced by sales items or dyeing processes cannot be deleted.
func DeleteThreadPurchase(ctx context.Context, id int) (*ThreadPurchase, error) {
	purchase, err := utils.FetchModel[ThreadPurchase](ctx, id)
	if err != nil {
		return nil, utils.NotFoundErrorf("thread purchase %d not found", id)
	}

	db := config.GetDB()
	tx := db.Begin()

	// Reference counts run inside the delete transaction, after the seeded
	// inventory row lock, so they serialize with concurrent order creation
	// against the same item.
	if purchase.InventoryItemId > 0 {
		if _, err := GetInventoryItemForUpdate(tx, ctx, purchase.InventoryItemId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	var salesRefs int64
	if err := tx.WithContext(ctx).Model(&SalesOrderItem{}).
		Where("product_type = ? AND product_id = ?", ProductTypeThread, id).
		Count(&salesRefs).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if salesRefs > 0 {
		tx.Rollback()
		return nil, utils.ReferentialIntegrityErrorf(
			"thread purchase %d is referenced by %d sales order item(s)", id, salesRefs)
	}
	var dyeingRefs int64
	if err := tx.WithContext(ctx).Model(&DyeingProcess{}).
		Where("thread_purchase_id = ?", id).
		Count(&dyeingRefs).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if dyeingRefs > 0 {
		tx.Rollback()
		return nil, utils.ReferentialIntegrityErrorf(
			"thread purchase %d is referenced by %d dyeing process(es)", id, dyeingRefs)
	}

	ref := TransactionReference{Type: ReferenceTypeThreadPurchase, Id: id}
	if _, err := ReverseTransactionsForReference(tx, ctx, ref); err != nil {
		tx.Rollback()
		return nil, err
	}
	if purchase.InventoryItemId > 0 {
		if _, err := DeleteInventoryItemIfUnreferenced(tx, ctx, purchase.InventoryItemId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.WithContext(ctx).
		Where("thread_purchase_id = ?", id).
		Delete(&InventorySeedTask{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&ThreadPurchase{}, id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return purchase, nil
}

func GetThreadPurchase(ctx context.Context, id int) (*ThreadPurchase, error) {
	return utils.FetchModel[ThreadPurchase](ctx, id)
}

func GetThreadPurchases(ctx context.Context, colorStatus *ColorStatus, received *bool) ([]*ThreadPurchase, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if colorStatus != nil && *colorStatus != "" {
		dbCtx = dbCtx.Where("color_status = ?", *colorStatus)
	}
	if received != nil {
		dbCtx = dbCtx.Where("received = ?", *received)
	}
	var purchases []*ThreadPurchase
	if err := dbCtx.Order("id DESC").Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

// SpecKey groups seeded lots of the same thread type and color into one
// inventory row when the single-entry policy is on.
func (p *ThreadPurchase) SpecKey() string {
	return fmt.Sprintf("%s|%s|%s", p.ThreadType, p.Color, p.ColorStatus)
}
