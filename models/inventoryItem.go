package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeeshankeerio/pos-application-sub002/config"
	"github.com/zeeshankeerio/pos-application-sub002/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryItem is the materialized view of one item's ledger. CurrentQuantity
// is only ever written through ApplyInventoryTransaction; replaying the item's
// InventoryTransactions in creation order must reproduce it exactly.
type InventoryItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	ProductType     ProductType     `gorm:"size:10;not null;index" json:"product_type"`
	ItemName        string          `gorm:"size:255;not null" json:"item_name"`
	SpecKey         string          `gorm:"size:255;index" json:"spec_key"`
	CurrentQuantity decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_quantity"`
	UnitOfMeasure   string          `gorm:"size:50" json:"unit_of_measure"`
	CostPerUnit     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_per_unit"`
	SalePrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sale_price"`
	MinStockLevel   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"min_stock_level"`
	LastRestocked   *time.Time      `json:"last_restocked"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewInventoryItem seeds a fresh inventory row. Quantity always starts at
// zero; stock arrives only through ledger transactions.
type NewInventoryItem struct {
	ProductType   ProductType     `json:"product_type" binding:"required"`
	ItemName      string          `json:"item_name" binding:"required"`
	SpecKey       string          `json:"spec_key"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	CostPerUnit   decimal.Decimal `json:"cost_per_unit"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
}

// GetInventoryItemForUpdate reads one inventory row with an exclusive row lock
// for the duration of the caller's transaction. On MySQL this is
// SELECT ... FOR UPDATE; on sqlite (tests) the dialect has no row locks and the
// compare-and-swap guard in ApplyInventoryTransaction serializes instead.
func GetInventoryItemForUpdate(tx *gorm.DB, ctx context.Context, id int) (*InventoryItem, error) {
	dbCtx := tx.WithContext(ctx)
	if tx.Dialector.Name() == "mysql" {
		dbCtx = dbCtx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item InventoryItem
	if err := dbCtx.First(&item, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundErrorf("inventory item %d not found", id)
		}
		return nil, err
	}
	return &item, nil
}

// FindOrCreateInventoryItem resolves the inventory row for a product type and
// spec key. With singleEntry the lookup consolidates repeated batches of the
// same spec into one row; otherwise a new row is created every time.
func FindOrCreateInventoryItem(tx *gorm.DB, ctx context.Context, seed NewInventoryItem, singleEntry bool) (*InventoryItem, error) {
	if !seed.ProductType.Valid() {
		return nil, utils.ValidationErrorf("invalid product type %q", seed.ProductType)
	}

	if singleEntry && seed.SpecKey != "" {
		var existing InventoryItem
		err := tx.WithContext(ctx).
			Where("product_type = ? AND spec_key = ?", seed.ProductType, seed.SpecKey).
			First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	item := InventoryItem{
		ProductType:   seed.ProductType,
		ItemName:      seed.ItemName,
		SpecKey:       seed.SpecKey,
		UnitOfMeasure: seed.UnitOfMeasure,
		CostPerUnit:   seed.CostPerUnit,
		SalePrice:     seed.SalePrice,
		MinStockLevel: seed.MinStockLevel,
	}
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteInventoryItemIfUnreferenced removes an inventory row only when no
// ledger transaction still points at it. Returns whether the row was deleted.
func DeleteInventoryItemIfUnreferenced(tx *gorm.DB, ctx context.Context, id int) (bool, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(&InventoryTransaction{}).
		Where("inventory_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := tx.WithContext(ctx).Delete(&InventoryItem{}, id).Error; err != nil {
		return false, err
	}
	return true, nil
}

func GetInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {
	return utils.FetchModel[InventoryItem](ctx, id)
}

func GetInventoryItems(ctx context.Context, productType *ProductType) ([]*InventoryItem, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if productType != nil && *productType != "" {
		dbCtx = dbCtx.Where("product_type = ?", *productType)
	}
	var results []*InventoryItem
	if err := dbCtx.Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// CreateInventoryItem registers an empty inventory row ahead of any receipts.
func CreateInventoryItem(ctx context.Context, input *NewInventoryItem) (*InventoryItem, error) {
	if !input.ProductType.Valid() {
		return nil, utils.ValidationErrorf("invalid product type %q", input.ProductType)
	}
	db := config.GetDB()
	item := InventoryItem{
		ProductType:   input.ProductType,
		ItemName:      input.ItemName,
		SpecKey:       input.SpecKey,
		UnitOfMeasure: input.UnitOfMeasure,
		CostPerUnit:   input.CostPerUnit,
		SalePrice:     input.SalePrice,
		MinStockLevel: input.MinStockLevel,
	}
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteInventoryItem is the explicit delete path; it refuses while any
// transaction still references the row.
func DeleteInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {
	db := config.GetDB()
	item, err := utils.FetchModel[InventoryItem](ctx, id)
	if err != nil {
		return nil, err
	}
	tx := db.Begin()
	deleted, err := DeleteInventoryItemIfUnreferenced(tx, ctx, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !deleted {
		tx.Rollback()
		return nil, utils.ReferentialIntegrityErrorf("inventory item %d still has ledger transactions", id)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return item, nil
}
