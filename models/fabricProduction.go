package models

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeeshankeerio/pos-application-sub002/config"
	"github.com/zeeshankeerio/pos-application-sub002/utils"
	"gorm.io/gorm"
)

// FabricProduction is one production batch: threadUsed consumed from a thread
// inventory item, quantityProduced added to a fabric inventory item. It owns
// exactly the ledger rows whose reference is its id; those rows exist only
// while Status is COMPLETED.
type FabricProduction struct {
	ID                int                     `gorm:"primary_key" json:"id"`
	ThreadInventoryId int                     `gorm:"index;not null" json:"thread_inventory_id"`
	FabricInventoryId int                     `gorm:"index" json:"fabric_inventory_id"`
	SourceType        *InventoryReferenceType `gorm:"size:30" json:"source_type"`
	SourceId          int                     `json:"source_id"`
	FabricType        string                  `gorm:"size:100;not null" json:"fabric_type"`
	Dimensions        string                  `gorm:"size:100" json:"dimensions"`
	BatchNumber       string                  `gorm:"size:100" json:"batch_number"`
	QuantityProduced  decimal.Decimal         `gorm:"type:decimal(20,4);not null" json:"quantity_produced"`
	ThreadUsed        decimal.Decimal         `gorm:"type:decimal(20,4);not null" json:"thread_used"`
	ThreadWastage     decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"thread_wastage"`
	UnitOfMeasure     string                  `gorm:"size:50" json:"unit_of_measure"`
	ProductionCost    decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"production_cost"`
	SalePrice         decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"sale_price"`
	Status            ProductionStatus        `gorm:"size:20;not null;default:PENDING" json:"status"`
	ProductionDate    time.Time               `gorm:"not null" json:"production_date"`
	CompletionDate    *time.Time              `json:"completion_date"`
	Notes             string                  `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFabricProduction struct {
	ThreadInventoryId int                     `json:"thread_inventory_id" binding:"required"`
	SourceType        *InventoryReferenceType `json:"source_type"`
	SourceId          int                     `json:"source_id"`
	FabricType        string                  `json:"fabric_type" binding:"required"`
	Dimensions        string                  `json:"dimensions"`
	BatchNumber       string                  `json:"batch_number"`
	QuantityProduced  decimal.Decimal         `json:"quantity_produced" binding:"required"`
	ThreadUsed        decimal.Decimal         `json:"thread_used" binding:"required"`
	ThreadWastage     decimal.Decimal         `json:"thread_wastage"`
	UnitOfMeasure     string                  `json:"unit_of_measure"`
	ProductionCost    decimal.Decimal         `json:"production_cost"`
	SalePrice         decimal.Decimal         `json:"sale_price"`
	Status            ProductionStatus        `json:"status"`
	ProductionDate    *time.Time              `json:"production_date"`
	Notes             string                  `json:"notes"`
	// SingleEntry overrides the consolidation policy for this call;
	// nil falls back to config.SingleInventoryEntry().
	SingleEntry *bool `json:"single_entry"`
}

// UpdateFabricProductionInput carries only the fields being changed.
type UpdateFabricProductionInput struct {
	QuantityProduced *decimal.Decimal  `json:"quantity_produced"`
	ThreadUsed       *decimal.Decimal  `json:"thread_used"`
	ThreadWastage    *decimal.Decimal  `json:"thread_wastage"`
	ProductionCost   *decimal.Decimal  `json:"production_cost"`
	SalePrice        *decimal.Decimal  `json:"sale_price"`
	Status           *ProductionStatus `json:"status"`
	Notes            *string           `json:"notes"`
	SingleEntry      *bool             `json:"single_entry"`
}

// FabricProductionResult is the orchestrator's success payload: the persisted
// record plus any non-fatal warnings gathered along the way.
type FabricProductionResult struct {
	Production *FabricProduction `json:"production"`
	ThreadItem *InventoryItem    `json:"thread_item"`
	FabricItem *InventoryItem    `json:"fabric_item"`
	Warnings   []string          `json:"warnings,omitempty"`
}

func (input *NewFabricProduction) validate() error {
	if !input.ThreadUsed.IsPositive() {
		return utils.ValidationErrorf("thread used must be positive")
	}
	if !input.QuantityProduced.IsPositive() {
		return utils.ValidationErrorf("quantity produced must be positive")
	}
	if input.ThreadWastage.IsNegative() {
		return utils.ValidationErrorf("thread wastage cannot be negative")
	}
	if input.Status != "" && !input.Status.Valid() {
		return utils.ValidationErrorf("invalid production status %q", input.Status)
	}
	return nil
}

func (input *NewFabricProduction) specKey() string {
	return fmt.Sprintf("%s|%s", input.FabricType, input.Dimensions)
}

func (input *NewFabricProduction) singleEntry() bool {
	if input.SingleEntry != nil {
		return *input.SingleEntry
	}
	return config.SingleInventoryEntry()
}

// CreateFabricProduction creates a production batch. When the batch is created
// COMPLETED it also posts the ledger pair (fabric inbound, thread outbound);
// any failure aborts the whole scope, leaving no partial ledger rows.
func CreateFabricProduction(ctx context.Context, input *NewFabricProduction) (*FabricProductionResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = ProductionStatusCompleted
	}
	productionDate := time.Now().UTC()
	if input.ProductionDate != nil {
		productionDate = *input.ProductionDate
	}

	db := config.GetDB()
	tx := db.Begin()

	threadItem, err := GetInventoryItemForUpdate(tx, ctx, input.ThreadInventoryId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if threadItem.ProductType != ProductTypeThread {
		tx.Rollback()
		return nil, utils.ValidationErrorf("inventory item %d is not a thread item", threadItem.ID)
	}
	if threadItem.CurrentQuantity.LessThan(input.ThreadUsed) {
		tx.Rollback()
		return nil, utils.InsufficientInventoryErrorf(
			"thread item %d has %s, production needs %s",
			threadItem.ID, threadItem.CurrentQuantity, input.ThreadUsed)
	}

	production := FabricProduction{
		ThreadInventoryId: input.ThreadInventoryId,
		SourceType:        input.SourceType,
		SourceId:          input.SourceId,
		FabricType:        input.FabricType,
		Dimensions:        input.Dimensions,
		BatchNumber:       input.BatchNumber,
		QuantityProduced:  input.QuantityProduced,
		ThreadUsed:        input.ThreadUsed,
		ThreadWastage:     input.ThreadWastage,
		UnitOfMeasure:     input.UnitOfMeasure,
		ProductionCost:    input.ProductionCost,
		SalePrice:         input.SalePrice,
		Status:            status,
		ProductionDate:    productionDate,
		Notes:             input.Notes,
	}

	result := &FabricProductionResult{ThreadItem: threadItem}

	if status == ProductionStatusCompleted {
		fabricItem, err := FindOrCreateInventoryItem(tx, ctx, NewInventoryItem{
			ProductType:   ProductTypeFabric,
			ItemName:      input.FabricType,
			SpecKey:       input.specKey(),
			UnitOfMeasure: input.UnitOfMeasure,
			CostPerUnit:   input.ProductionCost,
			SalePrice:     input.SalePrice,
		}, input.singleEntry())
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		production.FabricInventoryId = fabricItem.ID
		now := productionDate
		production.CompletionDate = &now

		if err := tx.WithContext(ctx).Create(&production).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		warnings, err := postProductionTransactions(tx, ctx, &production, fabricItem, threadItem)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		result.FabricItem = fabricItem
		result.Warnings = warnings
	} else {
		if err := tx.WithContext(ctx).Create(&production).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	result.Production = &production
	return result, nil
}

// postProductionTransactions writes the initial ledger pair for a completed
// batch: fabric inbound first, thread outbound second.
func postProductionTransactions(tx *gorm.DB, ctx context.Context, production *FabricProduction, fabricItem, threadItem *InventoryItem) ([]string, error) {
	ref := TransactionReference{Type: ReferenceTypeFabricProduction, Id: production.ID}

	var warnings []string
	_, _, err := ApplyInventoryTransaction(tx, ctx, fabricItem, production.QuantityProduced,
		InventoryTransactionTypeProduction, ref, ApplyOptions{
			UnitCost:        production.ProductionCost,
			TransactionDate: production.ProductionDate,
			Notes:           fmt.Sprintf("fabric produced: %s %s", production.FabricType, production.Dimensions),
		})
	if err != nil {
		return nil, err
	}

	_, warning, err := ApplyInventoryTransaction(tx, ctx, threadItem, production.ThreadUsed.Neg(),
		InventoryTransactionTypeProduction, ref, ApplyOptions{
			UnitCost:        threadItem.CostPerUnit,
			TransactionDate: production.ProductionDate,
			Notes:           fmt.Sprintf("thread consumed by production %d", production.ID),
		})
	if err != nil {
		return nil, err
	}
	if warning != "" {
		warnings = append(warnings, warning)
	}
	return warnings, nil
}
