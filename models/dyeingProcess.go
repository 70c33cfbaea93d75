package models

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeeshankeerio/pos-application-sub002/config"
	"github.com/zeeshankeerio/pos-application-sub002/utils"
)

// DyeingProcess transforms a raw thread lot into dyed output. It is a pure
// record of the transformation: no ledger row is written until any remainder
// lot it spawns is itself received.
type DyeingProcess struct {
	ID               int                `gorm:"primary_key" json:"id"`
	ThreadPurchaseId int                `gorm:"index;not null" json:"thread_purchase_id"`
	DyeQuantity      decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"dye_quantity"`
	OutputQuantity   decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"output_quantity"`
	Color            string             `gorm:"size:100" json:"color"`
	DyeingCost       decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"dyeing_cost"`
	ResultStatus     DyeingResultStatus `gorm:"size:20;not null;default:PENDING" json:"result_status"`
	StartDate        time.Time          `gorm:"not null" json:"start_date"`
	CompletionDate   *time.Time         `json:"completion_date"`
	RemainderLotId   int                `gorm:"index" json:"remainder_lot_id"`
	Notes            string             `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDyeingProcess struct {
	ThreadPurchaseId int             `json:"thread_purchase_id" binding:"required"`
	DyeQuantity      decimal.Decimal `json:"dye_quantity" binding:"required"`
	Color            string          `json:"color"`
	DyeingCost       decimal.Decimal `json:"dyeing_cost"`
	StartDate        *time.Time      `json:"start_date"`
	Notes            string          `json:"notes"`
}

// CreateDyeingProcess starts a dyeing run against a received raw lot. The dye
// quantity may not exceed what the lot holds.
func CreateDyeingProcess(ctx context.Context, input *NewDyeingProcess) (*DyeingProcess, error) {
	if !input.DyeQuantity.IsPositive() {
		return nil, utils.ValidationErrorf("dye quantity must be positive")
	}

	purchase, err := utils.FetchModel[ThreadPurchase](ctx, input.ThreadPurchaseId)
	if err != nil {
		return nil, utils.NotFoundErrorf("thread purchase %d not found", input.ThreadPurchaseId)
	}
	if purchase.ColorStatus != ColorStatusRaw {
		return nil, utils.ValidationErrorf("thread purchase %d is already colored", purchase.ID)
	}
	if input.DyeQuantity.GreaterThan(purchase.Quantity) {
		return nil, utils.ValidationErrorf(
			"dye quantity %s exceeds lot quantity %s", input.DyeQuantity, purchase.Quantity)
	}

	startDate := time.Now().UTC()
	if input.StartDate != nil {
		startDate = *input.StartDate
	}
	process := DyeingProcess{
		ThreadPurchaseId: input.ThreadPurchaseId,
		DyeQuantity:      input.DyeQuantity,
		Color:            input.Color,
		DyeingCost:       input.DyeingCost,
		ResultStatus:     DyeingResultStatusPending,
		StartDate:        startDate,
		Notes:            input.Notes,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&process).Error; err != nil {
		return nil, err
	}
	return &process, nil
}

type CompleteDyeingProcessInput struct {
	OutputQuantity decimal.Decimal    `json:"output_quantity" binding:"required"`
	ResultStatus   DyeingResultStatus `json:"result_status" binding:"required"`
	CompletionDate *time.Time         `json:"completion_date"`
	// CreateRemainderLot queues the undyed remainder as a fresh thread
	// purchase record; the new lot carries no inventory until received.
	CreateRemainderLot bool   `json:"create_remainder_lot"`
	Notes              string `json:"notes"`
}

// CompleteDyeingProcessResult pairs the finished process with the remainder
// lot created for it, when one was requested.
type CompleteDyeingProcessResult struct {
	Process      *DyeingProcess  `json:"process"`
	RemainderLot *ThreadPurchase `json:"remainder_lot,omitempty"`
}

// CompleteDyeingProcess finishes a run with its real output figures. Output
// may not exceed the dye quantity; the gap between the two is wastage. A
// COMPLETED result gets a completion date, defaulting to now.
func CompleteDyeingProcess(ctx context.Context, id int, input *CompleteDyeingProcessInput) (*CompleteDyeingProcessResult, error) {
	if !input.ResultStatus.Valid() {
		return nil, utils.ValidationErrorf("invalid result status %q", input.ResultStatus)
	}
	if input.OutputQuantity.IsNegative() {
		return nil, utils.ValidationErrorf("output quantity cannot be negative")
	}

	process, err := utils.FetchModel[DyeingProcess](ctx, id)
	if err != nil {
		return nil, utils.NotFoundErrorf("dyeing process %d not found", id)
	}
	if process.ResultStatus == DyeingResultStatusCompleted {
		return nil, utils.ValidationErrorf("dyeing process %d is already completed", id)
	}
	if input.OutputQuantity.GreaterThan(process.DyeQuantity) {
		return nil, utils.ValidationErrorf(
			"output quantity %s exceeds dye quantity %s", input.OutputQuantity, process.DyeQuantity)
	}

	purchase, err := utils.FetchModel[ThreadPurchase](ctx, process.ThreadPurchaseId)
	if err != nil {
		return nil, utils.NotFoundErrorf("thread purchase %d not found", process.ThreadPurchaseId)
	}

	db := config.GetDB()
	tx := db.Begin()

	process.OutputQuantity = input.OutputQuantity
	process.ResultStatus = input.ResultStatus
	if input.Notes != "" {
		process.Notes = input.Notes
	}
	if input.ResultStatus == DyeingResultStatusCompleted {
		completionDate := time.Now().UTC()
		if input.CompletionDate != nil {
			completionDate = *input.CompletionDate
		}
		process.CompletionDate = &completionDate
	}

	result := &CompleteDyeingProcessResult{}

	if input.CreateRemainderLot {
		remainder := purchase.Quantity.Sub(process.DyeQuantity)
		if remainder.IsPositive() {
			lot := ThreadPurchase{
				ThreadType:    purchase.ThreadType,
				Supplier:      purchase.Supplier,
				Color:         purchase.Color,
				ColorStatus:   ColorStatusRaw,
				Quantity:      remainder,
				UnitOfMeasure: purchase.UnitOfMeasure,
				UnitPrice:     purchase.UnitPrice,
				TotalCost:     remainder.Mul(purchase.UnitPrice),
				SalePrice:     purchase.SalePrice,
				MinStockLevel: purchase.MinStockLevel,
				PurchaseDate:  time.Now().UTC(),
				Notes:         fmt.Sprintf("remainder of lot %d after dyeing process %d", purchase.ID, process.ID),
			}
			if err := tx.WithContext(ctx).Create(&lot).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			process.RemainderLotId = lot.ID
			result.RemainderLot = &lot
		}
	}

	if err := tx.WithContext(ctx).Save(process).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	result.Process = process
	return result, nil
}

func GetDyeingProcess(ctx context.Context, id int) (*DyeingProcess, error) {
	return utils.FetchModel[DyeingProcess](ctx, id)
}

func GetDyeingProcesses(ctx context.Context, resultStatus *DyeingResultStatus) ([]*DyeingProcess, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if resultStatus != nil && *resultStatus != "" {
		dbCtx = dbCtx.Where("result_status = ?", *resultStatus)
	}
	var processes []*DyeingProcess
	if err := dbCtx.Order("id DESC").Find(&processes).Error; err != nil {
		return nil, err
	}
	return processes, nil
}
