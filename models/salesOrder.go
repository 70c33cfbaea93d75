package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zeeshankeerio/pos-application-sub002/config"
	"github.com/zeeshankeerio/pos-application-sub002/utils"
	"gorm.io/gorm"
)

// SalesOrder heads a multi-item sale. PaymentStatus is a cache over the
// payment rows; RecomputePaymentStatus is the source of truth.
type SalesOrder struct {
	ID              int              `gorm:"primary_key" json:"id"`
	OrderNumber     string           `gorm:"size:100;uniqueIndex;not null" json:"order_number"`
	CustomerName    string           `gorm:"size:191" json:"customer_name"`
	CustomerContact string           `gorm:"size:100" json:"customer_contact"`
	OrderDate       time.Time        `gorm:"not null" json:"order_date"`
	Discount        decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"discount"`
	Tax             decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"tax"`
	TotalSale       decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"total_sale"`
	PaymentStatus   PaymentStatus    `gorm:"size:10;not null;default:PENDING" json:"payment_status"`
	Notes           string           `gorm:"type:text" json:"notes"`
	Items           []SalesOrderItem `gorm:"foreignKey:SalesOrderId" json:"items"`
	Payments        []Payment        `gorm:"foreignKey:SalesOrderId" json:"payments"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// SalesOrderItem is a tagged product reference: ProductType says which table
// ProductId points into, InventoryItemId names the ledger row decremented.
type SalesOrderItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	SalesOrderId    int             `gorm:"index;not null" json:"sales_order_id"`
	ProductType     ProductType     `gorm:"size:10;not null" json:"product_type"`
	ProductId       int             `gorm:"index;not null" json:"product_id"`
	InventoryItemId int             `gorm:"index;not null" json:"inventory_item_id"`
	QuantitySold    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_sold"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Discount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	Tax             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"subtotal"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type Payment struct {
	ID              int                `gorm:"primary_key" json:"id"`
	SalesOrderId    int                `gorm:"index;not null" json:"sales_order_id"`
	Amount          decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentMode     PaymentMode        `gorm:"size:10;not null" json:"payment_mode"`
	PaymentDate     time.Time          `gorm:"not null" json:"payment_date"`
	ReferenceNumber string             `gorm:"size:100" json:"reference_number"`
	Notes           string             `gorm:"type:text" json:"notes"`
	Cheque          *ChequeTransaction `gorm:"foreignKey:PaymentId" json:"cheque,omitempty"`
	CreatedAt       time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

type ChequeTransaction struct {
	ID           int          `gorm:"primary_key" json:"id"`
	PaymentId    int          `gorm:"index;not null" json:"payment_id"`
	ChequeNumber string       `gorm:"size:100;not null" json:"cheque_number"`
	BankName     string       `gorm:"size:191" json:"bank_name"`
	ChequeDate   time.Time    `json:"cheque_date"`
	Status       ChequeStatus `gorm:"size:10;not null;default:PENDING" json:"status"`
	ClearedDate  *time.Time   `json:"cleared_date"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSalesOrderItem struct {
	ProductType     ProductType     `json:"product_type" binding:"required"`
	ProductId       int             `json:"product_id" binding:"required"`
	InventoryItemId int             `json:"inventory_item_id" binding:"required"`
	QuantitySold    decimal.Decimal `json:"quantity_sold" binding:"required"`
	UnitPrice       decimal.Decimal `json:"unit_price" binding:"required"`
	Discount        decimal.Decimal `json:"discount"`
	Tax             decimal.Decimal `json:"tax"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

type NewChequeDetails struct {
	ChequeNumber string     `json:"cheque_number" binding:"required"`
	BankName     string     `json:"bank_name"`
	ChequeDate   *time.Time `json:"cheque_date"`
}

type NewSalesOrder struct {
	OrderNumber     string              `json:"order_number"`
	CustomerName    string              `json:"customer_name"`
	CustomerContact string              `json:"customer_contact"`
	OrderDate       *time.Time          `json:"order_date"`
	Discount        decimal.Decimal     `json:"discount"`
	Tax             decimal.Decimal     `json:"tax"`
	TotalSale       decimal.Decimal     `json:"total_sale" binding:"required"`
	Items           []NewSalesOrderItem `json:"items" binding:"required"`
	PaymentAmount   decimal.Decimal     `json:"payment_amount"`
	PaymentMode     PaymentMode         `json:"payment_mode"`
	ChequeDetails   *NewChequeDetails   `json:"cheque_details"`
	// AllowBelowMinStock suppresses the low-stock warning for this order.
	AllowBelowMinStock bool   `json:"allow_below_min_stock"`
	Notes              string `json:"notes"`
}

type SalesOrderResult struct {
	Order    *SalesOrder `json:"order"`
	Warnings []string    `json:"warnings,omitempty"`
}

func (input *NewSalesOrder) validate() error {
	if len(input.Items) == 0 {
		return utils.ValidationErrorf("sales order needs at least one item")
	}
	seen := map[string]bool{}
	for i, item := range input.Items {
		if !item.ProductType.Valid() {
			return utils.ValidationErrorf("item %d: invalid product type %q", i, item.ProductType)
		}
		if !item.QuantitySold.IsPositive() {
			return utils.ValidationErrorf("item %d: quantity sold must be positive", i)
		}
		if !item.UnitPrice.IsPositive() {
			return utils.ValidationErrorf("item %d: unit price must be positive", i)
		}
		key := fmt.Sprintf("%s:%d:%d", item.ProductType, item.ProductId, item.InventoryItemId)
		if seen[key] {
			return utils.ValidationErrorf("item %d: duplicate product %s", i, key)
		}
		seen[key] = true
	}
	if input.PaymentAmount.IsNegative() {
		return utils.ValidationErrorf("payment amount cannot be negative")
	}
	if input.PaymentAmount.IsPositive() {
		if !input.PaymentMode.Valid() {
			return utils.ValidationErrorf("invalid payment mode %q", input.PaymentMode)
		}
		if input.PaymentMode == PaymentModeCheque && input.ChequeDetails == nil {
			return utils.ValidationErrorf("cheque payment needs cheque details")
		}
	}
	return nil
}

// reconcileAmounts recomputes each item subtotal and the order total against
// the client-supplied figures. Item drift beyond the item tolerance is quietly
// overwritten with the computed value; order-total drift beyond the order
// tolerance is fatal.
func (input *NewSalesOrder) reconcileAmounts() error {
	tol := config.TolerancePolicy()

	orderSum := decimal.Zero
	for i := range input.Items {
		item := &input.Items[i]
		computed := utils.CalculateItemSubtotal(item.QuantitySold, item.UnitPrice, item.Discount, item.Tax)
		if computed.Sub(item.Subtotal).Abs().GreaterThan(tol.ItemSubtotal) {
			item.Subtotal = computed
		}
		orderSum = orderSum.Add(item.Subtotal)
	}

	computedTotal := orderSum.
		Sub(utils.CalculateDiscountAmount(orderSum, input.Discount)).
		Add(utils.CalculateTaxAmount(orderSum.Sub(utils.CalculateDiscountAmount(orderSum, input.Discount)), input.Tax))
	if computedTotal.Sub(input.TotalSale).Abs().GreaterThan(tol.OrderTotal) {
		return utils.ArithmeticMismatchErrorf(
			"order total %s does not match computed %s", input.TotalSale, computedTotal)
	}
	return nil
}

// CreateSalesOrder submits a multi-item sale: every item locks its inventory
// row, passes the sufficiency check and records a negative SALES transaction,
// then payment sub-records are created. Any failure rolls back the whole order
// including items already processed in this call.
func CreateSalesOrder(ctx context.Context, input *NewSalesOrder) (*SalesOrderResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := input.reconcileAmounts(); err != nil {
		return nil, err
	}

	orderNumber := input.OrderNumber
	if orderNumber == "" {
		orderNumber = "SO-" + strings.ToUpper(uuid.NewString()[:8])
	}
	orderDate := time.Now().UTC()
	if input.OrderDate != nil {
		orderDate = *input.OrderDate
	}

	order := SalesOrder{
		OrderNumber:     orderNumber,
		CustomerName:    input.CustomerName,
		CustomerContact: input.CustomerContact,
		OrderDate:       orderDate,
		Discount:        input.Discount,
		Tax:             input.Tax,
		TotalSale:       input.TotalSale,
		PaymentStatus:   PaymentStatusPending,
		Notes:           input.Notes,
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Create(&order).Error; err != nil {
		tx.Rollback()
		var dup *mysql.MySQLError
		if errors.As(err, &dup) && dup.Number == 1062 {
			return nil, utils.ConflictErrorf("order number %s already exists", orderNumber)
		}
		return nil, err
	}
	ref := TransactionReference{Type: ReferenceTypeSalesOrder, Id: order.ID}

	hardBlock := config.LowStockHardBlock()
	var warnings []string
	for i := range input.Items {
		item := &input.Items[i]

		invItem, err := GetInventoryItemForUpdate(tx, ctx, item.InventoryItemId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if invItem.ProductType != item.ProductType {
			tx.Rollback()
			return nil, utils.ValidationErrorf(
				"inventory item %d is %s, order item says %s",
				invItem.ID, invItem.ProductType, item.ProductType)
		}
		if invItem.CurrentQuantity.LessThan(item.QuantitySold) {
			tx.Rollback()
			return nil, utils.InsufficientInventoryErrorf(
				"inventory item %d has %s, order needs %s",
				invItem.ID, invItem.CurrentQuantity, item.QuantitySold)
		}

		_, warning, err := ApplyInventoryTransaction(tx, ctx, invItem, item.QuantitySold.Neg(),
			InventoryTransactionTypeSales, ref, ApplyOptions{
				UnitCost:           invItem.CostPerUnit,
				TransactionDate:    orderDate,
				Notes:              fmt.Sprintf("sold on order %s", order.OrderNumber),
				AllowBelowMinStock: input.AllowBelowMinStock,
			})
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if warning != "" {
			if hardBlock {
				tx.Rollback()
				return nil, utils.InsufficientInventoryErrorf("%s", warning)
			}
			warnings = append(warnings, warning)
		}

		orderItem := SalesOrderItem{
			SalesOrderId:    order.ID,
			ProductType:     item.ProductType,
			ProductId:       item.ProductId,
			InventoryItemId: item.InventoryItemId,
			QuantitySold:    item.QuantitySold,
			UnitPrice:       item.UnitPrice,
			Discount:        item.Discount,
			Tax:             item.Tax,
			Subtotal:        item.Subtotal,
		}
		if err := tx.WithContext(ctx).Create(&orderItem).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		order.Items = append(order.Items, orderItem)
	}

	if input.PaymentAmount.IsPositive() {
		payment, err := createPayment(tx, ctx, order.ID, &NewPayment{
			Amount:        input.PaymentAmount,
			PaymentMode:   input.PaymentMode,
			ChequeDetails: input.ChequeDetails,
		})
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		order.Payments = append(order.Payments, *payment)
	}

	status, err := RecomputePaymentStatus(tx, ctx, &order)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	order.PaymentStatus = status

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &SalesOrderResult{Order: &order, Warnings: warnings}, nil
}

type NewPayment struct {
	Amount          decimal.Decimal   `json:"amount" binding:"required"`
	PaymentMode     PaymentMode       `json:"payment_mode" binding:"required"`
	PaymentDate     *time.Time        `json:"payment_date"`
	ReferenceNumber string            `json:"reference_number"`
	Notes           string            `json:"notes"`
	ChequeDetails   *NewChequeDetails `json:"cheque_details"`
}

func createPayment(tx *gorm.DB, ctx context.Context, orderId int, input *NewPayment) (*Payment, error) {
	paymentDate := time.Now().UTC()
	if input.PaymentDate != nil {
		paymentDate = *input.PaymentDate
	}
	payment := Payment{
		SalesOrderId:    orderId,
		Amount:          input.Amount,
		PaymentMode:     input.PaymentMode,
		PaymentDate:     paymentDate,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}

	if input.PaymentMode == PaymentModeCheque {
		if input.ChequeDetails == nil {
			return nil, utils.ValidationErrorf("cheque payment needs cheque details")
		}
		chequeDate := paymentDate
		if input.ChequeDetails.ChequeDate != nil {
			chequeDate = *input.ChequeDetails.ChequeDate
		}
		cheque := ChequeTransaction{
			PaymentId:    payment.ID,
			ChequeNumber: input.ChequeDetails.ChequeNumber,
			BankName:     input.ChequeDetails.BankName,
			ChequeDate:   chequeDate,
			Status:       ChequeStatusPending,
		}
		if err := tx.WithContext(ctx).Create(&cheque).Error; err != nil {
			return nil, err
		}
		payment.Cheque = &cheque
	}
	return &payment, nil
}

// AddSalesOrderPayment records a payment that arrives after the sale and
// refreshes the cached payment status.
func AddSalesOrderPayment(ctx context.Context, orderId int, input *NewPayment) (*SalesOrder, error) {
	if !input.Amount.IsPositive() {
		return nil, utils.ValidationErrorf("payment amount must be positive")
	}
	if !input.PaymentMode.Valid() {
		return nil, utils.ValidationErrorf("invalid payment mode %q", input.PaymentMode)
	}

	order, err := utils.FetchModel[SalesOrder](ctx, orderId)
	if err != nil {
		return nil, utils.NotFoundErrorf("sales order %d not found", orderId)
	}

	db := config.GetDB()
	tx := db.Begin()

	if _, err := createPayment(tx, ctx, order.ID, input); err != nil {
		tx.Rollback()
		return nil, err
	}
	status, err := RecomputePaymentStatus(tx, ctx, order)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	order.PaymentStatus = status

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetSalesOrder(ctx, orderId)
}

// RecomputePaymentStatus derives the payment status from the payment rows and
// writes it onto the order, overwriting whatever the cached column held.
// Payments backed by a bounced cheque do not count.
func RecomputePaymentStatus(tx *gorm.DB, ctx context.Context, order *SalesOrder) (PaymentStatus, error) {
	var paid decimal.NullDecimal
	err := tx.WithContext(ctx).Model(&Payment{}).
		Select("SUM(payments.amount)").
		Joins("LEFT JOIN cheque_transactions ON cheque_transactions.payment_id = payments.id").
		Where("payments.sales_order_id = ?", order.ID).
		Where("cheque_transactions.id IS NULL OR cheque_transactions.status <> ?", ChequeStatusBounced).
		Scan(&paid).Error
	if err != nil {
		return "", err
	}

	status := PaymentStatusPending
	if paid.Valid && paid.Decimal.IsPositive() {
		if paid.Decimal.GreaterThanOrEqual(order.TotalSale) {
			status = PaymentStatusPaid
		} else {
			status = PaymentStatusPartial
		}
	}

	if err := tx.WithContext(ctx).Model(&SalesOrder{}).
		Where("id = ?", order.ID).
		Update("payment_status", status).Error; err != nil {
		return "", err
	}
	return status, nil
}

// UpdateChequeStatus moves a cheque to CLEARED or BOUNCED and refreshes the
// owning order's payment status.
func UpdateChequeStatus(ctx context.Context, chequeId int, status ChequeStatus) (*ChequeTransaction, error) {
	if !status.Valid() {
		return nil, utils.ValidationErrorf("invalid cheque status %q", status)
	}
	cheque, err := utils.FetchModel[ChequeTransaction](ctx, chequeId)
	if err != nil {
		return nil, utils.NotFoundErrorf("cheque %d not found", chequeId)
	}

	db := config.GetDB()
	tx := db.Begin()

	cheque.Status = status
	if status == ChequeStatusCleared {
		now := time.Now().UTC()
		cheque.ClearedDate = &now
	}
	if err := tx.WithContext(ctx).Save(cheque).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	var payment Payment
	if err := tx.WithContext(ctx).First(&payment, cheque.PaymentId).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	var order SalesOrder
	if err := tx.WithContext(ctx).First(&order, payment.SalesOrderId).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := RecomputePaymentStatus(tx, ctx, &order); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return cheque, nil
}

// DeleteSalesOrder reverses every SALES transaction the order created, then
// removes cheques, payments, items and the order itself in one scope.
func DeleteSalesOrder(ctx context.Context, id int) (*SalesOrder, error) {
	order, err := utils.FetchModel[SalesOrder](ctx, id, "Items", "Payments")
	if err != nil {
		return nil, utils.NotFoundErrorf("sales order %d not found", id)
	}

	db := config.GetDB()
	tx := db.Begin()

	ref := TransactionReference{Type: ReferenceTypeSalesOrder, Id: id}
	if _, err := ReverseTransactionsForReference(tx, ctx, ref); err != nil {
		tx.Rollback()
		return nil, err
	}

	paymentIds := make([]int, 0, len(order.Payments))
	for _, p := range order.Payments {
		paymentIds = append(paymentIds, p.ID)
	}
	if len(paymentIds) > 0 {
		if err := tx.WithContext(ctx).
			Where("payment_id IN ?", paymentIds).
			Delete(&ChequeTransaction{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.WithContext(ctx).Where("sales_order_id = ?", id).Delete(&Payment{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("sales_order_id = ?", id).Delete(&SalesOrderItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&SalesOrder{}, id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return order, nil
}

// GetSalesOrder reloads the order with its items and payments. The payment
// status returned is recomputed, never the raw cached column.
func GetSalesOrder(ctx context.Context, id int) (*SalesOrder, error) {
	order, err := utils.FetchModel[SalesOrder](ctx, id, "Items", "Payments", "Payments.Cheque")
	if err != nil {
		return nil, utils.NotFoundErrorf("sales order %d not found", id)
	}
	status, err := RecomputePaymentStatus(config.GetDB(), ctx, order)
	if err != nil {
		return nil, err
	}
	order.PaymentStatus = status
	return order, nil
}

func GetSalesOrders(ctx context.Context, paymentStatus *PaymentStatus) ([]*SalesOrder, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Items")
	if paymentStatus != nil && *paymentStatus != "" {
		dbCtx = dbCtx.Where("payment_status = ?", *paymentStatus)
	}
	var orders []*SalesOrder
	if err := dbCtx.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
