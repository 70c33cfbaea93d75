package models

type ProductType string

const (
	ProductTypeThread ProductType = "THREAD"
	ProductTypeFabric ProductType = "FABRIC"
)

func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeThread, ProductTypeFabric:
		return true
	}
	return false
}

type InventoryTransactionType string

const (
	InventoryTransactionTypeProduction InventoryTransactionType = "PRODUCTION"
	InventoryTransactionTypeSales      InventoryTransactionType = "SALES"
	InventoryTransactionTypeAdjustment InventoryTransactionType = "ADJUSTMENT"
)

func (t InventoryTransactionType) Valid() bool {
	switch t {
	case InventoryTransactionTypeProduction, InventoryTransactionTypeSales, InventoryTransactionTypeAdjustment:
		return true
	}
	return false
}

// InventoryReferenceType is the polymorphic link from a ledger row to the
// record that originated it.
type InventoryReferenceType string

const (
	ReferenceTypeThreadPurchase   InventoryReferenceType = "THREAD_PURCHASE"
	ReferenceTypeDyeingProcess    InventoryReferenceType = "DYEING_PROCESS"
	ReferenceTypeFabricProduction InventoryReferenceType = "FABRIC_PRODUCTION"
	ReferenceTypeSalesOrder       InventoryReferenceType = "SALES_ORDER"
)

type ColorStatus string

const (
	ColorStatusRaw     ColorStatus = "RAW"
	ColorStatusColored ColorStatus = "COLORED"
)

type DyeingResultStatus string

const (
	DyeingResultStatusPending   DyeingResultStatus = "PENDING"
	DyeingResultStatusPartial   DyeingResultStatus = "PARTIAL"
	DyeingResultStatusFailed    DyeingResultStatus = "FAILED"
	DyeingResultStatusCompleted DyeingResultStatus = "COMPLETED"
)

func (s DyeingResultStatus) Valid() bool {
	switch s {
	case DyeingResultStatusPending, DyeingResultStatusPartial, DyeingResultStatusFailed, DyeingResultStatusCompleted:
		return true
	}
	return false
}

type ProductionStatus string

const (
	ProductionStatusPending    ProductionStatus = "PENDING"
	ProductionStatusInProgress ProductionStatus = "IN_PROGRESS"
	ProductionStatusCompleted  ProductionStatus = "COMPLETED"
	ProductionStatusCancelled  ProductionStatus = "CANCELLED"
)

func (s ProductionStatus) Valid() bool {
	switch s {
	case ProductionStatusPending, ProductionStatusInProgress, ProductionStatusCompleted, ProductionStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo encodes the production state machine:
// PENDING -> IN_PROGRESS -> {COMPLETED, CANCELLED}. COMPLETED is terminal.
func (s ProductionStatus) CanTransitionTo(next ProductionStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case ProductionStatusPending:
		return next == ProductionStatusInProgress || next == ProductionStatusCompleted || next == ProductionStatusCancelled
	case ProductionStatusInProgress:
		return next == ProductionStatusCompleted || next == ProductionStatusCancelled
	}
	return false
}

type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "CASH"
	PaymentModeCheque PaymentMode = "CHEQUE"
	PaymentModeOnline PaymentMode = "ONLINE"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCash, PaymentModeCheque, PaymentModeOnline:
		return true
	}
	return false
}

// PaymentStatus is derived from the payment ledger (see RecomputePaymentStatus);
// the stored column is only a cache.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

type ChequeStatus string

const (
	ChequeStatusPending ChequeStatus = "PENDING"
	ChequeStatusCleared ChequeStatus = "CLEARED"
	ChequeStatusBounced ChequeStatus = "BOUNCED"
)

func (s ChequeStatus) Valid() bool {
	switch s {
	case ChequeStatusPending, ChequeStatusCleared, ChequeStatusBounced:
		return true
	}
	return false
}

type SeedTaskStatus string

const (
	SeedTaskStatusPending SeedTaskStatus = "PENDING"
	SeedTaskStatusDone    SeedTaskStatus = "DONE"
	SeedTaskStatusFailed  SeedTaskStatus = "FAILED"
)
