package config

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SingleInventoryEntry is the default consolidation policy for fabric
// production: repeated batches of the same fabric type/dimension merge into
// one inventory row instead of creating a new row per batch.
//
// Set via env:
// - SINGLE_INVENTORY_ENTRY=true
func SingleInventoryEntry() bool {
	return boolFromEnv("SINGLE_INVENTORY_ENTRY")
}

// LowStockHardBlock flips the sales path from warn-only to a hard failure
// when a sale would leave an item below its minimum stock level. The
// non-negativity guarantee is unaffected either way.
//
// Set via env:
// - LOW_STOCK_HARD_BLOCK=true
func LowStockHardBlock() bool {
	return boolFromEnv("LOW_STOCK_HARD_BLOCK")
}

// ReconciliationTolerances is the named policy for reconciling client-supplied
// money figures against server-computed ones. The legacy system used ad hoc
// literals; these defaults preserve its observable behavior but are
// configurable rather than assumed intentional.
type ReconciliationTolerances struct {
	// ItemSubtotal: per-item absolute difference beyond which the computed
	// subtotal silently overwrites the client value; smaller drift stands.
	ItemSubtotal decimal.Decimal
	// OrderTotal: order-level absolute difference beyond which the whole
	// submission is rejected as an arithmetic mismatch.
	OrderTotal decimal.Decimal
}

// TolerancePolicy reads the reconciliation tolerances.
//
// Env overrides (optional):
// - RECON_ITEM_TOLERANCE (default 0.01)
// - RECON_ORDER_TOLERANCE (default 0.50)
func TolerancePolicy() ReconciliationTolerances {
	return ReconciliationTolerances{
		ItemSubtotal: decimalFromEnv("RECON_ITEM_TOLERANCE", "0.01"),
		OrderTotal:   decimalFromEnv("RECON_ORDER_TOLERANCE", "0.50"),
	}
}

func decimalFromEnv(key string, def string) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		d, _ = decimal.NewFromString(def)
	}
	return d
}
