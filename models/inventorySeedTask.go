package models

import "time"

// InventorySeedTask is the phase-two retry log of the receipt flow: one row
// per received thread purchase still waiting for its inventory seeding.
type InventorySeedTask struct {
	ID               int            `gorm:"primary_key" json:"id"`
	ThreadPurchaseId int            `gorm:"index;not null" json:"thread_purchase_id"`
	Status           SeedTaskStatus `gorm:"size:10;not null;default:PENDING" json:"status"`
	Attempts         int            `gorm:"not null;default:0" json:"attempts"`
	LastError        string         `gorm:"type:text" json:"last_error"`
	ProcessedAt      *time.Time     `json:"processed_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
