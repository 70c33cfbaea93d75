package models

import (
	"log"

	"github.com/zeeshankeerio/pos-application-sub002/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&InventoryItem{}, &InventoryTransaction{},
		&ThreadPurchase{}, &DyeingProcess{},
		&FabricProduction{},
		&SalesOrder{}, &SalesOrderItem{}, &Payment{}, &ChequeTransaction{},
		&InventorySeedTask{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
