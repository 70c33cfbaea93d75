package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/zeeshankeerio/pos-application-sub002/config"
	"github.com/zeeshankeerio/pos-application-sub002/models"
	"github.com/zeeshankeerio/pos-application-sub002/workflow"
)

// Seeds a development database with a received thread lot, a completed
// production run and a paid sales order, end to end through the real flows.
func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	purchase, err := models.CreateThreadPurchase(ctx, &models.NewThreadPurchase{
		ThreadType:    "Cotton 40s",
		Supplier:      "Dev Supplier",
		Color:         "White",
		Quantity:      decimal.NewFromInt(100),
		UnitOfMeasure: "kg",
		UnitPrice:     decimal.NewFromInt(50),
		SalePrice:     decimal.NewFromInt(80),
	})
	if err != nil {
		fail("create thread purchase", err)
	}
	receipt, err := models.MarkThreadPurchaseReceived(ctx, purchase.ID)
	if err != nil {
		fail("mark received", err)
	}
	threadItem, err := workflow.ProcessInventorySeedTask(ctx, receipt.SeedTask.ID)
	if err != nil {
		fail("seed inventory", err)
	}
	fmt.Printf("thread lot %d received into inventory item %d (qty=%s)\n",
		purchase.ID, threadItem.ID, threadItem.CurrentQuantity)

	production, err := models.CreateFabricProduction(ctx, &models.NewFabricProduction{
		ThreadInventoryId: threadItem.ID,
		FabricType:        "Plain Weave",
		Dimensions:        "60x90",
		QuantityProduced:  decimal.NewFromInt(38),
		ThreadUsed:        decimal.NewFromInt(40),
		ThreadWastage:     decimal.NewFromInt(2),
		UnitOfMeasure:     "m",
		ProductionCost:    decimal.NewFromInt(60),
		SalePrice:         decimal.NewFromInt(200),
	})
	if err != nil {
		fail("create production", err)
	}
	fmt.Printf("production %d: fabric item %d (qty=%s)\n",
		production.Production.ID, production.FabricItem.ID, production.FabricItem.CurrentQuantity)

	order, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		CustomerName: "Dev Customer",
		TotalSale:    decimal.NewFromInt(2000),
		Items: []models.NewSalesOrderItem{
			{
				ProductType:     models.ProductTypeThread,
				ProductId:       purchase.ID,
				InventoryItemId: threadItem.ID,
				QuantitySold:    decimal.NewFromInt(10),
				UnitPrice:       decimal.NewFromInt(100),
				Subtotal:        decimal.NewFromInt(1000),
			},
			{
				ProductType:     models.ProductTypeFabric,
				ProductId:       production.Production.ID,
				InventoryItemId: production.FabricItem.ID,
				QuantitySold:    decimal.NewFromInt(5),
				UnitPrice:       decimal.NewFromInt(200),
				Subtotal:        decimal.NewFromInt(1000),
			},
		},
		PaymentAmount: decimal.NewFromInt(2000),
		PaymentMode:   models.PaymentModeCash,
	})
	if err != nil {
		fail("create sales order", err)
	}
	fmt.Printf("sales order %s created, payment status %s\n",
		order.Order.OrderNumber, order.Order.PaymentStatus)
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
