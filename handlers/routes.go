package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes wires the REST surface onto the router.
func RegisterRoutes(r *gin.Engine) {
	inventory := r.Group("/inventory-items")
	{
		inventory.POST("", CreateInventoryItem)
		inventory.GET("", ListInventoryItems)
		inventory.GET("/:id", GetInventoryItem)
		inventory.DELETE("/:id", DeleteInventoryItem)
		inventory.GET("/:id/transactions", ListInventoryTransactions)
	}

	purchases := r.Group("/thread-purchases")
	{
		purchases.POST("", CreateThreadPurchase)
		purchases.GET("", ListThreadPurchases)
		purchases.GET("/:id", GetThreadPurchase)
		purchases.DELETE("/:id", DeleteThreadPurchase)
		purchases.POST("/:id/receive", ReceiveThreadPurchase)
	}

	dyeing := r.Group("/dyeing-processes")
	{
		dyeing.POST("", CreateDyeingProcess)
		dyeing.GET("", ListDyeingProcesses)
		dyeing.GET("/:id", GetDyeingProcess)
		dyeing.POST("/:id/complete", CompleteDyeingProcess)
	}

	productions := r.Group("/fabric-productions")
	{
		productions.POST("", CreateFabricProduction)
		productions.GET("", ListFabricProductions)
		productions.GET("/:id", GetFabricProduction)
		productions.PUT("/:id", UpdateFabricProduction)
		productions.DELETE("/:id", DeleteFabricProduction)
	}

	orders := r.Group("/sales-orders")
	{
		orders.POST("", CreateSalesOrder)
		orders.GET("", ListSalesOrders)
		orders.GET("/:id", GetSalesOrder)
		orders.DELETE("/:id", DeleteSalesOrder)
		orders.POST("/:id/payments", AddSalesOrderPayment)
	}

	r.PUT("/cheques/:id/status", UpdateChequeStatus)

	// Ops tooling (admin only): verify/repair cached quantities against the ledger.
	r.GET("/internal/ops/ledger/verify", VerifyLedger)
	r.POST("/internal/ops/ledger/repair", RepairLedger)
}
