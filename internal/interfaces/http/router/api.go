package router

import (
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers groups the API handlers mounted by RegisterAPI
type Handlers struct {
	System    *handler.SystemHandler
	Ledger    *handler.LedgerHandler
	Document  *handler.DocumentHandler
	Product   *handler.ProductHandler
	Profile   *handler.ProfileHandler
	Billing   *handler.BillingHandler
	Sync      *handler.SyncHandler
	ScanLimit gin.HandlerFunc // optional, guards draft-from-image extraction
}

// APIGroups builds the domain route groups of the ledger API
func APIGroups(h Handlers) []*DomainGroup {
	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)
	system.GET("/ping", h.System.Ping)

	ledgers := NewDomainGroup("ledgers", "/ledgers")
	ledgers.GET("", h.Ledger.List).
		GET("/lookup", h.Ledger.Lookup).
		GET("/balance", h.Ledger.Balance).
		GET("/verify", h.Ledger.VerifyAll).
		POST("/payments", h.Ledger.RecordPayment).
		POST("/postings/cancel", h.Ledger.CancelPosting).
		POST("/adjustments", h.Ledger.AdjustBalance).
		GET("/:id", h.Ledger.Get).
		GET("/:id/verify", h.Ledger.Verify).
		PUT("/:id/name", h.Ledger.Rename).
		PUT("/:id/phone", h.Ledger.UpdatePhone).
		POST("/:id/appointments", h.Ledger.ScheduleAppointment).
		DELETE("/:id/postings/:posting_id", h.Ledger.CancelPostingByID)

	scan := []gin.HandlerFunc{h.Document.Scan}
	if h.ScanLimit != nil {
		scan = append([]gin.HandlerFunc{h.ScanLimit}, scan...)
	}
	documents := NewDomainGroup("documents", "/documents")
	documents.POST("", h.Document.Create).
		POST("/scan", scan...).
		POST("/finalize", h.Document.FinalizeNew).
		GET("", h.Document.List).
		GET("/:id", h.Document.Get).
		PUT("/:id", h.Document.Update).
		POST("/:id/finalize", h.Document.Finalize).
		DELETE("/:id", h.Document.Delete).
		POST("/:id/restore", h.Document.Restore)

	products := NewDomainGroup("products", "/products")
	products.POST("", h.Product.Create).
		GET("", h.Product.List).
		GET("/:id", h.Product.Get).
		PUT("/:id/stock", h.Product.SetStock)

	profile := NewDomainGroup("profile", "/profile")
	profile.GET("", h.Profile.Get).
		PUT("", h.Profile.Update)

	billing := NewDomainGroup("billing", "/billing")
	billing.GET("/state", h.Billing.GetState).
		POST("/settle", h.Billing.Settle)

	sync := NewDomainGroup("sync", "/sync")
	sync.GET("/status", h.Sync.Status).
		POST("/trigger", h.Sync.Trigger)

	connectivity := NewDomainGroup("connectivity", "/connectivity")
	connectivity.GET("", h.Sync.GetConnectivity).
		PUT("", h.Sync.SetConnectivity)

	return []*DomainGroup{system, ledgers, documents, products, profile, billing, sync, connectivity}
}

// RegisterAPI registers every API group on r
func RegisterAPI(r *Router, h Handlers) *Router {
	for _, g := range APIGroups(h) {
		r.Register(g)
	}
	return r
}
