package router

import (
	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/config"
	"github.com/liherfashion/inventory-admin/internal/app/controller"
	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/middleware"
)

// Controllers groups the handlers mounted by the router
type Controllers struct {
	Auth    *controller.AuthController
	Drafts  *controller.DraftController
	Product *controller.ProductController
	Catalog *controller.CatalogController
	User    *controller.UserController
	Upload  *controller.UploadController
	Stock   *controller.StockController
	Request *controller.RequestController
}

type Router struct {
	controllers    Controllers
	authMiddleware *middleware.AuthMiddleware
	config         *config.Config
}

func NewRouter(controllers Controllers, authMiddleware *middleware.AuthMiddleware, cfg *config.Config) *Router {
	return &Router{
		controllers:    controllers,
		authMiddleware: authMiddleware,
		config:         cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Inventory admin API is running",
		})
	})

	// Variant images are served by the bucket when S3 is used
	if r.config.Storage.Driver == "local" {
		router.Static(r.config.Storage.LocalBaseURL, r.config.Storage.LocalDir)
	}

	ctl := r.controllers
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", ctl.Auth.Login)
			auth.POST("/logout", r.authMiddleware.Authenticate(), ctl.Auth.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), ctl.Auth.GetMe)
		}

		mw := r.authMiddleware
		admin := v1.Group("/admin", mw.Authenticate())
		imageLimit := middleware.LimitBody(r.config.Upload.MaxImageBytes + middleware.MultipartOverhead)
		importLimit := middleware.LimitBody(r.config.Upload.MaxImportBytes + middleware.MultipartOverhead)

		drafts := admin.Group("/drafts", mw.RequireSection(model.SectionInventory))
		{
			drafts.POST("", ctl.Drafts.OpenCreate)
			drafts.GET("/:sid", ctl.Drafts.GetDraft)
			drafts.DELETE("/:sid", ctl.Drafts.Discard)
			drafts.POST("/:sid/variants", ctl.Drafts.AddVariants)
			drafts.PATCH("/:sid/variants/stock", ctl.Drafts.UpdateStock)
			drafts.DELETE("/:sid/variants", ctl.Drafts.RemoveDraft)
			drafts.PATCH("/:sid/existing/:vid", ctl.Drafts.EditExisting)
			drafts.DELETE("/:sid/existing/:vid", ctl.Drafts.DeleteExisting)
			drafts.POST("/:sid/images", imageLimit, ctl.Drafts.UploadImage)
			drafts.GET("/:sid/payload", ctl.Drafts.Payload)
			drafts.POST("/:sid/submit", ctl.Drafts.Submit)
		}

		products := admin.Group("/products", mw.RequireSection(model.SectionInventory))
		{
			products.GET("", ctl.Product.ListProducts)
			products.GET("/summary", ctl.Product.Summary)
			products.GET("/export", ctl.Product.Export)
			products.GET("/:id", ctl.Product.GetProduct)
			products.POST("", ctl.Product.CreateProduct)
			products.PUT("/:id", ctl.Product.UpdateProduct)
			products.DELETE("/:id", ctl.Product.DeleteProduct)
			products.POST("/:id/drafts", ctl.Drafts.OpenEdit)
			products.POST("/:id/variants/apply", ctl.Product.ApplyVariants)
			products.POST("/:id/stock-entries", ctl.Stock.RecordEntry)
			products.GET("/:id/movements", ctl.Stock.ListMovements)
		}

		catalog := admin.Group("", mw.RequireSection(model.SectionInventory))
		{
			catalog.GET("/sizes", ctl.Catalog.ListSizes)
			catalog.POST("/sizes", ctl.Catalog.CreateSize)
			catalog.GET("/colors", ctl.Catalog.ListColors)
			catalog.POST("/colors", ctl.Catalog.CreateColor)
			catalog.GET("/categories", ctl.Catalog.ListCategories)
			catalog.POST("/categories", ctl.Catalog.CreateCategory)
			catalog.POST("/catalog/import", importLimit, ctl.Catalog.ImportCatalog)
			catalog.POST("/uploads/presign", ctl.Upload.Presign)
		}

		users := admin.Group("/users", mw.RequireSection(model.SectionUsers))
		{
			users.GET("", ctl.User.ListUsers)
			users.GET("/email-available", ctl.User.EmailAvailable)
			users.GET("/:id", ctl.User.GetUser)
			users.POST("", ctl.User.CreateUser)
			users.PUT("/:id", ctl.User.UpdateUser)
			users.PATCH("/:id/toggle-active", ctl.User.ToggleActive)
		}

		requests := admin.Group("/requests", mw.RequireSection(model.SectionRequests))
		{
			requests.GET("", ctl.Request.ListRequests)
			requests.POST("", ctl.Request.CreateRequest)
			requests.PATCH("/:id/status", ctl.Request.UpdateStatus)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
