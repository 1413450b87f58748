package main

import (
	"log"
	"log/slog"
	"time"

	"outreach-gateway/internal/api"
	"outreach-gateway/internal/auth"
	"outreach-gateway/internal/config"
	"outreach-gateway/internal/database"
	"outreach-gateway/internal/events"
	"outreach-gateway/internal/middleware"
	"outreach-gateway/internal/places"
	"outreach-gateway/internal/store"
	"outreach-gateway/internal/tenant"
	"outreach-gateway/internal/webhook"
	"outreach-gateway/internal/whatsapp"
	"outreach-gateway/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	database.InitDB(cfg)

	contacts := store.NewContactStore(database.DB)
	messages := store.NewMessageStore(database.DB)

	publisher := events.NewNoop(slog.Default())
	if cfg.AMQPURL != "" {
		p, err := events.New(cfg.AMQPURL, cfg.AMQPExchange, slog.Default())
		if err != nil {
			log.Fatalf("Failed to connect to AMQP broker: %v", err)
		}
		publisher = p
		defer publisher.Close()
	}

	hub := ws.NewHub()
	go hub.Run()

	whatsappClient := whatsapp.NewClient(cfg)
	placesClient := places.NewClient(cfg.PlacesAPIKey)
	jwtManager := auth.NewManager(cfg.JWTSecret, "outreach-gateway", 24*time.Hour)
	resolver := tenant.NewResolver(cfg.TenantHosts, cfg.DefaultTenant, cfg.IsProduction())

	webhookHandler := webhook.NewHandler(cfg, contacts, messages, hub, publisher)
	dispatchHandler := api.NewDispatchHandler(whatsappClient, contacts, messages, hub, publisher)
	conversationHandler := api.NewConversationHandler(contacts, messages)
	contactHandler := api.NewContactHandler(contacts, whatsappClient)
	placesHandler := api.NewPlacesHandler(placesClient)

	var limiter *middleware.RateLimiter
	if cfg.RedisAddr != "" {
		limiter = middleware.NewRateLimiter(cfg.RedisAddr, cfg.RedisPassword, 60, time.Minute)
	}

	// The public sentinel tenant is only reachable outside production.
	allowPublic := !cfg.IsProduction()

	r := gin.Default()
	r.Use(middleware.RequestID())

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Webhook Routes (provider-authenticated via shared secret, host-scoped)
	webhookGroup := r.Group("/webhook")
	webhookGroup.Use(limiter.Middleware(), tenant.Middleware(resolver, allowPublic))
	{
		webhookGroup.GET("", webhookHandler.VerifyWebhook)
		webhookGroup.POST("", webhookHandler.HandleInbound)
	}

	// Dashboard API Routes (session-authenticated, tenant-scoped)
	apiGroup := r.Group("/api")
	apiGroup.Use(limiter.Middleware(), auth.Middleware(jwtManager), tenant.Middleware(resolver, allowPublic))
	{
		apiGroup.POST("/send", dispatchHandler.Send)

		apiGroup.GET("/conversations", conversationHandler.ListConversations)
		apiGroup.GET("/conversations/:id/messages", conversationHandler.ListMessages)
		apiGroup.DELETE("/conversations/:id/messages", conversationHandler.ClearConversation)

		apiGroup.POST("/contacts", contactHandler.CreateContact)
		apiGroup.PUT("/contacts/:id", contactHandler.UpdateContact)
		apiGroup.DELETE("/contacts/:id", contactHandler.DeleteContact)
		apiGroup.GET("/contacts/export", contactHandler.ExportContacts)
		apiGroup.POST("/contacts/check", contactHandler.CheckNumbers)
		apiGroup.GET("/profile/:phone", contactHandler.GetProfile)

		apiGroup.GET("/places/search", placesHandler.Search)
		apiGroup.GET("/places/:placeId", placesHandler.Details)
	}

	// Live inbox updates
	wsGroup := r.Group("/ws")
	wsGroup.Use(auth.Middleware(jwtManager), tenant.Middleware(resolver, allowPublic))
	wsGroup.GET("", func(c *gin.Context) {
		tenantID, _ := tenant.FromContext(c)
		hub.ServeWs(tenantID, c.Writer, c.Request)
	})

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
