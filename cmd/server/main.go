// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"

	"github.com/slugzin/leadflow-backend/internal/config"
	"github.com/slugzin/leadflow-backend/internal/db"
	"github.com/slugzin/leadflow-backend/internal/dispatch"
	"github.com/slugzin/leadflow-backend/internal/gateway"
	"github.com/slugzin/leadflow-backend/internal/handler"
	"github.com/slugzin/leadflow-backend/internal/pairing"
	"github.com/slugzin/leadflow-backend/internal/quota"
	"github.com/slugzin/leadflow-backend/internal/queue"
	"github.com/slugzin/leadflow-backend/internal/reconcile"
	"github.com/slugzin/leadflow-backend/internal/redisdb"
	"github.com/slugzin/leadflow-backend/internal/repository"
)

func main() {
	cfg := config.MustLoad()

	database := db.Init(cfg.Database)

	redisConn := redisdb.DeclareRedisDataBase(redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisConn.Close()

	amqpConn, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer amqpConn.Close()

	sendQueue, err := queue.NewAMQPQueue(amqpConn, cfg.AMQP.Queue)
	if err != nil {
		log.Fatal("Failed to declare send queue:", err)
	}

	connectionRepo := &repository.ConnectionRepository{DB: database}
	campaignRepo := &repository.CampaignRepository{DB: database}
	sendRepo := &repository.ScheduledSendRepository{DB: database}
	recipientRepo := &repository.RecipientRepository{DB: database}
	quotaRepo := &repository.QuotaRepository{DB: database}

	gatewayClient := gateway.NewHTTPClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey)

	quotaGate := &quota.Gate{
		Accounts:    quotaRepo,
		Snapshot:    redisConn,
		Connections: connectionRepo,
	}

	pairingManager := pairing.NewManager(gatewayClient, connectionRepo, pairing.Config{
		RefreshInterval: cfg.Pairing.RefreshInterval,
		ExpiryInterval:  cfg.Pairing.ExpiryInterval,
		RequestTimeout:  pairing.DefaultConfig().RequestTimeout,
	})

	reconciler := &reconcile.Reconciler{
		Gateway:     gatewayClient,
		Connections: connectionRepo,
		Sends:       sendRepo,
		Recipients:  recipientRepo,
		Pairing:     pairingManager,
	}

	orchestrator := &dispatch.Orchestrator{
		CampaignRepo:   campaignRepo,
		SendRepo:       sendRepo,
		RecipientRepo:  recipientRepo,
		ConnectionRepo: connectionRepo,
		Quota:          quotaGate,
		Queue:          sendQueue,
	}

	connectionHandler := &handler.ConnectionHandler{
		Connections: connectionRepo,
		Quota:       quotaGate,
		Gateway:     gatewayClient,
		Reconciler:  reconciler,
	}
	pairingHandler := &handler.PairingHandler{
		Manager:     pairingManager,
		Connections: connectionRepo,
	}
	campaignHandler := &handler.CampaignHandler{
		Orchestrator: orchestrator,
		Campaigns:    campaignRepo,
		Sends:        sendRepo,
	}
	usageHandler := &handler.UsageHandler{
		Quota:      quotaGate,
		Recipients: recipientRepo,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Connection routes
	r.Post("/connections", connectionHandler.CreateConnection)
	r.Get("/connections", connectionHandler.ListConnections)
	r.Delete("/connections/{id}", connectionHandler.DeleteConnection)
	r.Post("/connections/{id}/sync", connectionHandler.SyncConnection)
	r.Post("/sync", connectionHandler.SyncAll)

	// Pairing routes
	r.Post("/connections/{id}/pairing", pairingHandler.OpenPairing)
	r.Get("/connections/{id}/pairing", pairingHandler.GetPairing)
	r.Post("/connections/{id}/pairing/regenerate", pairingHandler.RegeneratePairing)
	r.Delete("/connections/{id}/pairing", pairingHandler.ClosePairing)

	// Campaign routes
	r.Post("/campaigns/dispatch", campaignHandler.DispatchCampaign)
	r.Get("/campaigns", campaignHandler.ListCampaigns)
	r.Get("/campaigns/{id}", campaignHandler.GetCampaign)
	r.Delete("/campaigns/{id}", campaignHandler.DeleteCampaign)

	// Leads and usage
	r.Get("/recipients", usageHandler.ListRecipients)
	r.Get("/usage", usageHandler.GetUsage)
	r.Post("/usage/refresh", usageHandler.RefreshUsage)

	log.Println("🚀 Server running on", cfg.HTTPServer.Address)
	log.Fatal(http.ListenAndServe(cfg.HTTPServer.Address, r))
}
