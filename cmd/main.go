package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"chatmitra/backend/internal/api/handler"
	"chatmitra/backend/internal/chathub"
	"chatmitra/backend/internal/config"
	"chatmitra/backend/internal/session"
	"chatmitra/backend/internal/storage"
)

// setupSessions connects to Redis for the session store. The in-memory
// store keeps single-node deployments working when Redis is unreachable.
func setupSessions(cfg config.Config) session.Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("Warning: Redis unreachable (%v), using in-memory session store", err)
		return session.NewMemoryStore(cfg.SessionTTL)
	}

	log.Println("Redis connection established.")
	return session.NewRedisStore(rdb, cfg.SessionTTL)
}

// setupArchive opens PostgreSQL for the room archive when a DSN is
// configured.
func setupArchive(cfg config.Config) storage.Archive {
	if cfg.PostgresDSN == "" {
		log.Println("No Postgres DSN configured, room archive disabled.")
		return storage.Noop{}
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	archive, err := storage.NewService(db)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if stale, err := archive.ActiveRoomIDs(); err == nil && len(stale) > 0 {
		// Rooms left open by a previous process. Live state is gone, so
		// just close them out in the archive.
		log.Printf("Closing %d stale rooms from a previous run.", len(stale))
		for _, roomID := range stale {
			if err := archive.CloseRoom(roomID, "ended"); err != nil {
				log.Printf("Failed to close stale room %s: %v", roomID, err)
			}
		}
	}

	log.Println("Database connection established, migrations complete.")
	return archive
}

func main() {
	log.Println("Starting ChatMitra Backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	sessions := setupSessions(cfg)
	archive := setupArchive(cfg)

	hub := chathub.NewHub(sessions, archive, chathub.Options{
		FallbackDelay:    cfg.FallbackDelay,
		ThrottleInterval: cfg.ThrottleInterval,
	})
	go hub.Run(context.Background())

	r := gin.Default()
	h := handler.NewHandler(hub, cfg.JWTSecret)

	r.GET("/healthz", h.Healthz)
	r.GET("/stats", h.GetStats)
	r.GET("/anonid", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)

	server := &http.Server{
		Addr:           cfg.Addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Printf("Listening on %s", cfg.Addr)
	log.Fatal(server.ListenAndServe())
}
