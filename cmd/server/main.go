package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/storyquiz/backend/internal/auth"
	"github.com/storyquiz/backend/internal/config"
	"github.com/storyquiz/backend/internal/database"
	"github.com/storyquiz/backend/internal/generator"
	"github.com/storyquiz/backend/internal/middleware"
	"github.com/storyquiz/backend/internal/quiz"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.JWTSigningKey != "" {
		auth.JWTSecret = []byte(cfg.JWTSigningKey)
	}

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis is optional; without it the service reads straight from
	// Postgres on every request.
	var cache *quiz.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unreachable at %s, caching disabled: %v", cfg.Redis.Addr, err)
		} else {
			cache = quiz.NewCache(rdb, cfg.Redis.CacheTTL)
		}
		cancel()
	}

	// Story generation
	client, err := generator.NewClient(generator.Options{
		Provider:         cfg.Generator.Provider,
		GeminiAPIKey:     cfg.Generator.GeminiAPIKey,
		GeminiModel:      cfg.Generator.GeminiModel,
		GeminiImageModel: cfg.Generator.GeminiImageModel,
		AnthropicAPIKey:  cfg.Generator.AnthropicAPIKey,
		AnthropicModel:   cfg.Generator.AnthropicModel,
	})
	if err != nil {
		log.Fatalf("Failed to configure story generation: %v", err)
	}
	orchestrator := generator.NewOrchestrator(client)

	// Initialize handlers
	authHandler := auth.NewHandler(db)
	quizService := quiz.NewService(quiz.NewStore(db), cache, quiz.NewSessionStore(), orchestrator)
	quizHandler := quiz.NewHandler(quizService)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Quiz routes work for guests too; submissions only persist for
	// authenticated users.
	open := api.PathPrefix("/quiz").Subrouter()
	open.Use(middleware.OptionalAuthMiddleware)
	open.HandleFunc("/generate", quizHandler.Generate).Methods("POST")
	open.HandleFunc("/answer", quizHandler.Answer).Methods("POST")
	open.HandleFunc("/submit", quizHandler.Submit).Methods("POST")
	open.HandleFunc("/image", quizHandler.GenerateImage).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/stats", quizHandler.GetStats).Methods("GET")
	protected.HandleFunc("/attempts", quizHandler.ListAttempts).Methods("GET")
	protected.HandleFunc("/leaderboard", quizHandler.GetLeaderboard).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	log.Printf("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
