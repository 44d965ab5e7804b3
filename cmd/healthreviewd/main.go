// healthreviewd runs the SRE Health Review platform: the C8 worker pool
// that generates weekly per-service reviews, plus a minimal HTTP health
// surface. Adapted from cmd/tarsy/main.go's bootstrap shape.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sre-platform/healthreview/pkg/codectx"
	"github.com/sre-platform/healthreview/pkg/config"
	"github.com/sre-platform/healthreview/pkg/credentials"
	"github.com/sre-platform/healthreview/pkg/database"
	"github.com/sre-platform/healthreview/pkg/guard"
	"github.com/sre-platform/healthreview/pkg/llmprovider"
	"github.com/sre-platform/healthreview/pkg/orchestrator"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	log.Printf("Starting healthreviewd")
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("connected to PostgreSQL database")

	cipherKey, err := loadCipherKey()
	if err != nil {
		log.Fatalf("Failed to load credential encryption key: %v", err)
	}
	cipher, err := credentials.NewCipher(cipherKey)
	if err != nil {
		log.Fatalf("Failed to initialize credential cipher: %v", err)
	}

	assumer := credentials.NewAWSAssumer(credentials.AWSAssumerConfig{
		Environment:              credentials.AWSEnvironment(getEnv("AWS_ENVIRONMENT", "production")),
		OwnerRoleARN:             os.Getenv("AWS_OWNER_ROLE_ARN"),
		OwnerRoleSessionName:     getEnv("AWS_OWNER_ROLE_SESSION_NAME", "healthreview"),
		OwnerRoleExternalID:      os.Getenv("AWS_OWNER_ROLE_EXTERNAL_ID"),
		OwnerRoleDurationSeconds: 3600,
	})
	credentialsSvc := credentials.NewService(dbClient.Client, cipher, assumer)

	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
	}
	contextStore := codectx.NewStore(dbClient.Client, redisClient)

	reviewProvider := buildProvider()
	guardProvider := buildProvider()
	securityStore := guard.NewStore(dbClient.Client)
	promptGuard := guard.New(guardProvider, cfg.Review, securityStore)
	// promptGuard gates inbound user-facing channels only (spec §4.9);
	// it is intentionally not wired into the review pipeline below.
	_ = promptGuard

	executor := orchestrator.NewDefaultExecutor(dbClient.Client, credentialsSvc, contextStore, reviewProvider, cfg.Review)
	pool := orchestrator.NewPool(dbClient.Client, cfg.Review, executor)
	pool.Start(ctx)
	defer pool.Stop()
	log.Printf("review worker pool started with %d workers", cfg.Review.WorkerCount)

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := database.Health(reqCtx, dbClient.DB())
		poolHealth := pool.Health()

		status := http.StatusOK
		if err != nil || !poolHealth.IsHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"database": dbHealth,
			"pool":     poolHealth,
		})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if !pool.Health().IsHealthy {
			c.Status(http.StatusServiceUnavailable)
			return
		}
		c.Status(http.StatusOK)
	})

	log.Printf("HTTP server listening on :%s", httpPort)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildProvider selects the concrete llmprovider.Provider implementation
// from the environment, mirroring the teacher's LLMProviderRegistry
// selecting between configured backends, simplified to a single
// environment-selected adapter per process.
func buildProvider() llmprovider.Provider {
	switch getEnv("LLM_BACKEND", "anthropic") {
	case "anthropic":
		return llmprovider.NewAnthropicProvider(os.Getenv("ANTHROPIC_API_KEY"), getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"))
	case "grpc":
		addr := getEnv("LLM_PROVIDER_GRPC_ADDR", "localhost:50051")
		p, err := llmprovider.NewGRPCProvider(addr)
		if err != nil {
			log.Fatalf("Failed to connect to LLM provider gRPC backend: %v", err)
		}
		return p
	default:
		log.Fatalf("Unknown LLM_BACKEND: %s", getEnv("LLM_BACKEND", "anthropic"))
		return nil
	}
}

// loadCipherKey reads the 32-byte AES-256 key for the credential cipher
// from CREDENTIAL_ENCRYPTION_KEY, base64-encoded.
func loadCipherKey() ([]byte, error) {
	encoded := os.Getenv("CREDENTIAL_ENCRYPTION_KEY")
	if encoded == "" {
		return nil, os.ErrNotExist
	}
	return base64.StdEncoding.DecodeString(encoded)
}
