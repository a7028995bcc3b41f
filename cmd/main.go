package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/joho/godotenv"

	"prizewheel/internal/config"
	"prizewheel/internal/handlers"
	"prizewheel/internal/notify"
	"prizewheel/internal/otp"
	"prizewheel/internal/services"
	"prizewheel/internal/store"
)

func main() {
	// 1. Load configuration (.env is optional).
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Skipping .env: %v", err)
	}
	cfg := config.Load()

	defer logger.Init("prizewheel", true, false, os.Stderr).Close()

	// 2. Open the event store.
	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	// 3. Wire the verification collaborator. Only the mock transport ships;
	// a real email/SMS sender plugs in behind otp.Service.
	var codes otp.Service
	if cfg.Auth.MockVerificationMode {
		codes = otp.NewMockService(time.Duration(cfg.Auth.OTPExpiryMinutes) * time.Minute)
	} else {
		log.Fatal("No real verification transport configured; set MOCK_VERIFICATION_MODE=true")
	}

	// 4. Initialize the allocation services.
	prizeService := services.NewPrizeService(st, notify.NewLogNotifier(), cfg.Wheel.AllocMaxRetries, cfg.Wheel.Segments)
	claimService := services.NewClaimService(st)
	registrationService := services.NewRegistrationService(st, codes)

	// 5. Initialize the HTTP handler and router.
	httpHandler := handlers.NewHTTPHandler(prizeService, claimService, registrationService, cfg)

	r := gin.Default()
	httpHandler.RegisterRoutes(r)

	// 6. Run the server.
	logger.Infof("Server starting on http://localhost:%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
