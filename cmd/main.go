package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/Vovarama1992/go-utils/logger"

	"github.com/arogya-labs/voicedx/internal/capture"
	"github.com/arogya-labs/voicedx/internal/config"
	"github.com/arogya-labs/voicedx/internal/delivery"
	"github.com/arogya-labs/voicedx/internal/diagnose"
	"github.com/arogya-labs/voicedx/internal/domain"
	"github.com/arogya-labs/voicedx/internal/infra"
	"github.com/arogya-labs/voicedx/internal/notify"
	"github.com/arogya-labs/voicedx/internal/pipeline"
	"github.com/arogya-labs/voicedx/internal/speech"
	"github.com/arogya-labs/voicedx/internal/transcribe"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {

	// =========================================================================
	// ENV / DB INIT
	// =========================================================================

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("db ping failed: %v", err)
	}
	defer db.Close()

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	// =========================================================================
	// INFRASTRUCTURE
	// =========================================================================

	s3Client, err := infra.NewS3Client(cfg)
	if err != nil {
		log.Fatalf("failed to init s3: %v", err)
	}

	notifyInfra := notify.NewInfra(cfg.OpsBotToken, cfg.OpsChatID)
	notifier := notify.NewService(notifyInfra)

	// =========================================================================
	// REPOSITORIES
	// =========================================================================

	diagnosisRepo := infra.NewDiagnosisRepo(db)

	// =========================================================================
	// CLIENTS (STT / VISION / TTS)
	// =========================================================================

	sttClient := transcribe.NewDeepgramClient(cfg.TranscriptionAPIKey)
	visionClient := diagnose.NewOpenAIClient(cfg.InferenceAPIKey)
	ttsClient := speech.NewElevenLabsClient(cfg.SynthesisAPIKey, cfg.SynthesisVoiceID)
	localTTS := speech.NewEspeakPlayer()

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	s3Service := domain.NewS3Service(s3Client)
	diagnosisService := domain.NewDiagnosisService(diagnosisRepo, notifier)
	speechService := speech.NewService(ttsClient, localTTS)

	pipe := pipeline.New(
		sttClient,
		visionClient,
		speechService,
		diagnosisService,
		s3Service,
		notifier,
	)

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// HANDLERS
	diagnosisHandler := delivery.NewDiagnosisHandler(pipe, diagnosisService, zl)
	captureHandler := delivery.NewCaptureHandler(pipe, capture.NewFFmpegDevice())

	// ROUTES
	delivery.RegisterRoutes(r, diagnosisHandler, captureHandler)

	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("pong"))
	})

	// =========================================================================
	// START SERVER
	// =========================================================================

	addr := ":" + cfg.Port
	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "listening at " + addr,
		Service: "voicedx",
	})

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
