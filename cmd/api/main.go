package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kwalter/dungeonloom/internal/config"
	"github.com/kwalter/dungeonloom/internal/handler"
	"github.com/kwalter/dungeonloom/internal/service/ai"
	gameService "github.com/kwalter/dungeonloom/internal/service/game"
	"github.com/kwalter/dungeonloom/internal/service/generation"
	"github.com/kwalter/dungeonloom/internal/service/image"
	"github.com/kwalter/dungeonloom/internal/service/session"
	"github.com/kwalter/dungeonloom/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	systemPrompt := cfg.Game.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = ai.DefaultSystemPrompt
	}
	sessions := session.NewRegistry(systemPrompt)

	var textBackend generation.TextBackend
	if cfg.AI.Enabled() {
		narrator, err := ai.NewNarrator(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize narrator: %v", err)
			log.Println("continuing without text generation - check the ARK_* environment variables")
		} else {
			textBackend = narrator
			log.Println("narrator model initialized successfully")
		}
	} else {
		log.Println("model credentials not configured, text generation disabled")
	}

	var imageBackend generation.ImageBackend
	if cfg.Image.Enabled {
		imageBackend = image.NewClient(image.Config{
			BaseURL: cfg.Image.BaseURL,
			APIKey:  cfg.Image.APIKey,
			Model:   cfg.Image.Model,
			Size:    cfg.Image.Size,
		})
		log.Println("image backend initialized successfully")
	} else {
		log.Println("image credentials not configured, scene illustrations disabled")
	}

	var audioBackend generation.AudioBackend
	if cfg.Speech.Enabled {
		audioBackend = speech.NewSynthesizer(speech.Config{
			Endpoint:    cfg.Speech.Endpoint,
			AppID:       cfg.Speech.AppID,
			AccessToken: cfg.Speech.AccessToken,
			Voice:       cfg.Speech.Voice,
			Speed:       cfg.Speech.Speed,
			Volume:      cfg.Speech.Volume,
		})
		log.Println("speech backend initialized successfully")
	} else {
		log.Println("speech credentials not configured, narration audio disabled")
	}

	gateway := generation.NewGateway(textBackend, imageBackend, audioBackend, cfg.Game.MaxAttempts, cfg.Game.AudioDir)
	gameSvc := gameService.NewService(sessions, gateway, systemPrompt)

	router := handler.NewRouter(gameSvc, cfg.Game.AudioDir)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Dungeon Loom backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
