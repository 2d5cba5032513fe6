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

	"github.com/nekotachi/cyber-idol/backend/internal/config"
	"github.com/nekotachi/cyber-idol/backend/internal/handler"
	"github.com/nekotachi/cyber-idol/backend/internal/handler/ws"
	"github.com/nekotachi/cyber-idol/backend/internal/model/character"
	"github.com/nekotachi/cyber-idol/backend/internal/service/asr"
	chatservice "github.com/nekotachi/cyber-idol/backend/internal/service/chat"
	"github.com/nekotachi/cyber-idol/backend/internal/service/llm"
	"github.com/nekotachi/cyber-idol/backend/internal/service/transcode"
	"github.com/nekotachi/cyber-idol/backend/internal/service/tts"
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

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// 临时目录与合成音频输出目录需要在启动时就绪。
	for _, dir := range []string{cfg.Audio.TmpDir, cfg.Audio.StaticTmpDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	presets := character.NewMemoryStore(character.LoadDir(cfg.Audio.ModelsDir()))
	log.Printf("loaded %d character presets", len(presets.List()))

	transcriber, err := asr.New(asr.Options{
		Provider:       cfg.ASR.Provider,
		BaiduAppID:     cfg.ASR.BaiduAppID,
		BaiduAPIKey:    cfg.ASR.BaiduAPIKey,
		BaiduSecretKey: cfg.ASR.BaiduSecretKey,
		OpenAIAPIKey:   cfg.ASR.OpenAIAPIKey,
		WhisperModel:   cfg.ASR.WhisperModel,
		SampleRate:     cfg.Audio.SampleRate,
	})
	if err != nil {
		log.Fatalf("failed to initialize ASR client: %v", err)
	}
	log.Printf("ASR provider: %s", cfg.ASR.Provider)

	llmService, err := llm.NewService(ctx, cfg.LLM)
	if err != nil {
		log.Fatalf("failed to initialize LLM service: %v", err)
	}

	ttsClient := tts.NewClient(cfg.TTS.APIURL, presets, time.Duration(cfg.TTS.Timeout)*time.Second)
	transcoder := transcode.NewFFmpeg(cfg.Audio.FFmpegPath)
	memory := chatservice.NewMemory(llm.DefaultSystemPrompt)

	wsHandler := ws.NewHandler(transcriber, llmService, ttsClient, transcoder, presets, memory, cfg.Audio)

	router := handler.NewRouter(presets, wsHandler, cfg.Audio)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Cyber Idol backend listening on %s", serverCfg.Addr)
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
