package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"mmpipeline/internal/audio"
	"mmpipeline/internal/config"
	"mmpipeline/internal/emit"
	"mmpipeline/internal/inference/emotion/onnx"
	vadonnx "mmpipeline/internal/inference/vad/onnx"
	"mmpipeline/internal/inference/stt/localwhisper"
	"mmpipeline/internal/observe"
	"mmpipeline/internal/pipeline"
	"mmpipeline/internal/session"
	"mmpipeline/internal/transport/wschannel"
	"mmpipeline/internal/video"
)

const shutdownBudget = 2 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	metrics, metricsShutdown := setupMetrics(cfg, logger)
	defer metricsShutdown(context.Background())

	registry := session.NewRegistry()
	httpSink := emit.NewHTTPSink(cfg.EventForwardBaseURL, cfg.APIKey, cfg.HTTPRequestTimeout, logger)

	col := pipeline.Collaborators{
		Detector:   &video.StubDetector{Label: "object", Confidence: 0.5},
		Recognizer: buildRecognizer(cfg, logger),
		Classifier: buildClassifier(cfg, logger),
		NewVAD:     func() audio.VadDetector { return buildVAD(cfg, logger) },
		HTTPSink:   httpSink,
		Metrics:    metrics,
		Logger:     logger,
	}

	handler := wschannel.NewHandler(func(correlationID string, ch *wschannel.Channel, conn *websocket.Conn) {
		handleSession(ctx, registry, cfg, col, correlationID, ch, conn, logger)
	}, logger)

	mux := http.NewServeMux()
	mux.Handle("/stream", handler)

	srv := &http.Server{Addr: cfg.ServerHost + ":" + strconv.Itoa(cfg.ServerPort), Handler: mux}
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownBudget)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	registry.Shutdown()

	logger.Info("shutdown complete")
}

// handleSession runs one accepted WebSocket connection end to end: creates
// the session, wires a StreamSession over it, serves inbound frames, and
// tears everything down when the connection or process ends.
func handleSession(parentCtx context.Context, registry *session.Registry, cfg *config.Config, col pipeline.Collaborators, correlationID string, ch *wschannel.Channel, conn *websocket.Conn, logger *slog.Logger) {
	defer ch.Close()

	sess := registry.Create(correlationID)
	sess.AttachChannel(ch)
	defer registry.Close(correlationID)

	stream := pipeline.New(cfg, sess, func() session.DataChannel { return sess.Channel() }, col)

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	go func() {
		_ = stream.Run(ctx)
	}()

	dispatch := wschannel.Dispatch{
		OnVideo: func(f wschannel.InboundVideoFrame) { stream.OnVideoFrame(f.Data, f.Width, f.Height) },
		OnAudio: func(f wschannel.InboundAudioFrame) { stream.OnAudioFrame(f.PCM16, f.SampleRate, f.Channels) },
	}
	if err := wschannel.ServeConn(ctx, conn, dispatch); err != nil && ctx.Err() == nil {
		logger.Info("connection ended", "correlation_id", correlationID, "error", err)
	}

	stream.OnEnd()
}

func buildRecognizer(cfg *config.Config, logger *slog.Logger) audio.SpeechRecognizer {
	if cfg.WhisperServerURL == "" {
		logger.Warn("no whisper server configured, using stub recognizer")
		return &audio.StubRecognizer{Delay: 200 * time.Millisecond, Text: "", Confidence: 0}
	}
	return localwhisper.New(cfg.WhisperServerURL)
}

func buildClassifier(cfg *config.Config, logger *slog.Logger) audio.EmotionClassifier {
	if cfg.EmotionModelPath == "" {
		return &audio.StubEmotionClassifier{Label: "neutral", Score: 0}
	}
	engine, err := onnx.New(cfg.EmotionModelPath)
	if err != nil {
		logger.Warn("onnx emotion engine unavailable, falling back to stub", "error", err)
		return &audio.StubEmotionClassifier{Label: "neutral", Score: 0}
	}
	return engine
}

func buildVAD(cfg *config.Config, logger *slog.Logger) audio.VadDetector {
	if cfg.VADModelPath == "" {
		return audio.NewStubVAD(50)
	}
	threshold := 0.5 - float64(cfg.VADAggressiveness)*0.1
	engine, err := vadonnx.New(cfg.VADModelPath, threshold)
	if err != nil {
		logger.Warn("onnx vad engine unavailable, falling back to stub", "error", err)
		return audio.NewStubVAD(50)
	}
	return engine
}

func setupMetrics(cfg *config.Config, logger *slog.Logger) (*observe.Metrics, func(context.Context) error) {
	exporter, err := prometheus.New()
	if err != nil {
		logger.Warn("prometheus exporter init failed, metrics disabled", "error", err)
		return observe.DefaultMetrics(), func(context.Context) error { return nil }
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	metrics, err := observe.NewMetrics(provider)
	if err != nil {
		logger.Warn("metrics init failed", "error", err)
		return observe.DefaultMetrics(), func(context.Context) error { return provider.Shutdown(context.Background()) }
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server error", "error", err)
		}
	}()

	return metrics, provider.Shutdown
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
