package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ryom080502-dev/OnseiGijiroku/internal/backend"
	"github.com/ryom080502-dev/OnseiGijiroku/internal/config"
	"github.com/ryom080502-dev/OnseiGijiroku/internal/merge"
	"github.com/ryom080502-dev/OnseiGijiroku/internal/metrics"
	"github.com/ryom080502-dev/OnseiGijiroku/internal/session"
	"github.com/ryom080502-dev/OnseiGijiroku/internal/upload"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "onsei-gijiroku"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	filePath := flag.String("file", "", "Path to the audio or video recording")
	createdDate := flag.String("date", time.Now().Format("2006-01-02"), "Meeting date")
	creator := flag.String("creator", "", "Minutes creator")
	customer := flag.String("customer", "", "Customer name")
	place := flag.String("place", "", "Meeting place")
	exportFormat := flag.String("export", "", "Also export the minutes as 'word' or 'pdf'")
	outDir := flag.String("out", ".", "Directory for exported documents")
	metricsOut := flag.String("metrics-out", "", "Write Prometheus metrics to this file on exit")
	flag.Parse()

	// .env carries the session token issued by the login screen
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Client starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	if *filePath == "" {
		logger.Error("No input file given, use -file")
		os.Exit(1)
	}

	token := os.Getenv("GIJIROKU_TOKEN")
	if token == "" {
		logger.Error("GIJIROKU_TOKEN is not set; log in and export the issued session token")
		os.Exit(1)
	}

	// Session state: the guard is the only writer, teardown redirects the
	// user to re-authenticate.
	store := session.NewStore(func() {
		fmt.Fprintln(os.Stderr, "セッションの有効期限が切れました。再度ログインしてください。")
	})
	store.Establish(token, os.Getenv("GIJIROKU_DISPLAY_NAME"))

	guard := session.NewGuard(store, &http.Client{}, logger)

	// Initialize Prometheus metrics. The process is one-shot, so instead of a
	// scrape endpoint the registry is dumped to a textfile on exit, where the
	// node exporter's textfile collector can pick it up.
	appMetrics := metrics.NewMetrics()
	dumpMetrics := func() {
		if *metricsOut == "" {
			return
		}
		if err := prometheus.WriteToTextfile(*metricsOut, prometheus.DefaultGatherer); err != nil {
			logger.Warn("Failed to write metrics file",
				slog.String("path", *metricsOut),
				slog.String("error", err.Error()),
			)
		}
	}

	client, err := backend.NewClient(backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		UserAgent: cfg.Backend.UserAgent,
	}, guard, logger)
	if err != nil {
		logger.Error("Failed to create backend client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	orchestrator, err := upload.NewOrchestrator(upload.Config{
		DirectLimitBytes: cfg.Backend.GetDirectLimitBytes(),
		SegmentSeconds:   cfg.Audio.SegmentDuration,
		ProcessTimeout:   cfg.Backend.GetProcessTimeout(),
		SegmentedMode:    cfg.Audio.IsSegmentedMode(),
	}, client, appMetrics, logger)
	if err != nil {
		logger.Error("Failed to create upload orchestrator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	coordinator := merge.NewCoordinator(client, appMetrics, logger)

	file, err := upload.NewFile(*filePath)
	if err != nil {
		logger.Error("Cannot read input file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	meta := backend.Metadata{
		CreatedDate:  *createdDate,
		Creator:      *creator,
		CustomerName: *customer,
		MeetingPlace: *place,
	}

	logger.Info("Configuration loaded",
		slog.String("backend", cfg.Backend.BaseURL),
		slog.Int("direct_limit_mb", cfg.Backend.DirectLimitMB),
		slog.Float64("segment_duration", cfg.Audio.SegmentDuration),
		slog.String("upload_mode", cfg.Audio.UploadMode),
		slog.String("file", file.Name),
		slog.Int64("size_bytes", file.SizeBytes),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sink := &consoleSink{out: os.Stderr}

	results, err := orchestrator.Upload(ctx, file, meta, sink)
	if err != nil {
		dumpMetrics()
		if errors.Is(err, session.ErrSessionExpired) {
			os.Exit(1)
		}
		logger.Error("Upload failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	final, err := coordinator.Merge(ctx, results)
	if err != nil {
		dumpMetrics()
		if !errors.Is(err, session.ErrSessionExpired) {
			logger.Error("Merge failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}

	title := final.DynamicTitle
	if title == "" {
		title = meta.DynamicTitle()
	}

	fmt.Println(title)
	fmt.Println()
	fmt.Println(final.Summary)

	if *exportFormat != "" {
		if err := exportMinutes(ctx, client, final.Summary, meta, *exportFormat, *outDir, logger); err != nil {
			dumpMetrics()
			if !errors.Is(err, session.ErrSessionExpired) {
				logger.Error("Export failed", slog.String("error", err.Error()))
			}
			os.Exit(1)
		}
	}

	dumpMetrics()
}

// exportMinutes renders the final minutes through the backend and writes the
// document next to the caller's chosen directory.
func exportMinutes(ctx context.Context, client *backend.Client, summary string, meta backend.Metadata, format, outDir string, logger *slog.Logger) error {
	var ext string
	switch format {
	case "word":
		ext = "docx"
	case "pdf":
		ext = "pdf"
	default:
		return fmt.Errorf("unsupported export format '%s' (use 'word' or 'pdf')", format)
	}

	document, err := client.Export(ctx, summary, meta, format)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s_%s_議事録.%s", meta.CreatedDate, meta.CustomerName, ext)
	path := filepath.Join(outDir, name)
	if err := os.WriteFile(path, document, 0644); err != nil {
		return fmt.Errorf("failed to write exported document: %w", err)
	}

	logger.Info("Minutes exported",
		slog.String("path", path),
		slog.Int("size_bytes", len(document)),
	)
	return nil
}

// consoleSink prints pipeline progress to the terminal.
type consoleSink struct {
	out io.Writer
}

func (s *consoleSink) Report(percent int, message string) {
	fmt.Fprintf(s.out, "[%3d%%] %s\n", percent, message)
}

func (s *consoleSink) Reset() {
	fmt.Fprintln(s.out, "[ ---] 処理を中断しました。再試行できます。")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr", "":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
