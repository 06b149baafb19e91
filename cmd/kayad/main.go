package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"kayad/internal/config"
	"kayad/internal/httpapi"
	"kayad/internal/registry"
	"kayad/internal/sidecar"
	"kayad/pkg/types"
)

// engineService adapts the engine and model registry to the HTTP layer,
// resolving registry ids to model file paths.
type engineService struct {
	eng    *sidecar.Engine
	models []types.Model
}

func (s *engineService) Available() bool { return s.eng.Available() }

func (s *engineService) Initialize(model string) (types.EngineInfo, error) {
	for _, m := range s.models {
		if m.ID == model {
			model = m.Path
			break
		}
	}
	return s.eng.Initialize(model)
}

func (s *engineService) Benchmark(iterations int) (types.BenchmarkStats, error) {
	return s.eng.Benchmark(iterations)
}

func (s *engineService) Dispose()                     { s.eng.Dispose() }
func (s *engineService) Status() types.StatusResponse { return s.eng.Status() }
func (s *engineService) ListModels() []types.Model    { return s.models }
func (s *engineService) Ready() bool                  { return s.eng.Ready() }

func main() {
	addr := flag.String("addr", "", "HTTP listen address (default KAYAD_ADDR or 127.0.0.1:8041)")
	modelsDir := flag.String("models-dir", "", "Directory to scan for *.onnx model files (default KAYAD_MODELS_DIR or ~/.kaya/models)")
	interpreter := flag.String("interpreter", "", "Python interpreter for the sidecar (default python3)")
	scriptPath := flag.String("script", "", "Sidecar script path (default: discover)")
	logLevel := flag.String("log-level", "", "Log level: debug|info|warn|error (default KAYAD_LOG_LEVEL or info)")
	configPath := flag.String("config", "", "Optional config file (.yaml/.json/.toml); flags override it")
	flag.Parse()

	var fileCfg config.Config
	if *configPath != "" {
		var err error
		fileCfg, err = config.Load(*configPath)
		if err != nil {
			l := zerolog.New(os.Stderr)
			l.Fatal().Err(err).Msg("failed to load config")
		}
	}

	resolvedAddr := firstNonEmpty(*addr, fileCfg.Addr, os.Getenv("KAYAD_ADDR"), "127.0.0.1:8041")
	resolvedModelsDir := firstNonEmpty(*modelsDir, fileCfg.ModelsDir, os.Getenv("KAYAD_MODELS_DIR"), "~/.kaya/models")
	resolvedLevel := firstNonEmpty(*logLevel, fileCfg.LogLevel, os.Getenv("KAYAD_LOG_LEVEL"), "info")

	level, err := zerolog.ParseLevel(resolvedLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(level)

	models, err := registry.LoadDir(resolvedModelsDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", resolvedModelsDir).Msg("failed to scan models dir")
	}

	eng := sidecar.New(sidecar.Config{
		Interpreter: firstNonEmpty(*interpreter, fileCfg.Interpreter),
		ScriptPath:  firstNonEmpty(*scriptPath, fileCfg.ScriptPath),
		Logger:      &log,
	})

	httpapi.SetLogger(log)
	mux := httpapi.NewMux(&engineService{eng: eng, models: models})
	srv := &http.Server{Addr: resolvedAddr, Handler: mux}

	go func() {
		log.Info().Str("addr", resolvedAddr).Str("models_dir", resolvedModelsDir).
			Bool("gpu_available", eng.Available()).Msg("kayad listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM): stop serving, then tear down
	// the sidecar process.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	eng.Dispose()
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
