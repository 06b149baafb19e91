// kayactl is a diagnostic CLI for the GPU sidecar engine: it probes
// availability, initializes a model, and runs benchmarks without going
// through the daemon.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"kayad/internal/registry"
	"kayad/internal/sidecar"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var (
		interpreter string
		scriptPath  string
		logLevel    string
	)

	root := &cobra.Command{
		Use:           "kayactl",
		Short:         "Diagnostics for the GPU sidecar inference engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&interpreter, "interpreter", "", "Python interpreter for the sidecar (default python3)")
	root.PersistentFlags().StringVar(&scriptPath, "script", "", "Sidecar script path (default: discover)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug|info|warn|error")

	newEngine := func() *sidecar.Engine {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			level = zerolog.WarnLevel
		}
		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger().Level(level)
		return sidecar.New(sidecar.Config{
			Interpreter: interpreter,
			ScriptPath:  scriptPath,
			Logger:      &log,
		})
	}

	probe := &cobra.Command{
		Use:     "probe",
		Short:   "Check whether GPU sidecar inference is available",
		Example: "  kayactl probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			if newEngine().Available() {
				fmt.Println("available")
				return nil
			}
			fmt.Println("unavailable")
			os.Exit(1)
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:     "init <model-path>",
		Short:   "Initialize the sidecar with a model and print engine info",
		Example: "  kayactl init ~/.kaya/models/kata9x9.onnx",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := newEngine()
			defer eng.Dispose()
			info, err := eng.Initialize(args[0])
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}

	var iterations int
	bench := &cobra.Command{
		Use:     "bench <model-path>",
		Short:   "Initialize a model and run the sidecar benchmark",
		Example: "  kayactl bench ~/.kaya/models/kata9x9.onnx --iterations 30",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := newEngine()
			defer eng.Dispose()
			if _, err := eng.Initialize(args[0]); err != nil {
				return err
			}
			stats, err := eng.Benchmark(iterations)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
	bench.Flags().IntVar(&iterations, "iterations", 30, "Benchmark iterations")

	var modelsDir string
	models := &cobra.Command{
		Use:     "models",
		Short:   "List model files in the models directory",
		Example: "  kayactl models --models-dir ~/.kaya/models",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := registry.LoadDir(modelsDir)
			if err != nil {
				return err
			}
			return printJSON(list)
		},
	}
	models.Flags().StringVar(&modelsDir, "models-dir", "~/.kaya/models", "Directory to scan for *.onnx model files")

	root.AddCommand(probe, initCmd, bench, models)
	return root
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
