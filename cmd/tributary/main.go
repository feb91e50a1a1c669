package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/config"
	"github.com/tributary-data/tributary/pkg/connector/core"
	"github.com/tributary-data/tributary/pkg/connector/registry"
	jsonpool "github.com/tributary-data/tributary/pkg/json"
	"github.com/tributary-data/tributary/pkg/logger"

	// Import all available connectors to register them
	_ "github.com/tributary-data/tributary/pkg/connector/sources/freshchat"
	_ "github.com/tributary-data/tributary/pkg/connector/sources/snapchat"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Flags can also arrive as TRIBUTARY_* environment variables
	v := viper.New()
	v.SetEnvPrefix("TRIBUTARY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("log-level", "info")
	v.SetDefault("timeout", 30*time.Minute)

	root := &cobra.Command{
		Use:   "tributary",
		Short: "Tributary - API source connectors for ELT pipelines",
		Long: `Tributary extracts data from SaaS APIs into JSON line streams.
Source connectors handle authentication, pagination, parent/child stream
hierarchies and incremental state so downstream loaders do not have to.`,
	}

	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Duration("timeout", 30*time.Minute, "Overall command timeout")
	_ = v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("timeout", root.PersistentFlags().Lookup("timeout"))

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Tributary v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available source connectors",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available Source Connectors:")
			for _, source := range registry.ListSources() {
				fmt.Printf("  - %s\n", source)
			}
		},
	})

	var checkConfigFile string
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verify a source configuration can reach its API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSource(v, checkConfigFile, func(ctx context.Context, source core.Source, _ *config.BaseConfig) error {
				if err := source.Check(ctx); err != nil {
					return fmt.Errorf("connection check failed: %w", err)
				}
				fmt.Println("Connection check succeeded")
				return nil
			})
		},
	}
	checkCmd.Flags().StringVarP(&checkConfigFile, "config", "c", "", "Path to source configuration YAML file (required)")
	_ = checkCmd.MarkFlagRequired("config")
	root.AddCommand(checkCmd)

	var streamsConfigFile string
	streamsCmd := &cobra.Command{
		Use:   "streams",
		Short: "List the streams a configured source serves",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSource(v, streamsConfigFile, func(ctx context.Context, source core.Source, _ *config.BaseConfig) error {
				for _, d := range source.Streams() {
					mode := "full_refresh"
					if d.IsIncremental() {
						mode = "incremental (" + d.CursorField + ")"
					}
					if d.HasParent() {
						fmt.Printf("  %-24s %-28s parent=%s\n", d.Name, mode, d.Parent)
						continue
					}
					fmt.Printf("  %-24s %s\n", d.Name, mode)
				}
				return nil
			})
		},
	}
	streamsCmd.Flags().StringVarP(&streamsConfigFile, "config", "c", "", "Path to source configuration YAML file (required)")
	_ = streamsCmd.MarkFlagRequired("config")
	root.AddCommand(streamsCmd)

	var readConfigFile, stateFile, outputFile, streamName string
	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Read records from a configured source",
		Long: `Read records from a configured source and emit them as JSON lines.
State loaded with --state is handed to the source before reading and written
back after a successful sync, enabling incremental runs.

Example:
  tributary read --config snapchat.yaml --state state.yaml --output records.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(v, readConfigFile, stateFile, outputFile, streamName)
		},
	}
	readCmd.Flags().StringVarP(&readConfigFile, "config", "c", "", "Path to source configuration YAML file (required)")
	readCmd.Flags().StringVar(&stateFile, "state", "", "Path to incremental state YAML file (read and updated)")
	readCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for JSON line records (default stdout)")
	readCmd.Flags().StringVar(&streamName, "stream", "", "Read a single stream instead of all streams")
	_ = readCmd.MarkFlagRequired("config")
	root.AddCommand(readCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withSource loads a source configuration, creates and initializes the
// connector, runs fn and tears the connector down again.
func withSource(v *viper.Viper, configFile string, fn func(context.Context, core.Source, *config.BaseConfig) error) error {
	if err := logger.Init(logger.Config{Level: v.GetString("log-level"), Encoding: "json"}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadSourceConfig(configFile)
	if err != nil {
		return err
	}

	source, err := registry.CreateSource(cfg.Name, cfg)
	if err != nil {
		return fmt.Errorf("failed to create source connector '%s': %w", cfg.Name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.GetDuration("timeout"))
	defer cancel()

	if err := source.Initialize(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize source: %w", err)
	}
	defer func() {
		if err := source.Close(ctx); err != nil {
			logger.Warn("failed to close source", zap.Error(err))
		}
	}()

	return fn(ctx, source, cfg)
}

// loadSourceConfig loads a BaseConfig from a YAML file
func loadSourceConfig(filename string) (*config.BaseConfig, error) {
	cfg := config.NewBaseConfig("", "source")
	if err := config.Load(filename, cfg); err != nil {
		return nil, fmt.Errorf("source configuration error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("source configuration error: %w", err)
	}
	return cfg, nil
}

func runRead(v *viper.Viper, configFile, stateFile, outputFile, streamName string) error {
	return withSource(v, configFile, func(ctx context.Context, source core.Source, cfg *config.BaseConfig) error {
		log := logger.With(zap.String("component", "tributary-cli"), zap.String("source", cfg.Name))

		if stateFile != "" {
			state := core.State{}
			if _, err := os.Stat(stateFile); err == nil {
				if err := config.Load(stateFile, &state); err != nil {
					return fmt.Errorf("state file error: %w", err)
				}
			}
			if err := source.SetState(state); err != nil {
				return fmt.Errorf("failed to apply state: %w", err)
			}
		}

		out := os.Stdout
		if outputFile != "" {
			f, err := os.Create(outputFile) //nolint:gosec // G304: path comes from the operator
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer func() { _ = f.Close() }()
			out = f
		}

		stream, err := openStream(ctx, source, streamName)
		if err != nil {
			return err
		}

		encoder := jsonpool.GetEncoder(out)
		defer jsonpool.PutEncoder(encoder)

		startTime := time.Now()
		var count int64
		var readErr error
		for stream.Records != nil || stream.Errors != nil {
			select {
			case record, ok := <-stream.Records:
				if !ok {
					stream.Records = nil
					continue
				}
				line := map[string]interface{}{
					"stream":     record.GetStreamID(),
					"id":         record.ID,
					"data":       record.Data,
					"emitted_at": record.Metadata.Timestamp.UTC().Format(time.RFC3339),
				}
				if err := encoder.Encode(line); err != nil {
					readErr = err
				}
				record.Release()
				count++
			case err, ok := <-stream.Errors:
				if !ok {
					stream.Errors = nil
					continue
				}
				readErr = err
			}
		}
		if readErr != nil {
			return fmt.Errorf("read failed: %w", readErr)
		}

		if stateFile != "" {
			if err := config.Save(stateFile, source.GetState()); err != nil {
				return fmt.Errorf("failed to persist state: %w", err)
			}
		}

		duration := time.Since(startTime)
		log.Info("read completed",
			zap.Int64("records", count),
			zap.Duration("duration", duration),
			zap.Float64("records_per_second", float64(count)/duration.Seconds()))

		return nil
	})
}

func openStream(ctx context.Context, source core.Source, streamName string) (*core.RecordStream, error) {
	if streamName == "" {
		return source.Read(ctx)
	}
	for _, d := range source.Streams() {
		if d.Name == streamName {
			return source.ReadStream(ctx, d)
		}
	}
	return nil, fmt.Errorf("unknown stream '%s'", streamName)
}
