// Command carray drives the compressed columnar engine: it runs the
// selection benchmark, evaluates predicates over generated tables and
// exports tables as Arrow IPC streams.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/carray/pkg/config"
	"github.com/ajitpratap0/carray/pkg/logger"
	"github.com/ajitpratap0/carray/pkg/metrics"
	"github.com/ajitpratap0/carray/pkg/observability"
)

var version = "0.1.0"

// runtimeEnv is what every command needs once flags are resolved
type runtimeEnv struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	shutdown func(context.Context) error
}

func main() {
	v := viper.New()
	v.SetEnvPrefix("CARRAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "carray",
		Short: "carray - compressed in-memory columnar arrays and tables",
		Long: `carray stores numeric columns as chunks of compressed data, evaluates
arithmetic and comparison predicates chunk by chunk and selects rows by
boolean mask without decompressing the whole table.

Settings come from an optional YAML file, CARRAY_* environment variables and
flags, in increasing order of precedence.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a YAML configuration file")
	pf.String("codec", "", "Compression codec (none, lz4, zstd, snappy, s2, gzip, deflate)")
	pf.Int("level", 0, "Compression level 0-9, 0 stores chunks uncompressed")
	pf.Int("chunk-capacity", 0, "Elements per chunk")
	pf.Bool("shuffle", true, "Byte-shuffle chunks before compression")
	pf.Int("workers", runtime.NumCPU(), "Goroutines used to compress chunks in parallel")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.Bool("trace", false, "Export OpenTelemetry spans to stderr")
	pf.Bool("metrics", false, "Print engine counters to stderr on exit")
	_ = v.BindPFlags(pf)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("carray v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newBenchCommand(v), newEvalCommand(v), newExportCommand(v))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfig layers the YAML file, environment and changed flags over
// the defaults
func resolveConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Default("carray")
	if path := v.GetString("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v.IsSet("codec") {
		cfg.Engine.Codec = v.GetString("codec")
	}
	if v.IsSet("level") {
		cfg.Engine.Level = v.GetInt("level")
	}
	if v.IsSet("chunk-capacity") {
		cfg.Engine.ChunkCapacity = v.GetInt("chunk-capacity")
	}
	if v.IsSet("shuffle") {
		cfg.Engine.Shuffle = v.GetBool("shuffle")
	}
	if v.IsSet("workers") {
		cfg.Engine.Workers = v.GetInt("workers")
	}
	if v.IsSet("log-level") {
		cfg.Logging.Level = v.GetString("log-level")
	}
	if v.IsSet("trace") {
		cfg.Observability.EnableTracing = v.GetBool("trace")
	}
	if v.IsSet("metrics") {
		cfg.Observability.EnableMetrics = v.GetBool("metrics")
	}
	if len(cfg.Logging.OutputPaths) == 0 {
		// stdout carries reports
		cfg.Logging.OutputPaths = []string{"stderr"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setup(v *viper.Viper) (*runtimeEnv, error) {
	cfg, err := resolveConfig(v)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	log, err := logger.New(logger.FromConfig(cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	env := &runtimeEnv{
		cfg:      cfg,
		log:      log.With(zap.String("component", "carray-cli")),
		shutdown: func(context.Context) error { return nil },
	}

	if cfg.Observability.EnableMetrics {
		env.registry = prometheus.NewRegistry()
		env.metrics = metrics.New(env.registry)
	}
	if cfg.Observability.EnableTracing {
		tc := observability.DefaultTracingConfig(cfg.Observability.ServiceName)
		tc.ServiceVersion = version
		tc.Writer = os.Stderr
		tc.PrettyPrint = true
		shutdown, err := observability.InitTracing(tc)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		env.shutdown = shutdown
	}
	return env, nil
}

// close flushes spans and prints counters when enabled
func (e *runtimeEnv) close(ctx context.Context) {
	if err := e.shutdown(ctx); err != nil {
		e.log.Warn("failed to flush traces", zap.Error(err))
	}
	if e.registry != nil {
		families, err := e.registry.Gather()
		if err != nil {
			e.log.Warn("failed to gather metrics", zap.Error(err))
		}
		for _, mf := range families {
			for _, m := range mf.GetMetric() {
				labels := make([]string, 0, len(m.GetLabel()))
				for _, l := range m.GetLabel() {
					labels = append(labels, l.GetName()+"="+l.GetValue())
				}
				value := m.GetCounter().GetValue()
				if h := m.GetHistogram(); h != nil {
					value = h.GetSampleSum()
				}
				fmt.Fprintf(os.Stderr, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
			}
		}
	}
	_ = e.log.Sync()
}
