package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	u "net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/mediafetch/internal/config"
	"github.com/tanq16/mediafetch/internal/metrics"
	"github.com/tanq16/mediafetch/internal/output"
	"github.com/tanq16/mediafetch/internal/scheduler"
	"github.com/tanq16/mediafetch/internal/utils"
)

var MediafetchVersion = "dev"

var (
	cfg       config.Config
	collector *metrics.Metrics
	logCloser io.Closer

	configPath    string
	debug         bool
	logFile       string
	connections   int
	workers       int
	chunkSize     string
	limitRate     string
	poolMode      string
	keepTemp      bool
	overwrite     bool
	timeout       time.Duration
	kaTimeout     time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	cookie        string
	headers       []string
	metricsAddr   string
)

var rootCmd = &cobra.Command{
	Use:           "mediafetch",
	Short:         "mediafetch is a chunked media download engine",
	Version:       MediafetchVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logCloser, err = setupLogging()
		if err != nil {
			return err
		}
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd); err != nil {
			return err
		}
		collector = metrics.New()
		log.Debug().Str("op", "cmd/root").Msgf("config: connections=%d workers=%d chunk=%s pool=%s", cfg.Connections, cfg.Workers, cfg.ChunkSize, cfg.PoolMode)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

// setupLogging logs to the given file, to the console with --debug, and
// otherwise only when no progress display owns the terminal.
func setupLogging() (io.Closer, error) {
	if logFile != "" {
		return utils.InitLogger(debug, logFile)
	}
	if output.IsTerminal() && !debug {
		utils.DisableLogging()
		return nil, nil
	}
	return utils.InitLogger(debug, "")
}

// applyFlags overrides the loaded config with every flag set explicitly.
func applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("connections") {
		cfg.Connections = connections
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("chunk-size") {
		size, err := config.ParseByteSize(chunkSize)
		if err != nil {
			return err
		}
		cfg.ChunkSize = size
	}
	if flags.Changed("limit-rate") {
		size, err := config.ParseByteSize(limitRate)
		if err != nil {
			return err
		}
		cfg.LimitRate = size
	}
	if flags.Changed("pool-mode") {
		cfg.PoolMode = poolMode
	}
	if flags.Changed("keep-temp") {
		cfg.KeepTempOnFailure = keepTemp
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("keep-alive-timeout") {
		cfg.KeepAliveTimeout = kaTimeout
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = userAgent
	}
	if cfg.UserAgent == "randomize" {
		cfg.UserAgent = utils.GetRandomUserAgent()
	}
	if flags.Changed("cookie") {
		cfg.Cookie = cookie
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if flags.Changed("proxy-username") {
		cfg.ProxyUsername = proxyUsername
	}
	if flags.Changed("proxy-password") {
		cfg.ProxyPassword = proxyPassword
	}
	if flags.Changed("proxy") {
		cfg.Proxy = proxyURL
	}
	// Credentials embedded in the proxy URL move to the username/password fields.
	if parsedProxy, err := u.Parse(cfg.Proxy); err == nil && cfg.Proxy != "" && parsedProxy.User != nil && cfg.ProxyUsername == "" {
		cfg.ProxyUsername = parsedProxy.User.Username()
		if password, set := parsedProxy.User.Password(); set {
			cfg.ProxyPassword = password
		}
		parsedProxy.User = nil
		cfg.Proxy = parsedProxy.String()
	}
	if len(headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		for k, v := range utils.ParseHeaderArgs(headers) {
			cfg.Headers[k] = v
		}
	}
	return cfg.Validate()
}

func parseSize(s string) (int64, error) {
	size, err := config.ParseByteSize(s)
	return int64(size), err
}

func httpClientConfig() utils.HTTPClientConfig {
	clientCfg := cfg.HTTPClientConfig()
	clientCfg.Metrics = collector
	return clientCfg
}

// newJob fills the fields every job type shares from the effective config.
func newJob(jobType, url, outputPath string) utils.FetchJob {
	return utils.FetchJob{
		JobType:          jobType,
		URL:              url,
		OutputPath:       outputPath,
		Connections:      cfg.Connections,
		Overwrite:        overwrite,
		Engine:           cfg.EngineConfig(),
		HTTPClientConfig: httpClientConfig(),
		Metadata:         make(map[string]any),
	}
}

// runJobs drives the scheduler with the progress display and, when an
// address is configured, the metrics endpoint.
func runJobs(ctx context.Context, jobs []utils.FetchJob, numWorkers int) ([]utils.JobResult, error) {
	if cfg.MetricsAddr != "" {
		metricsCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.MetricsAddr, collector); err != nil {
				log.Error().Str("op", "cmd/root").Err(err).Msg("metrics server failed")
			}
		}()
	}
	progress := utils.NewProgressRegistry()
	var manager *output.Manager
	if debug && logFile == "" {
		manager = output.NewPlainManager(progress, os.Stdout)
	} else {
		manager = output.NewManager(progress)
	}
	return scheduler.Run(ctx, jobs, numWorkers, manager, progress)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			output.PrintWarning("Interrupted")
		} else if !errors.Is(err, scheduler.ErrJobsFailed) {
			output.PrintError(fmt.Sprintf("Error: %v", err))
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/mediafetch/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write JSON logs to this file instead of the console")
	rootCmd.PersistentFlags().IntVarP(&connections, "connections", "c", utils.DefaultConnections, "Number of connections per download")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 1, "Number of links to download in parallel")
	rootCmd.PersistentFlags().StringVar(&chunkSize, "chunk-size", "10MiB", "Chunk size for ranged downloads (eg. 4MiB, 10MB)")
	rootCmd.PersistentFlags().StringVar(&limitRate, "limit-rate", "", "Bandwidth cap per download in bytes/sec (eg. 2MiB)")
	rootCmd.PersistentFlags().StringVar(&poolMode, "pool-mode", utils.PoolModeCohort, "Chunk scheduling: cohort (wait for each batch) or refill")
	rootCmd.PersistentFlags().BoolVar(&keepTemp, "keep-temp", false, "Keep chunk files when a download fails")
	rootCmd.PersistentFlags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing output files instead of renaming")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 3*time.Minute, "Response header timeout per request (eg. 5s, 10m)")
	rootCmd.PersistentFlags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent (\"randomize\" picks a browser agent)")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&cookie, "cookie", "", "Cookie header sent with every request")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (eg. :9090)")

	rootCmd.AddCommand(newHTTPCmd())
	rootCmd.AddCommand(newS3Cmd())
	rootCmd.AddCommand(newStreamsCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newVersionCmd())
}
