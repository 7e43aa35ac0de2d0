package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/assetcdn/internal/cliconfig"
	"github.com/bft-labs/assetcdn/pkg/assetcdn"
	"github.com/bft-labs/assetcdn/pkg/log"
	"github.com/bft-labs/assetcdn/plugins/configwatcher"
)

const longHelp = `Serve immutable 3D models, animations, audio and images over HTTP.

Highlights:
  - Byte-range streaming, weak-ETag revalidation and year-long immutable caching.
  - Separate admission ceilings for asset reads and the upload API.
  - Uploads are published atomically and announced to a webhook in the background.
  - Configure via file (TOML or YAML), ASSETCDN_* environment variables, or flags.`

var exampleUsage = strings.TrimSpace(`
  assetcdn --asset-root /srv/assets --auth-token <token>
  assetcdn --config /etc/assetcdn/config.yaml --watch-config
  ASSETCDN_NOTIFY_URL=https://hooks.example.com/assets assetcdn --asset-root ./assets
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	bootLog, _ := log.NewZerolog(log.Options{})

	root := &cobra.Command{
		Use:          "assetcdn",
		Short:        "Serve immutable media assets with range, revalidation and rate limiting",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			fileLoaded := false
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				fileLoaded = true
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			zl, err := log.NewZerolog(log.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
			if err != nil {
				return err
			}
			zl.Info().Interface("config", cfg.Masked()).Msg("configuration")

			crashed := make(chan string, 1)
			opts := []assetcdn.Option{
				assetcdn.WithLogger(log.NewZerologAdapterWithLogger(zl)),
				assetcdn.WithStateObserver(func(_, current assetcdn.State, reason string) {
					if current == assetcdn.StateCrashed {
						select {
						case crashed <- reason:
						default:
						}
					}
				}),
			}
			if cfg.WatchConfig {
				if !fileLoaded {
					zl.Warn().Str("path", cfgFile).Msg("watch-config set but no config file found")
				} else {
					opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
						Path: cfgFile,
						Load: cliconfig.RateReloader(cfg, changed),
					}))
				}
			}

			srv, err := assetcdn.New(cfg.ServerConfig(), opts...)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := srv.Start(ctx); err != nil {
				return fmt.Errorf("start server: %w", err)
			}

			select {
			case <-ctx.Done():
				zl.Info().Msg("received signal, stopping...")
			case reason := <-crashed:
				return fmt.Errorf("server crashed: %s", reason)
			}

			if err := srv.Stop(); err != nil {
				return fmt.Errorf("stop server: %w", err)
			}
			return nil
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file, .toml or .yaml (default: $HOME/.assetcdn/config.toml)")
	f.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "address to listen on")
	f.StringVar(&cfg.AssetRoot, "asset-root", cfg.AssetRoot, "directory containing one sub-directory per category")
	f.StringSliceVar(&cfg.Categories, "categories", cfg.Categories, "asset categories served at /<category>/")
	f.DurationVar(&cfg.CacheMaxAge, "cache-max-age", cfg.CacheMaxAge, "Cache-Control max-age for assets")

	f.IntVar(&cfg.APIRateMax, "api-max", cfg.APIRateMax, "requests per window on /api routes")
	f.DurationVar(&cfg.APIRateWindow, "api-window", cfg.APIRateWindow, "rate window for /api routes")
	f.IntVar(&cfg.AssetRateMax, "asset-max", cfg.AssetRateMax, "requests per window on asset routes")
	f.DurationVar(&cfg.AssetRateWindow, "asset-window", cfg.AssetRateWindow, "rate window for asset routes")
	f.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "how often expired rate windows are dropped")
	f.BoolVar(&cfg.TrustProxy, "trust-proxy", cfg.TrustProxy, "use the first X-Forwarded-For hop to identify clients")

	f.IntVar(&cfg.CompressMinSize, "compress-min-size", cfg.CompressMinSize, "smallest API response body that is compressed")
	f.Int64Var(&cfg.UploadMaxBytes, "upload-max-bytes", cfg.UploadMaxBytes, "maximum size of one uploaded file")
	f.IntVar(&cfg.UploadMaxFiles, "upload-max-files", cfg.UploadMaxFiles, "maximum files per upload")
	f.StringVar(&cfg.AuthToken, "auth-token", cfg.AuthToken, "bearer token required for uploads")

	f.StringVar(&cfg.NotifyURL, "notify-url", cfg.NotifyURL, "webhook notified after each upload (optional)")
	f.StringVar(&cfg.NotifyAuthKey, "notify-auth-key", cfg.NotifyAuthKey, "bearer token sent to the webhook")
	f.DurationVar(&cfg.NotifyTimeout, "notify-timeout", cfg.NotifyTimeout, "timeout of one webhook attempt")
	f.DurationVar(&cfg.NotifyBaseDelay, "notify-base-delay", cfg.NotifyBaseDelay, "delay after the first failed webhook attempt")
	f.DurationVar(&cfg.NotifyMaxDelay, "notify-max-delay", cfg.NotifyMaxDelay, "cap on the delay between webhook attempts")
	f.IntVar(&cfg.NotifyMaxAttempts, "notify-max-attempts", cfg.NotifyMaxAttempts, "webhook attempts before giving up")
	f.IntVar(&cfg.NotifyQueueSize, "notify-queue-size", cfg.NotifyQueueSize, "pending notifications before new ones are dropped")

	f.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown limit")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	f.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "emit JSON log lines instead of console output")
	f.BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload rate limits when the config file changes")

	if err := root.Execute(); err != nil {
		bootLog.Error().Err(err).Msg("assetcdn")
		os.Exit(1)
	}
}
