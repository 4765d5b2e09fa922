package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kartoza/goodspeed/internal/config"
	"github.com/kartoza/goodspeed/internal/gui"
	"github.com/kartoza/goodspeed/internal/logger"
	"github.com/kartoza/goodspeed/internal/registry"
	"github.com/kartoza/goodspeed/internal/server"
	"github.com/kartoza/goodspeed/internal/storage"
)

var version = "dev"

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:          "goodspeed",
	Short:        "Predict production line good speed from trained models",
	Version:      version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		}
		return run(cmd.Context())
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml)")
	flags.Int("port", config.DefaultPort, "HTTP server port")
	flags.String("model-dir", config.DefaultModelDir, "directory containing model artifacts")
	flags.Bool("headless", false, "run in headless mode (no GUI window)")
	flags.Bool("console", true, "log to the console instead of files")
	flags.Bool("verbose", false, "enable debug logging")

	for key, flag := range map[string]string{
		"server.port":     "port",
		"storage.dir":     "model-dir",
		"server.headless": "headless",
		"log.console":     "console",
		"log.verbose":     "verbose",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg.Version = version
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(cfg.Log.Verbose, cfg.Log.Console, cfg.Log.Dir, logger.RotateConfig{
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
	}); err != nil {
		return err
	}
	defer logger.Sync()

	ns, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}

	var settings *config.SettingsStore
	if dir, err := config.DefaultSettingsDir(); err != nil {
		logger.Warnf("settings will not be saved: %v", err)
	} else {
		settings = config.NewSettingsStore(dir)
	}

	// Find an available port (try up to 10 ports starting from the requested one)
	port, err := findAvailablePort(cfg.Server.Port, 10)
	if err != nil {
		return err
	}
	if port != cfg.Server.Port {
		logger.Infof("port %d in use, using port %d instead", cfg.Server.Port, port)
		cfg.Server.Port = port
	}

	logger.Infof("Good Speed v%s starting on port %d", version, cfg.Server.Port)
	logger.Infof("model storage: %s", ns)

	srv, err := server.New(cfg, ns, settings)
	if err != nil {
		ns.Close()
		return err
	}

	// The form shows the no-models state; keep serving so artifacts can be
	// added without a restart.
	if _, err := srv.Manager().Discover(ctx); err != nil {
		if errors.Is(err, registry.ErrNoModels) {
			logger.Errorf("%v", err)
		} else {
			logger.Errorf("model discovery failed: %v", err)
		}
	}

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	waitForServer(serverURL, 10*time.Second)

	headless := cfg.Server.Headless
	if !headless && !gui.Available() {
		logger.Warnf("%v; running headless", gui.ErrUnavailable)
		headless = true
	}

	if headless {
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-stop:
			logger.Infof("received %v signal, shutting down", sig)
		}
		return srv.Stop()
	}

	logger.Infof("opening application window")
	done := make(chan struct{})
	go func() {
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("server error: %v", err)
			}
		case sig := <-stop:
			logger.Infof("received %v signal, shutting down", sig)
		}
		close(done)
	}()

	if err := gui.Run("Good Speed Predictor", serverURL, done); err != nil {
		logger.Errorf("window: %v", err)
	}

	logger.Infof("window closed, shutting down server")
	return srv.Stop()
}

// waitForServer polls until the server is accepting connections
func waitForServer(url string, timeout time.Duration) {
	addr := url[len("http://"):]
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	logger.Warnf("server may not be ready at %s", url)
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		addr := fmt.Sprintf(":%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}
