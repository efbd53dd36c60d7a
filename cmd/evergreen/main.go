package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/evergreen/internal/app"
	"github.com/ayusman/evergreen/internal/config"
	"github.com/ayusman/evergreen/internal/logging"
	"github.com/ayusman/evergreen/internal/server"
	"github.com/ayusman/evergreen/internal/store"
	"github.com/ayusman/evergreen/internal/tray"
)

func main() {
	configPath := flag.String("config", "evergreen.toml", "path to the TOML configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evergreen: %v\n", err)
		os.Exit(1)
	}
	if *debug {
		cfg.Log.Debug = true
	}

	log := logging.New(cfg.Log.Prefix, cfg.Log.Debug)
	log.Infof("Evergreen - hand-gesture tree display")
	if cfg.Source != "" {
		log.Infof("Loaded configuration from %s", cfg.Source)
	}

	if err := run(cfg, log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logging.StdLogger) error {
	// Initialize the store
	if dir := filepath.Dir(cfg.Store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	a := app.New(cfg, app.Deps{Log: log.With("app"), Store: st})
	a.Start()
	defer a.Stop()

	// Find web directory
	webDir := findWebDir(cfg.Server.StaticDir)
	if webDir != "" {
		log.Infof("Serving static files from: %s", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       a,
		Store:     st,
		Log:       log.With("server"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Tray.Enabled {
		log.Infof("Starting server on %s", cfg.Server.Addr)
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	}

	// The tray owns the main goroutine; the server runs beside it.
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnOpen(func() {
		if err := openBrowser(displayURL(cfg.Server.Addr)); err != nil {
			log.Warnf("Open browser: %v", err)
		}
	})
	t.OnQuit(stop)
	a.OnStatus(func(s app.Status) { t.SetStatus(string(s)) })
	t.SetStatus(string(a.Status()))
	a.AddSink(t)
	defer a.RemoveSink(t)

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe(ctx, cfg.Server.Addr)
		t.Quit()
	}()

	t.Run()
	stop()
	return <-errCh
}

// findWebDir searches for the web directory in common locations.
// It checks the configured directory, "web", "../web", "../../web" and
// ~/.evergreen/web. Returns the first existing directory or empty string if
// none found.
func findWebDir(configured string) string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	if configured != "" {
		relativePaths = append([]string{configured}, relativePaths...)
	}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".evergreen", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func displayURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
