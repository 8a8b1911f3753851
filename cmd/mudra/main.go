// Command mudra runs the hand-tracked particle host: camera, detector, scene
// engine, HTTP API and optional tray.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/hook"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON tuning file")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cameraID := flag.Int("camera", 0, "camera device ID")
	dbPath := flag.String("db", "", "SQLite database path (default ~/.mudra/mudra.db)")
	useTray := flag.Bool("tray", false, "show a system tray menu")
	gate := flag.Bool("motion-gate", true, "skip hand detection while the scene is still")
	hooksDir := flag.String("hooks", "", "transition hook directory (default ~/.mudra/hooks)")
	hookTimeout := flag.Duration("hook-timeout", hook.DefaultTimeout, "maximum run time of one hook")
	flag.Parse()

	fmt.Println("Mudra - hand-tracked particle formations")

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *dbPath == "" {
		*dbPath = filepath.Join(dataDir(), "mudra.db")
	}
	st, err := store.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	hub := server.NewSceneHub()
	defer hub.Close()
	frames := &overlay.Latest{}

	if *hooksDir == "" {
		*hooksDir = filepath.Join(dataDir(), "hooks")
	}
	hooks := hook.NewManager(*hooksDir)
	if err := hooks.Discover(); err != nil {
		log.Printf("Failed to discover hooks: %v", err)
	} else if n := len(hooks.List()); n > 0 {
		fmt.Printf("Loaded %d transition hooks from %s\n", n, *hooksDir)
	}
	dispatcher := hook.NewDispatcher(hooks, hook.NewExecutor(*hookTimeout), 0)

	a := app.New(app.Config{
		Settings:   settings,
		Store:      st,
		CameraID:   *cameraID,
		Publisher:  hub,
		Frames:     frames,
		Hooks:      dispatcher,
		MotionGate: *gate,
	})

	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := &http.Server{
		Addr: *addr,
		Handler: server.New(server.Config{
			StaticDir: webDir,
			Store:     st,
			State:     a.Engine(),
			Settings:  a,
			Hub:       hub,
			Frames:    frames,
			Hooks:     hooks,
		}),
	}

	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start capture: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *useTray {
		t := tray.New()
		a.OnSnapshot(t.Update)
		t.OnToggle(a.SetEnabled)
		t.OnOpen(func() { openBrowser(viewerURL(*addr)) })
		t.OnQuit(stop)
		go func() {
			<-ctx.Done()
			shutdown(a, dispatcher, srv)
			os.Exit(0)
		}()
		t.Run()
		return
	}

	<-ctx.Done()
	shutdown(a, dispatcher, srv)
}

func shutdown(a *app.App, hooks *hook.Dispatcher, srv *http.Server) {
	log.Println("Shutting down")
	a.Stop()
	hooks.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// dataDir returns ~/.mudra, creating it if needed.
func dataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dir := filepath.Join(homeDir, ".mudra")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	return dir
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func viewerURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
