package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/proofsheet/tablo/internal/adapter"
	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/grid"
	"github.com/proofsheet/tablo/internal/service"
	"github.com/proofsheet/tablo/internal/store"
	"github.com/proofsheet/tablo/internal/studio"
	"github.com/proofsheet/tablo/internal/tui"
	"github.com/proofsheet/tablo/internal/tui/styles"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

type options struct {
	configDir  string
	status     bool
	resetHints bool
	clearCache bool
}

func main() {
	var showVersion bool
	var opts options
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&opts.configDir, "config", "", "config directory (default: user config dir)")
	flag.BoolVar(&opts.status, "status", false, "print the workflow progress and exit")
	flag.BoolVar(&opts.resetHints, "reset-hints", false, "show every step info dialog again")
	flag.BoolVar(&opts.clearCache, "clear-cache", false, "remove cached flags and snapshots")
	flag.Parse()

	if showVersion {
		fmt.Printf("tablo %s\n", Version)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.clearCache {
		if err := adapter.ClearCache(); err != nil {
			return err
		}
		fmt.Println("✓ Cache cleared")
		return nil
	}

	cfg, err := loadConfig(opts.configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	} else {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting tablo", "version", Version)

	if !cfg.IsConfigured() {
		return runSetupFlow(cfg, opts.configDir, logger)
	}

	client := studio.NewClient(cfg.Server.URL, cfg.Server.Token, logger,
		studio.WithTimeout(adapter.Millis(cfg.Queue.TimeoutMs)))

	if opts.status {
		return printStatus(client, cfg.Session.GalleryID)
	}

	uiStore, err := store.NewUIStore(adapter.GetCachePath(), cfg.Server.URL)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer uiStore.Close()

	if opts.resetHints {
		n, err := uiStore.ResetStepInfo(0)
		if err != nil {
			return fmt.Errorf("failed to reset hints: %w", err)
		}
		fmt.Printf("✓ Reset %d step hints\n", n)
		return nil
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("tablo needs an interactive terminal (use -status for plain output)")
	}

	notifier := tui.NewChannelNotifier(16)
	ctrl := service.NewPhotoSelectionController(service.ControllerDeps{
		Repo: client,
		Session: domain.StaticSession{
			Project: cfg.Session.ProjectID,
			Gallery: cfg.Session.GalleryID,
		},
		Flags:     uiStore,
		Snapshots: uiStore,
		Notifier:  notifier,
		Logger:    logger,
	}, controllerConfig(cfg))

	model := tui.NewModel(ctrl, notifier, cfg.Grid.CellPx, logger)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	logger.Info("starting TUI", "gallery", cfg.Session.GalleryID)

	_, runErr := p.Run()

	// Unsaved selections are dropped on exit; a save already sent finishes
	model.Close()
	ctrl.Close()
	ctrl.Wait()

	if runErr != nil {
		logger.Error("TUI error", "error", runErr)
		return fmt.Errorf("TUI error: %w", runErr)
	}

	logger.Info("shutting down")
	return nil
}

func loadConfig(dir string) (*adapter.Config, error) {
	if dir != "" {
		return adapter.LoadConfigFrom(dir)
	}
	return adapter.LoadConfig()
}

func saveConfig(dir string, cfg *adapter.Config) error {
	if dir != "" {
		return adapter.SaveConfigTo(dir, cfg)
	}
	return adapter.SaveConfig(cfg)
}

// controllerConfig maps file settings onto the service tunables
func controllerConfig(cfg *adapter.Config) service.ControllerConfig {
	c := service.DefaultControllerConfig()
	c.Queue = service.QueueConfig{
		Debounce:   adapter.Millis(cfg.Queue.DebounceMs),
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: adapter.Millis(cfg.Queue.RetryDelayMs),
		Timeout:    adapter.Millis(cfg.Queue.TimeoutMs),
	}
	c.Grid = grid.Config{
		Breakpoints:    grid.DefaultBreakpoints,
		Gap:            cfg.Grid.GapPx,
		ResizeDebounce: adapter.Millis(cfg.Grid.ResizeDebounceMs),
	}
	if cfg.Grid.PageSize > 0 {
		c.PageSize = cfg.Grid.PageSize
	}
	c.VirtualScroll = cfg.Grid.VirtualScroll
	return c
}

// runSetupFlow asks for the connection settings and saves them
func runSetupFlow(cfg *adapter.Config, configDir string, logger *slog.Logger) error {
	fmt.Println()
	fmt.Println("Welcome to Tablo!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	if cfg.Server.URL == "" {
		url, err := prompt(reader, "Studio API URL (e.g., https://studio.example.com): ")
		if err != nil {
			return err
		}
		cfg.Server.URL = strings.TrimRight(url, "/")
	}

	if cfg.Server.Token == "" {
		fmt.Print("Session token: ")
		tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		cfg.Server.Token = strings.TrimSpace(string(tokenBytes))
		if cfg.Server.Token == "" {
			return errors.New("token cannot be empty")
		}
	}

	if cfg.Session.ProjectID == 0 {
		id, err := promptInt(reader, "Project ID: ")
		if err != nil {
			return err
		}
		cfg.Session.ProjectID = id
	}

	if cfg.Session.GalleryID == 0 {
		id, err := promptInt(reader, "Gallery ID: ")
		if err != nil {
			return err
		}
		cfg.Session.GalleryID = id
	}

	client := studio.NewClient(cfg.Server.URL, cfg.Server.Token, logger)
	if err := checkGalleryWithSpinner(client, cfg.Session.GalleryID); err != nil {
		fmt.Printf("✗ Could not open gallery %d: %s\n", cfg.Session.GalleryID, domain.UserMessage(err))
		return fmt.Errorf("gallery check failed: %w", err)
	}

	if err := saveConfig(configDir, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Println("Run tablo again to start selecting.")

	return nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	for {
		fmt.Print(label)
		input, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		if v := strings.TrimSpace(input); v != "" {
			return v, nil
		}
		fmt.Println("Value cannot be empty. Please try again.")
	}
}

func promptInt(reader *bufio.Reader, label string) (int, error) {
	for {
		v, err := prompt(reader, label)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 {
			return n, nil
		}
		fmt.Println("Please enter a positive number.")
	}
}

// checkGalleryWithSpinner loads the gallery once with a visual spinner
func checkGalleryWithSpinner(client *studio.Client, galleryID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resultCh := make(chan error, 1)
	go func() {
		_, err := client.LoadStepData(ctx, galleryID, "")
		resultCh <- err
	}()

	frame := 0
	fmt.Printf("\r%s Checking gallery...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-resultCh:
			fmt.Print(clearSpinnerLine)
			if err == nil {
				fmt.Printf("✓ Gallery %d found\n", galleryID)
			}
			return err

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Checking gallery...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return domain.ErrTimeout
		}
	}
}
