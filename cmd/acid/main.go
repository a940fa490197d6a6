package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/acidgo/acid/internal/config"
	"github.com/acidgo/acid/internal/data"
	"github.com/acidgo/acid/internal/engine"
	"github.com/acidgo/acid/internal/persist"
	"github.com/acidgo/acid/internal/scenes"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m                acid  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        component-based game engine        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mApplication:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Engine bootstrap ──────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Engine.Name)

	// 3. Load data tables
	printSection("Data")

	layouts, err := data.LoadLayoutTable(cfg.Renderer.LayoutFile)
	if err != nil {
		return fmt.Errorf("load render layouts: %w", err)
	}
	printStat("Render layouts", layouts.Count())
	layout := layouts.Get(cfg.Renderer.Layout)
	if layout == nil {
		return fmt.Errorf("render layout %q not found in %s", cfg.Renderer.Layout, cfg.Renderer.LayoutFile)
	}

	stages, err := data.LoadModuleTable(cfg.Engine.ModuleFile)
	if err != nil {
		return fmt.Errorf("load module table: %w", err)
	}
	printStat("Module stage overrides", stages.Count())
	fmt.Println()

	// 4. Build the engine
	printSection("Modules")

	if cfg.Renderer.Backend != "headless" {
		return fmt.Errorf("renderer backend %q needs a device from the host application; acid runs headless on its own", cfg.Renderer.Backend)
	}
	eng, err := engine.New(cfg, engine.Options{Layout: layout, Stages: stages}, log)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Error("engine shutdown", zap.Error(err))
		}
	}()
	printStat("Registered modules", eng.Registry().Len())
	printStat("Script modules", len(eng.Scripts().Modules()))
	printStat("Render passes", eng.Renderer().RenderpassCount())
	fmt.Println()

	// 5. Start scene
	printSection("Scene")
	if err := startScene(cfg, eng, log); err != nil {
		return err
	}
	fmt.Println()

	// 6. Run until signalled
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printSection("Ready")
	printReady(fmt.Sprintf("Update rate %.0f/s (interval %s)", cfg.Engine.UpdateRate, cfg.Engine.UpdateInterval()))
	if cfg.Engine.FrameLimit > 0 {
		printReady(fmt.Sprintf("Frame limit %.0f/s", cfg.Engine.FrameLimit))
	} else {
		printReady("Frame rate uncapped")
	}
	fmt.Println()

	if err := eng.Run(ctx); err != nil {
		return err
	}
	log.Info("engine stopped",
		zap.Uint64("updates", eng.Updates()),
		zap.Uint64("frames", eng.Frames()),
		zap.Duration("uptime", time.Since(time.Unix(cfg.Engine.StartTime, 0))))
	return nil
}

// startScene activates the scene named by [scenes]: a YAML file, or a scene
// from the database store when only a name is set.
func startScene(cfg *config.Config, eng *engine.Engine, log *zap.Logger) error {
	switch {
	case cfg.Scenes.StartFile != "":
		if err := eng.LoadScene(cfg.Scenes.StartFile); err != nil {
			return fmt.Errorf("start scene: %w", err)
		}
	case cfg.Scenes.StartName != "" && cfg.Database.Enabled:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if _, err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("Migrations applied")

		store := persist.NewSceneStore(persist.NewSceneRepo(db), eng.Bus(), log.Named("scenes"))
		s, err := store.LoadScene(ctx, cfg.Scenes.StartName)
		if err != nil {
			return fmt.Errorf("start scene: %w", err)
		}
		if s == nil {
			return fmt.Errorf("start scene %q is not in the store", cfg.Scenes.StartName)
		}
		if err := eng.Scenes().SetScene(s); err != nil {
			return fmt.Errorf("start scene: %w", err)
		}
	default:
		if err := eng.Scenes().SetScene(scenes.NewScene("empty", eng.Bus(), log.Named("scenes"))); err != nil {
			return err
		}
	}
	cur := eng.Scenes().Current()
	printStat("Entities in "+cur.Name(), cur.Len())
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
