package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vibe3d/engine/internal/config"
	"github.com/vibe3d/engine/internal/core/ecs"
	"github.com/vibe3d/engine/internal/scripting"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "path to engine.toml (optional)")
	audit := flag.Bool("audit", false, "print a consistency report after the scripts finish")
	flag.Parse()

	// 1. Load config
	cfg := config.Default()
	if *cfgPath == "" {
		if p := os.Getenv("VIBE_CONFIG"); p != "" {
			*cfgPath = p
		}
	}
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Build the engine instance
	world := ecs.NewWorldWith(ecs.WorldOptions{AutoAssert: cfg.Engine.AutoAssert}, log)
	defer world.Destroy()

	// 4. Bring up scripting and run the startup scripts, then any script
	// files given on the command line.
	vm := scripting.NewEngine(world, log)
	defer vm.Close()

	if err := vm.LoadDir(cfg.Scripting.ScriptsDir); err != nil {
		return fmt.Errorf("load scripts: %w", err)
	}
	for _, path := range flag.Args() {
		if err := vm.RunFile(path); err != nil {
			return err
		}
	}

	// 5. Optional final audit
	if *audit {
		report := world.Queries().CheckConsistency()
		fmt.Printf("consistent: %v\n", report.IsConsistent)
		fmt.Printf("entities: %d in world, %d indexed; %d component types; %d parent links\n",
			report.Stats.EntitiesInWorld, report.Stats.EntitiesInIndex,
			report.Stats.ComponentTypes, report.Stats.HierarchyRelationships)
		for _, msg := range report.Errors {
			fmt.Printf("  drift: %s\n", msg)
		}
		if !report.IsConsistent {
			return fmt.Errorf("index consistency check failed with %d errors", len(report.Errors))
		}
	}
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
