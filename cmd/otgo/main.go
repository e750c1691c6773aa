package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/otgo/server/internal/config"
	"github.com/otgo/server/internal/core/event"
	coresys "github.com/otgo/server/internal/core/system"
	"github.com/otgo/server/internal/data"
	"github.com/otgo/server/internal/handler"
	gonet "github.com/otgo/server/internal/net"
	"github.com/otgo/server/internal/net/packet"
	"github.com/otgo/server/internal/persist"
	"github.com/otgo/server/internal/scripting"
	"github.com/otgo/server/internal/system"
	"github.com/otgo/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m                OTGo  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

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

	printBanner(cfg.Server.Name)

	// 3. Static data
	printSection("data")
	items, err := data.LoadItemTable(cfg.World.ItemFile)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	printStat("items", items.Count())

	worldMap, err := data.LoadMap(cfg.World.MapFile, items)
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	for _, name := range worldMap.Skipped() {
		log.Warn("map area skipped, tile file missing", zap.String("area", name))
	}
	printStat("map areas", len(worldMap.Areas()))
	printStat("tiles", worldMap.Count())

	spawnList, err := data.LoadSpawnList(cfg.World.SpawnFile)
	if err != nil {
		return fmt.Errorf("load spawn list: %w", err)
	}

	// 4. World
	printSection("world")
	game := world.NewGame(worldMap, world.Options{
		ViewRange: world.ViewRange{
			MinX: cfg.World.ViewMinX,
			MaxX: cfg.World.ViewMaxX,
			MinY: cfg.World.ViewMinY,
			MaxY: cfg.World.ViewMaxY,
		},
		AOICellSize: cfg.World.IndexCellSize,
	}, log)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	luaEngine, err := scripting.NewEngine(cfg.World.ScriptsDir, rng, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer luaEngine.Close()

	npcAI := system.NewNpcAISystem(game, luaEngine, cfg.World.WanderEvery)
	spawned, err := system.SpawnAll(game, spawnList, npcAI, rng, log)
	if err != nil {
		return fmt.Errorf("spawn creatures: %w", err)
	}
	printStat("creatures", spawned)
	printStat("scripted", npcAI.Count())

	temple := world.Position{X: cfg.World.TempleX, Y: cfg.World.TempleY, Z: cfg.World.TempleZ}
	if !game.CanSpawnAt(temple) {
		return fmt.Errorf("temple %s has no tile", temple)
	}

	// 5. Optional PostgreSQL persistence
	printSection("database")
	bus := event.NewBus()
	deps := &handler.Deps{
		Config: cfg,
		Log:    log,
		World:  game,
		Bus:    bus,
	}
	var persistSys *system.PersistenceSystem
	if cfg.Database.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.Open(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("connected")

		version, err := db.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("schema version %d", version))

		charRepo := persist.NewCharacterRepo(db)
		deps.Accounts = persist.NewAccountRepo(db)
		deps.Characters = charRepo

		saveTicks := int(cfg.Database.SaveInterval / cfg.Network.TickRate)
		persistSys = system.NewPersistenceSystem(game, charRepo, bus, log, saveTicks)
	} else {
		printOK("disabled, characters enter at the temple")
	}

	// 6. Packet handlers
	pktReg := packet.NewRegistry(log)
	handler.RegisterAll(pktReg, deps)

	// 7. Network server
	pps := 0
	limits := gonet.Limits{MaxConnections: cfg.Network.MaxConnections}
	if cfg.RateLimit.Enabled {
		pps = cfg.RateLimit.PacketsPerSecond
		limits.MaxPerIP = cfg.RateLimit.MaxPerIP
	}
	netServer, err := gonet.NewServer(cfg.Network.BindAddress, gonet.SessionOptions{
		InQueueSize:  cfg.Network.InQueueSize,
		OutQueueSize: cfg.Network.OutQueueSize,
		PktPerSec:    pps,
		ReadTimeout:  cfg.Network.ReadTimeout,
		WriteTimeout: cfg.Network.WriteTimeout,
	}, limits, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 8. Systems
	store := gonet.NewSessionStore()
	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, pktReg, store, cfg.Network.MaxPacketsPerTick, deps, log))
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(npcAI)
	runner.Register(system.NewOutputSystem(store))
	if persistSys != nil {
		runner.Register(persistSys)
	}

	// 9. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("listening on %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("game loop running (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Network.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			netServer.Shutdown()
			if persistSys != nil {
				persistSys.SaveAllPlayers()
			}
			log.Info("server stopped",
				zap.Uint64("ticks", runner.Ticks()),
				zap.Int("players", game.PlayerCount()),
			)
			return nil
		}
	}
}

// newLogger builds a core writing to stdout: JSON lines for "json", a
// compact colored console layout otherwise. Unknown levels fall back to info.
func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		ec.CallerKey = zapcore.OmitKey
		ec.ConsoleSeparator = " "
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("logging.format %q: want json or console", cfg.Format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
