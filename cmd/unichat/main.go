package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/comigor/unichat/internal/agent"
	"github.com/comigor/unichat/internal/cli"
	"github.com/comigor/unichat/internal/config"
	"github.com/comigor/unichat/internal/history"
	"github.com/comigor/unichat/internal/knowledge"
	"github.com/comigor/unichat/internal/llm"
	"github.com/comigor/unichat/internal/logger"
	"github.com/comigor/unichat/internal/remote"
	"github.com/comigor/unichat/internal/storage"
	"github.com/comigor/unichat/pkg/tools"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		logger.L.Error("unichat exited with error", "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	_ = godotenv.Load()

	flags := pflag.NewFlagSet("unichat", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to config file (default: $CONFIG_PATH or ./config.yaml)")
	config.RegisterFlags(flags)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: unichat [flags] [chat|mcp]\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	command := "chat"
	if flags.NArg() > 0 {
		command = flags.Arg(0)
	}

	// Load configuration
	cfg, err := config.LoadWithFlags(*configPath, flags)
	if err != nil {
		return err
	}

	closer := logger.Configure(cfg.Log)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := loadTable(cfg.Chat)
	if err != nil {
		return err
	}
	answerer := newAnswerer(cfg, table)

	switch command {
	case "chat":
		return chat(ctx, cfg, table, answerer)
	case "mcp":
		return serveMCP(cfg, table, answerer)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func loadTable(cfg config.ChatConfig) (*knowledge.Table, error) {
	if cfg.ResponsesFile == "" {
		return knowledge.Default(), nil
	}
	table, err := knowledge.LoadFile(cfg.ResponsesFile)
	if err != nil {
		return nil, err
	}
	logger.L.Info("response table loaded", "file", cfg.ResponsesFile, "entries", table.Len())
	return table, nil
}

func newAnswerer(cfg *config.Config, table *knowledge.Table) agent.Answerer {
	switch cfg.Chat.Mode {
	case config.ModeLocal:
		return table
	case config.ModeOpenAI:
		return llm.NewAnswerer(llm.NewClient(cfg.LLM), cfg.LLM)
	default:
		return remote.NewClient(cfg.Remote)
	}
}

func chat(ctx context.Context, cfg *config.Config, table *knowledge.Table, answerer agent.Answerer) error {
	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		// Chat still works, history just won't survive a restart.
		logger.L.Warn("failed to open storage; history will not be persisted", "driver", cfg.Storage.Driver, "error", err)
		backend = storage.NewMemory()
	}
	defer backend.Close()

	store := history.Open(ctx, backend)
	repl := cli.New(store, os.Stdin, os.Stdout)

	opts := []agent.Option{
		agent.WithStatusHandler(repl.ShowStatus),
		agent.WithNoticeHandler(repl.ShowNotice),
	}
	if cfg.Chat.LocalFallback && cfg.Chat.Mode != config.ModeLocal {
		opts = append(opts, agent.WithFallback(table))
	}

	logger.L.Info("chat started", "mode", cfg.Chat.Mode, "storage", cfg.Storage.Driver, "sessions", len(store.Sessions()))
	return repl.Run(ctx, agent.New(store, answerer, opts...))
}

func serveMCP(cfg *config.Config, table *knowledge.Table, answerer agent.Answerer) error {
	m := tools.NewToolManager()
	m.RegisterTool(tools.NewUniversityInfoTool(table))
	m.RegisterTool(tools.NewFollowUpTool(table))
	if cfg.Chat.Mode != config.ModeLocal {
		m.RegisterTool(tools.NewAnswerTool("ask_assistant",
			fmt.Sprintf("Asks the %s university assistant a question and returns its answer.", cfg.Chat.Mode),
			answerer))
	}

	logger.L.Info("serving MCP over stdio", "tools", len(m.List()))
	return tools.ServeStdio(tools.NewMCPServer(m, version))
}
