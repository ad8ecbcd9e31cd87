package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/flarexio/simgen"
	"github.com/flarexio/simgen/embedding"
	"github.com/flarexio/simgen/persistence/sqlitevec"

	mcpE "github.com/flarexio/simgen/mcp"
	httpT "github.com/flarexio/simgen/transport/http"
	natsT "github.com/flarexio/simgen/transport/nats"
)

func main() {
	natsFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "nats",
			Usage:   "NATS server URL",
			Sources: cli.EnvVars("NATS_URL"),
		},
		&cli.StringFlag{
			Name:    "nats-creds",
			Usage:   "NATS user credentials file",
			Sources: cli.EnvVars("NATS_CREDS"),
		},
		&cli.StringFlag{
			Name:  "nats-topic",
			Usage: "NATS subject prefix of the service",
			Value: "simgen",
		},
	}

	cmd := &cli.Command{
		Name:  "simgen",
		Usage: "Semantic search over text collections",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the SimGen service",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Usage:   "Path to the YAML config file",
						Value:   "config.yaml",
						Sources: cli.EnvVars("SIMGEN_CONFIG"),
					},
					&cli.StringFlag{
						Name:    "host",
						Usage:   "HTTP listen host",
						Sources: cli.EnvVars("SIMGEN_HOST"),
					},
					&cli.IntFlag{
						Name:    "port",
						Usage:   "HTTP listen port",
						Sources: cli.EnvVars("SIMGEN_PORT"),
					},
					&cli.StringFlag{
						Name:    "db",
						Usage:   "Path to the SQLite database file",
						Sources: cli.EnvVars("SIMGEN_DB"),
					},
					&cli.StringFlag{
						Name:    "model",
						Usage:   "Embedding model as <provider>:<model>",
						Sources: cli.EnvVars("SIMGEN_MODEL"),
					},
					&cli.StringFlag{
						Name:    "api-key",
						Usage:   "API key of the embedding provider",
						Sources: cli.EnvVars("SIMGEN_API_KEY", "OPENAI_API_KEY"),
					},
					&cli.BoolFlag{
						Name:  "log-production",
						Usage: "Use the production logger",
					},
				}, natsFlags...),
				Action: serve,
			},
			{
				Name:      "search",
				Usage:     "Search a collection through a running service",
				ArgsUsage: "<collection> <text...>",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: simgen.DefaultLimit,
					},
				}, natsFlags...),
				Action: search,
			},
			{
				Name:   "collections",
				Usage:  "List collections through a running service",
				Flags:  natsFlags,
				Action: collections,
			},
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func loadConfig(cmd *cli.Command) (simgen.Config, error) {
	cfg, err := simgen.LoadConfig(cmd.String("config"))
	if err != nil {
		return cfg, err
	}

	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}

	if cmd.IsSet("port") {
		cfg.Server.Port = cmd.Int("port")
	}

	if cmd.IsSet("db") {
		cfg.Database.Path = cmd.String("db")
	}

	if cmd.IsSet("model") {
		cfg.Embedding.Model = cmd.String("model")
	}

	if cmd.IsSet("api-key") {
		cfg.Embedding.APIKey = cmd.String("api-key")
	}

	return cfg, cfg.Validate()
}

func connect(cmd *cli.Command, name string) (*nats.Conn, error) {
	natsURL := cmd.String("nats")
	if natsURL == "" {
		return nil, errors.New("nats url is required")
	}

	opts := []nats.Option{
		nats.Name(name),
	}

	if creds := cmd.String("nats-creds"); creds != "" {
		opts = append(opts, nats.UserCredentials(creds))
	}

	return nats.Connect(natsURL, opts...)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	var (
		log *zap.Logger
		err error
	)

	if cmd.Bool("log-production") {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}

	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pool, err := sqlitevec.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}

	embedder, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		pool.Close()
		return err
	}

	svc, err := simgen.NewService(cfg, pool, embedder)
	if err != nil {
		pool.Close()
		return err
	}

	svc = simgen.LoggingMiddleware(log)(svc)
	defer svc.Close()

	endpoints := simgen.MakeEndpoints(svc)

	// Add NATS Transport
	if cmd.IsSet("nats") {
		nc, err := connect(cmd, "SimGen Server")
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "simgen",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup(cmd.String("nats-topic"))
		natsT.AddEndpoints(root, endpoints)

		log.Info("nats transport enabled", zap.String("topic", cmd.String("nats-topic")))
	}

	r := gin.Default()
	httpT.AddRouters(r, endpoints)

	{
		endpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
		endpoints[mcp.MethodInitialize] = mcpE.InitializeEndpoint(svc)
		endpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
		endpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint(svc)
		endpoints[mcp.MethodToolsCall] = mcpE.CallToolEndpoint(svc)
		httpT.AddStreamableRouters(r, endpoints)
	}

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: r,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", server.Addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sign := <-quit:
		log.Info("graceful shutdown", zap.String("signal", sign.String()))

	case err := <-errs:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func search(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return errors.New("usage: simgen search <collection> <text...>")
	}

	nc, err := connect(cmd, "SimGen Client")
	if err != nil {
		return err
	}
	defer nc.Drain()

	endpoints := natsT.MakeEndpoints(nc, cmd.String("nats-topic"))

	var svc simgen.Service
	svc = simgen.ProxyMiddleware(endpoints)(svc)

	results, err := svc.Search(ctx, args[0], strings.Join(args[1:], " "), cmd.Int("limit"))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func collections(ctx context.Context, cmd *cli.Command) error {
	nc, err := connect(cmd, "SimGen Client")
	if err != nil {
		return err
	}
	defer nc.Drain()

	endpoints := natsT.MakeEndpoints(nc, cmd.String("nats-topic"))

	var svc simgen.Service
	svc = simgen.ProxyMiddleware(endpoints)(svc)

	collections, err := svc.ListCollections(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(collections)
}
