// Command tempalert runs one monitoring workflow and feeds it readings typed
// on standard input.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite"

	"github.com/petrijr/tempalert"
	"github.com/petrijr/tempalert/internal/config"
	"github.com/petrijr/tempalert/internal/console"
	"github.com/petrijr/tempalert/internal/engine"
	"github.com/petrijr/tempalert/internal/persistence"
	"github.com/petrijr/tempalert/internal/taskqueue"
	"github.com/petrijr/tempalert/pkg/activities"
	"github.com/petrijr/tempalert/pkg/api"
	"github.com/petrijr/tempalert/pkg/metrics"
	"github.com/petrijr/tempalert/pkg/monitor"
	"github.com/petrijr/tempalert/pkg/worker"
)

const (
	choiceLightZone   = "lightzone"
	choiceTemperature = "temperature"
)

type Opts struct {
	configPath string
	workflow   string
}

func main() {
	opts := &Opts{}
	flag.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flag.StringVar(&opts.workflow, "workflow", "", "workflow to run: lightzone or temperature (prompts when empty)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := opts.run(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tempalert:", err)
		os.Exit(1)
	}
}

func (opts *Opts) run(ctx context.Context, stdin io.Reader, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	in := bufio.NewReader(stdin)
	choice := opts.workflow
	if choice == "" {
		if choice, err = menu(in, out); err != nil {
			return err
		}
	}

	observer := api.NewLoggingObserver(logger)
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		prom, err := metrics.NewPrometheusObserver(reg)
		if err != nil {
			return err
		}
		observer = api.NewCompositeObserver(observer, prom)
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.close()

	eng := engine.NewEngineWithConfig(engine.Config{
		Persistence: st.persistence,
		Observer:    observer,
		Logger:      logger,
	})
	runner := tempalert.NewLocalRunnerWith(eng, st.queue, worker.Config{Logger: logger})
	defer func() {
		runner.Stop()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := eng.Shutdown(sctx); err != nil {
			logger.Warn("engine shutdown", slog.Any("error", err))
		}
	}()

	acts := activities.NewWithConfig(activities.Config{
		Logger:             logger,
		EscalationFailures: cfg.Activities.EscalationFailures,
	})
	if err := tempalert.RegisterMonitoring(eng, acts); err != nil {
		return err
	}
	if err := runner.StartWorkers(ctx, 1); err != nil {
		return err
	}

	session := &console.Session{
		Sender:  runner,
		Querier: runner,
		Out:     out,
	}

	var help string
	switch choice {
	case choiceLightZone:
		session.InstanceID, err = runner.StartWorkflowAsync(ctx, monitor.LightAndSafeZoneWorkflow,
			"light-safezone-"+uuid.NewString(), cfg.LightZoneInput())
		session.ChildID = cfg.LightZone.BatteryChildID
		session.Parse = console.ParseLightZone
		help = console.LightZoneHelp
	case choiceTemperature:
		session.InstanceID, err = runner.StartWorkflowAsync(ctx, monitor.TemperatureEscalationWorkflow,
			"temp-alert-"+uuid.NewString(), cfg.TemperatureInput())
		session.Parse = console.ParseTemperature
		help = console.TemperatureHelp
	default:
		return fmt.Errorf("unknown workflow %q", choice)
	}
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}

	fmt.Fprintf(out, "Started workflow with ID: %s\n", session.InstanceID)
	fmt.Fprintln(out, help)

	err = session.Run(ctx, in)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func menu(in *bufio.Reader, out io.Writer) (string, error) {
	for {
		fmt.Fprintln(out, "Select a workflow:")
		fmt.Fprintln(out, "  1) Light & safe-zone monitoring")
		fmt.Fprintln(out, "  2) Temperature escalation")
		fmt.Fprint(out, "> ")

		line, err := in.ReadString('\n')
		switch strings.TrimSpace(line) {
		case "1":
			return choiceLightZone, nil
		case "2":
			return choiceTemperature, nil
		}
		if err != nil {
			return "", fmt.Errorf("read choice: %w", err)
		}
		fmt.Fprintln(out, "Invalid choice.")
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", addr))
	return srv
}

type store struct {
	persistence persistence.Persistence
	queue       taskqueue.Queue
	close       func()
}

func openStore(ctx context.Context, cfg config.StoreConfig) (*store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return &store{
			persistence: persistence.NewInMemory(),
			queue:       taskqueue.NewInMemoryQueue(0),
			close:       func() {},
		}, nil

	case config.DriverSQLite:
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		p, err := persistence.NewSQLite(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		q, err := taskqueue.NewSQLiteQueue(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &store{persistence: p, queue: q, close: func() { _ = db.Close() }}, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return &store{
			persistence: persistence.NewRedis(client, cfg.RedisPrefix),
			queue:       taskqueue.NewRedisQueue(client, cfg.RedisPrefix+"tasks"),
			close:       func() { _ = client.Close() },
		}, nil

	case config.DriverBolt:
		db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, fmt.Errorf("open bolt: %w", err)
		}
		p, err := persistence.NewBolt(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &store{
			persistence: p,
			queue:       taskqueue.NewInMemoryQueue(0),
			close:       func() { _ = db.Close() },
		}, nil

	case config.DriverPostgres:
		db, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		p, err := persistence.NewPostgres(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		q, err := taskqueue.NewPostgresQueue(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &store{persistence: p, queue: q, close: func() { _ = db.Close() }}, nil

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		return &store{
			persistence: persistence.NewMongo(client, cfg.MongoDatabase),
			queue:       taskqueue.NewMongoQueue(client, cfg.MongoDatabase, ""),
			close:       func() { _ = client.Disconnect(context.Background()) },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
