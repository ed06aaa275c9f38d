package main

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/schedcore/pgjob"
)

// shellExecutor runs a job's command through the shell. The context
// carries the job timeout; exceeding it kills the process.
type shellExecutor struct{}

func (shellExecutor) Execute(ctx context.Context, job pgjob.Job) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", job.Command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

type logListener struct {
	log zerolog.Logger
}

func (l logListener) OnError(err error) {
	l.log.Error().Err(err).Msg("driver error")
}

func main() {
	configPath := pflag.StringP("config", "c", "pgjobd.yaml", "path to config file")
	logLevel := pflag.String("log-level", "", "override configured log level")
	pflag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		log = log.Level(lvl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := pgjob.NewPqStore(ctx, cfg.Postgres.Conn)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to postgres")
	}
	defer closeStore()
	log.Info().Msg("connected to postgres")

	options := []pgjob.Option[pgjob.Config]{
		pgjob.WithStore(store),
		pgjob.WithExecutor(shellExecutor{}),
		pgjob.WithWorkerName(cfg.WorkerName),
		pgjob.WithLogger(log),
		pgjob.WithErrorListeners(logListener{log: log}),
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("connecting to redis")
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
		options = append(options, pgjob.WithLocker(pgjob.NewRedisLocker(rdb, cfg.lockTTL)))
	}

	driver, err := pgjob.NewDriver(pgjob.DefaultConfig(options...))
	if err != nil {
		log.Fatal().Err(err).Msg("creating driver")
	}

	if err := driver.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("starting driver")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := driver.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("stopping driver")
	}
}
