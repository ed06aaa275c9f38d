package pgjob

import (
	"time"

	"github.com/rs/zerolog"
)

// Option mutates a config value; see DefaultConfig.
type Option[T any] func(*T)

// Config carries the driver's collaborators and knobs. Build one with
// DefaultConfig and the With* options.
type Config struct {
	store    JobStore
	locker   AdmissionLocker
	executor Executor
	recorder RunRecorder

	workerName string
	logger     zerolog.Logger
	now        func() time.Time

	errorListeners []ErrorListener
}

func DefaultConfig(options ...Option[Config]) *Config {
	config := &Config{
		logger: zerolog.Nop(),
		now:    time.Now,
	}

	for _, option := range options {
		option(config)
	}

	return config
}

func WithStore(store JobStore) Option[Config] {
	return func(config *Config) {
		config.store = store
	}
}

// WithLocker sets the admission locker for parallel=false jobs. When
// unset, the driver falls back to a claim through the store.
func WithLocker(locker AdmissionLocker) Option[Config] {
	return func(config *Config) {
		config.locker = locker
	}
}

func WithExecutor(executor Executor) Option[Config] {
	return func(config *Config) {
		config.executor = executor
	}
}

func WithRecorder(recorder RunRecorder) Option[Config] {
	return func(config *Config) {
		config.recorder = recorder
	}
}

// WithWorkerName labels this driver instance in claims and run logs.
func WithWorkerName(name string) Option[Config] {
	return func(config *Config) {
		config.workerName = name
	}
}

func WithLogger(logger zerolog.Logger) Option[Config] {
	return func(config *Config) {
		config.logger = logger
	}
}

// WithNow overrides the driver's clock. Tests use this to pin the
// evaluation instant.
func WithNow(now func() time.Time) Option[Config] {
	return func(config *Config) {
		config.now = now
	}
}

func WithErrorListeners(listeners ...ErrorListener) Option[Config] {
	return func(config *Config) {
		config.errorListeners = append(config.errorListeners, listeners...)
	}
}
