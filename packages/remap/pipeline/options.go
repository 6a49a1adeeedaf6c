package pipeline

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

const (
	defaultConcurrency       = 1
	defaultParallelThreshold = 1024
)

type Options struct {
	// Concurrency bounds the goroutines sweeping one rule pass. 1 keeps the sweep sequential.
	Concurrency int
	// ParallelThreshold is the smallest pending list worth splitting across goroutines.
	ParallelThreshold int
	Logger            *logrus.Entry
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Concurrency:       defaultConcurrency,
		ParallelThreshold: defaultParallelThreshold,
		Logger:            logrus.NewEntry(logrus.StandardLogger()),
	}
}

func WithConcurrency(n int) Option {
	return func(o *Options) {
		o.Concurrency = n
	}
}

func WithParallelThreshold(n int) Option {
	return func(o *Options) {
		o.ParallelThreshold = n
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// FromEnv reads LOG_LEVEL and REMAP_CONCURRENCY. The level is set on the logger configured so
// far, so pass WithLogger first when using a custom logger.
func FromEnv() Option {
	return func(o *Options) {
		if o.Logger == nil {
			o.Logger = logrus.NewEntry(logrus.StandardLogger())
		}

		if raw := os.Getenv("LOG_LEVEL"); raw != "" {
			l, err := logrus.ParseLevel(raw)
			if err != nil {
				o.Logger.WithField("LOG_LEVEL", raw).Warn("invalid log level")
			} else {
				o.Logger.Logger.SetLevel(l)
			}
		}

		if raw := os.Getenv("REMAP_CONCURRENCY"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				o.Logger.WithField("REMAP_CONCURRENCY", raw).Warn("invalid concurrency")
			} else {
				o.Concurrency = n
			}
		}
	}
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.ParallelThreshold <= 0 {
		o.ParallelThreshold = defaultParallelThreshold
	}
	if o.Logger == nil {
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
}
