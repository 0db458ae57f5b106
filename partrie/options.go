package partrie

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/aglyzov/partrie/epoch"
)

const (
	DefaultRootCapacity = 8
	DefaultNodeCapacity = 13
)

type growthLevel string

const (
	rootLevel growthLevel = "root"
	nodeLevel growthLevel = "node"
)

// Observer receives structural events of a Trie. Implementations must be safe
// for concurrent use.
type Observer interface {
	ObserveInsert(rootLen int)
	ObserveFind(results int)
	ObserveGrowth(level string, capacity int)
	ObserveRetire()
}

type nopObserver struct{}

func (nopObserver) ObserveInsert(int)         {}
func (nopObserver) ObserveFind(int)           {}
func (nopObserver) ObserveGrowth(string, int) {}
func (nopObserver) ObserveRetire()            {}

type config struct {
	rootCap   int
	nodeCap   int
	collector *epoch.Collector
	log       logrus.FieldLogger
	obs       Observer
}

type Option func(*config)

// WithRootCapacity sets the initial size of the root array.
func WithRootCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.rootCap = n
		}
	}
}

// WithNodeCapacity sets the initial size of every children array.
func WithNodeCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.nodeCap = n
		}
	}
}

// WithCollector makes the trie pin its guards on c instead of epoch.Default().
func WithCollector(c *epoch.Collector) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.collector = c
		}
	}
}

// WithLogger enables debug logging of growth events. By default nothing is
// logged anywhere.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(c *config) {
		if obs != nil {
			c.obs = obs
		}
	}
}

func newConfig(opts []Option) *config {
	silent := logrus.New()
	silent.SetOutput(io.Discard)

	cfg := &config{
		rootCap:   DefaultRootCapacity,
		nodeCap:   DefaultNodeCapacity,
		collector: epoch.Default(),
		log:       silent,
		obs:       nopObserver{},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cfg.log = cfg.log.WithField("component", "partrie")

	return cfg
}
