package synth

import (
	"errors"

	"github.com/cwbudde/algo-synth/dsp/automation"
	"github.com/cwbudde/algo-synth/dsp/core"
	"github.com/cwbudde/algo-synth/dsp/wavetable"
)

// Context carries the state every voice shares: the processing config,
// the parameter scheduler running at the internal rate, and the
// read-only wavetable store.
type Context struct {
	cfg   core.ProcessorConfig
	sched *automation.Scheduler
	store *wavetable.Store
}

// NewContext validates the config built from opts and creates a scheduler
// for it. A nil store is replaced by the standard waveforms at
// wavetable.DefaultSize.
func NewContext(store *wavetable.Store, opts ...core.ProcessorOption) (*Context, error) {
	cfg := core.ApplyProcessorOptions(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if store == nil {
		var err error
		store, err = wavetable.NewStandardStore(wavetable.DefaultSize)
		if err != nil {
			return nil, err
		}
	}

	sched, err := automation.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Context{cfg: cfg, sched: sched, store: store}, nil
}

// Config returns the processing config.
func (c *Context) Config() core.ProcessorConfig { return c.cfg }

// Scheduler returns the shared parameter scheduler.
func (c *Context) Scheduler() *automation.Scheduler { return c.sched }

// Store returns the wavetable store.
func (c *Context) Store() *wavetable.Store { return c.store }

// Reset applies opts on top of the current config and reallocates the
// scheduler state for it. Registrations survive; pending events are
// dropped and the cursor returns to zero. Graphs built for the old block
// size must be rebuilt by the caller, which [Engine.Reset] does.
func (c *Context) Reset(opts ...core.ProcessorOption) error {
	cfg := c.cfg
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if c.sched == nil {
		return errors.New("synth: context has no scheduler")
	}
	if err := c.sched.Reset(cfg.InternalRate(), cfg.InternalBlockSize()); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}
