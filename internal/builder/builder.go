// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/extforge/extforge/internal/bundler"
	"github.com/extforge/extforge/pkg/buildplan"
	"github.com/extforge/extforge/pkg/manifest"
)

// Option keys accepted by SetOption.
const (
	OptionWatch   = "watch"
	OptionSyncDir = "syncDir"
)

type (
	// Validator checks raw manifest bytes. *manifest.Validator implements it.
	Validator interface {
		Validate(raw []byte) (*manifest.Manifest, error)
	}

	// Option configures a Builder.
	Option func(*Builder)

	// Builder drives one extension build at a time.
	Builder struct {
		raw       []byte
		validator Validator
		invoker   bundler.Invoker
		logger    *log.Logger

		optMu   sync.Mutex
		options bundler.Options

		running atomic.Bool
		state   atomic.Int32

		resMu    sync.RWMutex
		manifest *manifest.Manifest
		plan     *buildplan.Plan
	}
)

// WithInvoker sets the bundler used by Build.
func WithInvoker(inv bundler.Invoker) Option {
	return func(b *Builder) { b.invoker = inv }
}

// WithValidator replaces the default manifest validator.
func WithValidator(v Validator) Option {
	return func(b *Builder) { b.validator = v }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithOptions sets the initial option bag.
func WithOptions(o bundler.Options) Option {
	return func(b *Builder) { b.options = o }
}

// New returns a Builder for the raw manifest JSON.
func New(raw []byte, opts ...Option) *Builder {
	b := &Builder{
		raw:       raw,
		validator: &manifest.Validator{},
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.state.Store(int32(StateCreated))
	return b
}

// NewFromValue returns a Builder for an already decoded manifest document.
func NewFromValue(v any, opts ...Option) (*Builder, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return New(raw, opts...), nil
}

// State returns the current pipeline state.
func (b *Builder) State() State { return State(b.state.Load()) }

// Options returns a copy of the current option bag.
func (b *Builder) Options() bundler.Options {
	b.optMu.Lock()
	defer b.optMu.Unlock()
	return b.options
}

// SetOption sets "watch" or "syncDir". The change applies from the next
// Build. The stored syncDir is reported by Options, but Build always syncs
// on the first pass and never on the second, whatever its value.
func (b *Builder) SetOption(key string, value bool) error {
	b.optMu.Lock()
	defer b.optMu.Unlock()
	switch key {
	case OptionWatch:
		b.options.Watch = value
	case OptionSyncDir:
		b.options.SyncDir = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOption, key)
	}
	return nil
}

// Manifest returns the validated manifest, or nil before Init succeeded.
func (b *Builder) Manifest() *manifest.Manifest {
	b.resMu.RLock()
	defer b.resMu.RUnlock()
	return b.manifest
}

// Plan returns the build plan, or nil before Init succeeded.
func (b *Builder) Plan() *buildplan.Plan {
	b.resMu.RLock()
	defer b.resMu.RUnlock()
	return b.plan
}

// Init validates the manifest and runs every extraction step. Nothing is
// extracted from a manifest that fails validation.
func (b *Builder) Init(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrBuildInProgress
	}
	defer b.running.Store(false)

	if _, err := b.init(ctx); err != nil {
		return err
	}
	b.setState(StateReady)
	return nil
}

// Build runs Init and both bundler passes. Any failure stops the pipeline
// and is returned as a *BuildError.
func (b *Builder) Build(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrBuildInProgress
	}
	defer b.running.Store(false)

	passes := passOptions(b.Options())

	plan, err := b.init(ctx)
	if err != nil {
		return err
	}

	entries := plan.EntryPoints()
	b.logger.Debug("entry points", "entries", entries)

	for i, stage := range []State{StateSyncing, StateBundling} {
		if err := b.bundle(ctx, stage, entries, passes[i]); err != nil {
			return err
		}
	}

	b.setState(StateDone)
	b.logger.Info("build complete", "entries", len(entries))
	return nil
}

func (b *Builder) init(ctx context.Context) (*buildplan.Plan, error) {
	b.setResult(nil, nil)

	b.setState(StateValidating)
	if err := ctx.Err(); err != nil {
		return nil, b.fail(StateValidating, err)
	}
	m, err := b.validator.Validate(b.raw)
	if err != nil {
		return nil, b.fail(StateValidating, err)
	}
	b.logger.Debug("manifest valid", "name", m.Name, "version", m.Version)

	b.setState(StateExtracting)
	if err := ctx.Err(); err != nil {
		return nil, b.fail(StateExtracting, err)
	}
	plan := buildplan.Extract(m)
	b.setResult(m, plan)
	return plan, nil
}

func (b *Builder) setResult(m *manifest.Manifest, p *buildplan.Plan) {
	b.resMu.Lock()
	b.manifest, b.plan = m, p
	b.resMu.Unlock()
}

func (b *Builder) bundle(ctx context.Context, stage State, entries []string, opts bundler.Options) error {
	b.setState(stage)
	if err := ctx.Err(); err != nil {
		return b.fail(stage, err)
	}
	if b.invoker == nil {
		return b.fail(stage, ErrNoInvoker)
	}
	b.logger.Debug("bundling", "pass", stage, "syncDir", opts.SyncDir, "watch", opts.Watch)
	if err := b.invoker.BuildScripts(ctx, entries, opts); err != nil {
		return b.fail(stage, err)
	}
	return nil
}

func (b *Builder) fail(stage State, err error) error {
	b.setState(StateFailed)
	return &BuildError{Stage: stage, Err: err}
}

func (b *Builder) setState(s State) { b.state.Store(int32(s)) }

// passOptions derives the two pass snapshots from the option bag. Only the
// clean pass watches, so at most one watcher is alive per build. SyncDir is
// fixed per pass and ignores the bag.
func passOptions(base bundler.Options) [2]bundler.Options {
	return [2]bundler.Options{
		{SyncDir: true, Watch: false},
		{SyncDir: false, Watch: base.Watch},
	}
}
