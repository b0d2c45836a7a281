// Package wasmengine runs sandboxed WASM plugins under wazero. Every
// host function call a plugin makes is routed through pkg/sandbox
// validation and recorded in pkg/audit; wall-clock execution limits
// are enforced via context cancellation rather than wasmtime-style
// fuel metering (wazero, being pure Go, does not expose an
// instruction-level fuel counter — see DESIGN.md).
package wasmengine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"

	"github.com/weave-logic-ai/clawft-core/pkg/sandbox"
)

// Hard resource ceilings a plugin's declared config is clamped to,
// regardless of what its manifest requests.
const (
	MaxMemoryHardMB      = 256
	MaxTableElementsHard = 100_000
	DefaultTimeoutSecs   = 30
	MaxTimeoutSecs       = 300
)

// PluginConfig bounds one plugin's resource budget for a single
// execution.
type PluginConfig struct {
	PluginID         string
	MaxMemoryMB      uint64
	MaxTableElements uint64
	TimeoutSecs      uint64
}

// DefaultPluginConfig returns the built-in defaults for pluginID.
func DefaultPluginConfig(pluginID string) PluginConfig {
	return PluginConfig{
		PluginID:         pluginID,
		MaxMemoryMB:      16,
		MaxTableElements: 10_000,
		TimeoutSecs:      DefaultTimeoutSecs,
	}
}

// ClampPluginConfig builds a PluginConfig from manifest-declared
// resource values, clamping each to its hard ceiling.
func ClampPluginConfig(pluginID string, maxMemoryMB, maxTableElements, timeoutSecs uint64) PluginConfig {
	cfg := PluginConfig{PluginID: pluginID, MaxMemoryMB: maxMemoryMB, MaxTableElements: maxTableElements, TimeoutSecs: timeoutSecs}
	if cfg.MaxMemoryMB == 0 || cfg.MaxMemoryMB > MaxMemoryHardMB {
		cfg.MaxMemoryMB = MaxMemoryHardMB
	}
	if cfg.MaxTableElements == 0 || cfg.MaxTableElements > MaxTableElementsHard {
		cfg.MaxTableElements = MaxTableElementsHard
	}
	if cfg.TimeoutSecs == 0 || cfg.TimeoutSecs > MaxTimeoutSecs {
		cfg.TimeoutSecs = MaxTimeoutSecs
	}
	return cfg
}

const wasmMagic = "\x00asm"

// ValidateModuleBinary checks magic bytes and uncompressed size before
// a module is handed to the compiler.
func ValidateModuleBinary(wasmBytes []byte) error {
	if len(wasmBytes) < 8 {
		return fmt.Errorf("wasm module too small (missing magic bytes)")
	}
	if string(wasmBytes[0:4]) != wasmMagic {
		return fmt.Errorf("invalid wasm module (bad magic bytes)")
	}
	return sandbox.ValidateWasmSize(len(wasmBytes))
}

// Engine holds the shared wazero runtime and compiled-module cache
// used across every plugin invocation, plus the single "host" module
// instance every plugin module imports from. WithCloseOnContextDone
// makes InstantiateModule / exported-function calls return promptly
// when the caller's context is cancelled or its deadline expires —
// this is the wall-clock timeout enforcement mechanism (the wazero
// analogue of the original's epoch-interruption background thread).
//
// The host module is instantiated once and shared across every
// plugin invocation; per-call identity (which sandbox and audit log
// to validate against) travels through context.Context rather than
// through a per-call module instance, since wazero's namespace does
// not allow two modules of the same name to coexist.
type Engine struct {
	runtime wazero.Runtime
}

// New creates an Engine whose runtime caps every module's linear memory
// at the hard memory ceiling, and instantiates the shared host module.
func New(ctx context.Context) (*Engine, error) {
	pages := uint32(MaxMemoryHardMB * 16) // 64 KiB pages per MB
	cfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithMemoryLimitPages(pages)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	hostCompiled, err := buildHostModule(ctx, rt)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("build host module: %w", err)
	}
	if _, err := rt.InstantiateModule(ctx, hostCompiled, wazero.NewModuleConfig()); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate host module: %w", err)
	}

	return &Engine{runtime: rt}, nil
}

// Close releases the runtime and every module it compiled.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// CompileModule validates and compiles wasmBytes. The result is cached
// by the underlying wazero runtime and may be instantiated many times.
func (e *Engine) CompileModule(ctx context.Context, wasmBytes []byte) (wazero.CompiledModule, error) {
	if err := ValidateModuleBinary(wasmBytes); err != nil {
		return nil, err
	}
	mod, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("module compilation: %w", err)
	}
	return mod, nil
}

// Runtime exposes the underlying wazero runtime, in which New has
// already instantiated the shared "host" module.
func (e *Engine) Runtime() wazero.Runtime {
	return e.runtime
}
