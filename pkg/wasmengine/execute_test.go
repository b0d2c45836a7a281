package wasmengine

import (
	"context"
	"testing"

	"github.com/weave-logic-ai/clawft-core/pkg/audit"
	"github.com/weave-logic-ai/clawft-core/pkg/sandbox"
)

// emptyModule is the minimal legal WebAssembly binary: magic bytes
// plus the version field, no sections, no exports.
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func newTestSandbox() *sandbox.Sandbox {
	return sandbox.FromManifest("test-plugin", sandbox.PluginPermissions{}, sandbox.ResourceConfig{})
}

func TestEngineCompilesAndRejectsMissingExport(t *testing.T) {
	ctx := context.Background()
	engine, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer engine.Close(ctx)

	module, err := engine.CompileModule(ctx, emptyModule)
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}

	sb := newTestSandbox()
	log := audit.New(100)
	cfg := DefaultPluginConfig("test-plugin")

	result := engine.ExecuteTool(ctx, module, cfg, sb, log, "noop", "{}")
	if result.Err == nil {
		t.Fatal("expected an error since the module exports no 'execute-tool' function")
	}
	if result.TimedOut {
		t.Fatal("a missing-export failure should not be reported as a timeout")
	}
}

func TestEngineRejectsInvalidModuleBytes(t *testing.T) {
	ctx := context.Background()
	engine, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer engine.Close(ctx)

	if _, err := engine.CompileModule(ctx, []byte("not wasm")); err == nil {
		t.Fatal("expected CompileModule to reject a non-wasm buffer")
	}
}
