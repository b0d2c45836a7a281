package wasmengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/weave-logic-ai/clawft-core/pkg/audit"
	"github.com/weave-logic-ai/clawft-core/pkg/sandbox"
)

func TestHandleGetEnvDeniesUnlistedName(t *testing.T) {
	sb := sandbox.FromManifest("p", sandbox.PluginPermissions{EnvVars: []string{"ALLOWED"}}, sandbox.ResourceConfig{})
	log := audit.New(10)
	d := NewHostFunctionDispatcher(sb, log)

	if _, ok := d.HandleGetEnv("NOT_ALLOWED"); ok {
		t.Fatal("expected an unlisted env var to be denied")
	}
	if log.DeniedCount() != 1 {
		t.Fatalf("expected one denied audit entry, got %d", log.DeniedCount())
	}
}

func TestHandleGetEnvAllowsListedName(t *testing.T) {
	t.Setenv("MY_ALLOWED_VAR", "value")
	sb := sandbox.FromManifest("p", sandbox.PluginPermissions{EnvVars: []string{"MY_ALLOWED_VAR"}}, sandbox.ResourceConfig{})
	log := audit.New(10)
	d := NewHostFunctionDispatcher(sb, log)

	val, ok := d.HandleGetEnv("MY_ALLOWED_VAR")
	if !ok || val != "value" {
		t.Fatalf("expected allowed env var to resolve, got %q, %v", val, ok)
	}
}

func TestHandleReadWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sb := sandbox.FromManifest("p", sandbox.PluginPermissions{Filesystem: []string{dir}}, sandbox.ResourceConfig{})
	log := audit.New(10)
	d := NewHostFunctionDispatcher(sb, log)

	path := filepath.Join(dir, "out.txt")
	if err := d.HandleWriteFile(path, "hello"); err != nil {
		t.Fatalf("HandleWriteFile: %v", err)
	}

	content, err := d.HandleReadFile(path)
	if err != nil {
		t.Fatalf("HandleReadFile: %v", err)
	}
	if content != "hello" {
		t.Fatalf("expected round-tripped content 'hello', got %q", content)
	}
}

func TestHandleWriteFileDeniedOutsideSandbox(t *testing.T) {
	dir := t.TempDir()
	sb := sandbox.FromManifest("p", sandbox.PluginPermissions{Filesystem: []string{dir}}, sandbox.ResourceConfig{})
	log := audit.New(10)
	d := NewHostFunctionDispatcher(sb, log)

	outside := filepath.Join(os.TempDir(), "definitely-outside-sandbox.txt")
	if err := d.HandleWriteFile(outside, "nope"); err == nil {
		t.Fatal("expected a write outside the sandbox to be denied")
	}
}

func TestHandleLogTruncatesAndRecords(t *testing.T) {
	sb := sandbox.FromManifest("p", sandbox.PluginPermissions{}, sandbox.ResourceConfig{MaxLogMessagesPerMinute: 10})
	log := audit.New(10)
	d := NewHostFunctionDispatcher(sb, log)

	d.HandleLog(2, "hello world")
	if log.CountByFunction("log") != 1 {
		t.Fatalf("expected one log audit entry, got %d", log.CountByFunction("log"))
	}
}
