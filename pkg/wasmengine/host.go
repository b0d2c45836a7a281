package wasmengine

import (
	"context"
	"errors"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/weave-logic-ai/clawft-core/pkg/audit"
	"github.com/weave-logic-ai/clawft-core/pkg/sandbox"
)

// HostFunctionDispatcher bridges the "host" import module exposed to
// plugins and the sandbox validation + audit recording layer. One
// dispatcher is constructed per plugin instance; it is stateless
// beyond its sandbox and audit log references so it is safe to share
// across concurrent invocations of the same plugin.
type HostFunctionDispatcher struct {
	sandbox *sandbox.Sandbox
	audit   *audit.Log
}

// NewHostFunctionDispatcher constructs a dispatcher for one plugin.
func NewHostFunctionDispatcher(sb *sandbox.Sandbox, log *audit.Log) *HostFunctionDispatcher {
	return &HostFunctionDispatcher{sandbox: sb, audit: log}
}

// HandleHTTPRequest validates an outbound request. Actual HTTP
// execution is not wired: this mirrors the upstream implementation,
// which stops at "validation passed" and leaves request execution to
// a future iteration. The audit entry is recorded as a success at the
// point validation passes, before (a would-be) execution — the same
// ordering tradeoff the upstream code makes. validated reports
// whether the request cleared sandbox checks, independent of whether
// it was actually executed.
func (d *HostFunctionDispatcher) HandleHTTPRequest(method, url string, body []byte) (validated bool, err error) {
	summary := method + " " + url
	if err := d.sandbox.ValidateHTTPRequest(url, body); err != nil {
		d.audit.Record("http-request", summary, false, err.Error())
		return false, err
	}
	d.audit.Record("http-request", summary, true, "")
	return true, nil
}

// HandleReadFile validates and performs a file read.
func (d *HostFunctionDispatcher) HandleReadFile(path string) (string, error) {
	canonical, err := d.sandbox.ValidateFileAccess(path, false)
	if err != nil {
		d.audit.Record("read-file", path, false, err.Error())
		return "", err
	}
	content, err := os.ReadFile(canonical)
	if err != nil {
		d.audit.Record("read-file", path, false, "read error: "+err.Error())
		return "", err
	}
	d.audit.Record("read-file", path, true, "")
	return string(content), nil
}

const maxWriteSize = 4 * 1024 * 1024

// HandleWriteFile validates and performs a file write.
func (d *HostFunctionDispatcher) HandleWriteFile(path, content string) error {
	if len(content) > maxWriteSize {
		d.audit.Record("write-file", path, false, "write content too large")
		return errors.New("write content too large")
	}
	canonical, err := d.sandbox.ValidateFileAccess(path, true)
	if err != nil {
		d.audit.Record("write-file", path, false, err.Error())
		return err
	}
	if err := os.WriteFile(canonical, []byte(content), 0o644); err != nil {
		d.audit.Record("write-file", path, false, "write error: "+err.Error())
		return err
	}
	d.audit.Record("write-file", path, true, "")
	return nil
}

// HandleGetEnv validates and resolves an environment variable lookup.
func (d *HostFunctionDispatcher) HandleGetEnv(name string) (string, bool) {
	allowed, _ := d.sandbox.ValidateEnvAccess(name)
	if !allowed {
		d.audit.Record("get-env", name, false, "not permitted or not set")
		return "", false
	}
	val, ok := os.LookupEnv(name)
	if !ok {
		d.audit.Record("get-env", name, false, "not permitted or not set")
		return "", false
	}
	d.audit.Record("get-env", name, true, "")
	return val, true
}

var logLevelNames = [...]string{"error", "warn", "info", "debug", "trace"}

// HandleLog validates, rate-limits, and records a plugin log message.
func (d *HostFunctionDispatcher) HandleLog(level uint8, message string) {
	processed, rateLimited := d.sandbox.ValidateLogMessage(message)

	levelName := "trace"
	if int(level) < len(logLevelNames) {
		levelName = logLevelNames[level]
	}

	if rateLimited {
		d.audit.Record("log", levelName+": [rate limited]", false, "rate limit exceeded")
		return
	}
	d.audit.Record("log", levelName+": "+processed, true, "")
}

func readWasmString(mem api.Memory, ptr, length uint32) string {
	buf, ok := mem.Read(ptr, length)
	if !ok {
		return ""
	}
	return string(buf)
}

type dispatcherCtxKey struct{}

// withDispatcher attaches dispatcher to ctx so the shared host module
// can resolve which plugin's sandbox and audit log to validate
// against for calls made during this particular execution. wazero
// propagates the context passed to an exported function's Call into
// any host function it invokes, so this is set once per ExecuteTool
// call and read inside each host function below.
func withDispatcher(ctx context.Context, d *HostFunctionDispatcher) context.Context {
	return context.WithValue(ctx, dispatcherCtxKey{}, d)
}

func dispatcherFromContext(ctx context.Context) *HostFunctionDispatcher {
	d, _ := ctx.Value(dispatcherCtxKey{}).(*HostFunctionDispatcher)
	return d
}

// buildHostModule compiles the "host" module exposing http-request,
// read-file, write-file, get-env, and log. It is instantiated exactly
// once per Engine; callers identify themselves per-call via
// withDispatcher rather than via a dedicated module instance, since
// wazero's namespace only allows one module of a given name at a time.
func buildHostModule(ctx context.Context, rt wazero.Runtime) (wazero.CompiledModule, error) {
	builder := rt.NewHostModuleBuilder("host")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, methodPtr, methodLen, urlPtr, urlLen, bodyPtr, bodyLen uint32) int32 {
		dispatcher := dispatcherFromContext(ctx)
		if dispatcher == nil {
			return -1
		}
		method := readWasmString(m.Memory(), methodPtr, methodLen)
		url := readWasmString(m.Memory(), urlPtr, urlLen)
		var body []byte
		if bodyLen > 0 {
			body = []byte(readWasmString(m.Memory(), bodyPtr, bodyLen))
		}
		validated, _ := dispatcher.HandleHTTPRequest(method, url, body)
		if !validated {
			return -1
		}
		return 0
	}).Export("http-request")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, pathPtr, pathLen uint32) int32 {
		dispatcher := dispatcherFromContext(ctx)
		if dispatcher == nil {
			return -1
		}
		path := readWasmString(m.Memory(), pathPtr, pathLen)
		if _, err := dispatcher.HandleReadFile(path); err != nil {
			return -1
		}
		return 0
	}).Export("read-file")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, pathPtr, pathLen, contentPtr, contentLen uint32) int32 {
		dispatcher := dispatcherFromContext(ctx)
		if dispatcher == nil {
			return -1
		}
		path := readWasmString(m.Memory(), pathPtr, pathLen)
		content := readWasmString(m.Memory(), contentPtr, contentLen)
		if err := dispatcher.HandleWriteFile(path, content); err != nil {
			return -1
		}
		return 0
	}).Export("write-file")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, namePtr, nameLen uint32) int32 {
		dispatcher := dispatcherFromContext(ctx)
		if dispatcher == nil {
			return 0
		}
		name := readWasmString(m.Memory(), namePtr, nameLen)
		if _, ok := dispatcher.HandleGetEnv(name); ok {
			return 1
		}
		return 0
	}).Export("get-env")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, level uint32, msgPtr, msgLen uint32) {
		dispatcher := dispatcherFromContext(ctx)
		if dispatcher == nil {
			return
		}
		message := readWasmString(m.Memory(), msgPtr, msgLen)
		dispatcher.HandleLog(uint8(level), message)
	}).Export("log")

	return builder.Compile(ctx)
}
