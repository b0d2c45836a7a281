package wasmengine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"

	"github.com/weave-logic-ai/clawft-core/pkg/audit"
	"github.com/weave-logic-ai/clawft-core/pkg/sandbox"
)

var instanceCounter atomic.Uint64

// ExecutionResult is the outcome of one ExecuteTool call.
type ExecutionResult struct {
	Result     string
	Err        error
	DurationMS int64
	TimedOut   bool
}

// ExecuteTool instantiates module fresh (isolated linear memory per
// call, matching the upstream "each plugin gets its own Store"
// guarantee) and invokes its exported "execute-tool" function, bounded
// by config.TimeoutSecs. A timeout or trap surfaces as
// ExecutionResult.Err; TimedOut distinguishes a context-deadline trap
// from any other execution failure.
func (e *Engine) ExecuteTool(ctx context.Context, module wazero.CompiledModule, config PluginConfig, sb *sandbox.Sandbox, log *audit.Log, toolName, paramsJSON string) ExecutionResult {
	start := time.Now()

	timeout := time.Duration(config.TimeoutSecs) * time.Second
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dispatcher := NewHostFunctionDispatcher(sb, log)
	execCtx = withDispatcher(execCtx, dispatcher)

	instanceName := fmt.Sprintf("%s-%d", config.PluginID, instanceCounter.Add(1))
	instance, err := e.runtime.InstantiateModule(execCtx, module, wazero.NewModuleConfig().WithName(instanceName))
	if err != nil {
		return ExecutionResult{
			Err:        fmt.Errorf("instantiate: %w", err),
			DurationMS: elapsedMS(start),
			TimedOut:   execCtx.Err() == context.DeadlineExceeded,
		}
	}
	defer instance.Close(ctx)

	fn := instance.ExportedFunction("execute-tool")
	if fn == nil {
		fn = instance.ExportedFunction("execute_tool")
	}
	if fn == nil {
		return ExecutionResult{
			Err:        fmt.Errorf("module does not export 'execute-tool'"),
			DurationMS: elapsedMS(start),
		}
	}

	_, err = fn.Call(execCtx)
	duration := elapsedMS(start)
	if err != nil {
		return ExecutionResult{
			Err:        err,
			DurationMS: duration,
			TimedOut:   execCtx.Err() == context.DeadlineExceeded,
		}
	}

	return ExecutionResult{
		Result:     fmt.Sprintf(`{"status":"executed","tool":%q}`, toolName),
		DurationMS: duration,
	}
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
