// Package luascript provides the lua_script action: a sandboxed Lua VM with
// the execution's event payload, variables and KV store exposed, and log
// bindings that append to the LogMessage stream.
package luascript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/protocol"
	lua "github.com/yuin/gopher-lua"
)

const defaultTimeout = 10 * time.Second

// ErrScriptMissing is returned when no script source is configured.
var ErrScriptMissing = errors.New("missing or invalid 'script' in configuration")

// Action runs one Lua script. The VM is opened with only the base, table,
// string and math libraries; io, os and require never exist inside it. A
// context deadline bounds runaway scripts.
type Action struct {
	sink    protocol.MessageSink
	kv      protocol.KVStore
	Script  string
	Timeout time.Duration
}

func NewAction(sink protocol.MessageSink, kv protocol.KVStore, config map[string]any) (*Action, error) {
	script, ok := config["script"].(string)
	if !ok || script == "" {
		return nil, ErrScriptMissing
	}

	timeout := defaultTimeout
	if ms, ok := config["timeout_ms"].(float64); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	return &Action{sink: sink, kv: kv, Script: script, Timeout: timeout}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "lua_script")
	logger.InfoContext(ctx, "Executing Lua script")

	scriptCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	state := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer state.Close()

	state.SetContext(scriptCtx)

	openSandboxLibs(state)

	state.SetGlobal("event", goToLua(state, executionCtx.TriggerData))

	varsTable := goToLua(state, anyMap(executionCtx.Variables))
	state.SetGlobal("vars", varsTable)

	a.bindLogFunctions(scriptCtx, state, executionCtx)
	a.bindKVFunctions(scriptCtx, state, executionCtx)

	err := state.DoString(a.Script)
	if err != nil {
		if scriptCtx.Err() != nil {
			return nil, fmt.Errorf("script exceeded time limit: %w", scriptCtx.Err())
		}

		return nil, fmt.Errorf("script failed: %w", err)
	}

	// mutations to the vars table become execution variables
	if table, ok := varsTable.(*lua.LTable); ok {
		updated, _ := luaToGo(table).(map[string]any)
		if updated != nil {
			executionCtx.Variables = updated
		}
	}

	var result any
	if state.GetTop() > 0 {
		result = luaToGo(state.Get(-1))
	}

	return result, nil
}

// openSandboxLibs loads only the side-effect-free standard libraries.
func openSandboxLibs(state *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		state.Push(state.NewFunction(lib.fn))
		state.Push(lua.LString(lib.name))
		state.Call(1, 0)
	}

	// base brings in dofile/loadfile, which reach the filesystem
	state.SetGlobal("dofile", lua.LNil)
	state.SetGlobal("loadfile", lua.LNil)
	state.SetGlobal("print", lua.LNil)
}

func (a *Action) bindLogFunctions(ctx context.Context, state *lua.LState, executionCtx *models.ExecutionContext) {
	bind := func(name string, level models.LogLevel) {
		state.SetGlobal(name, state.NewFunction(func(l *lua.LState) int {
			message := l.CheckString(1)

			entry := &models.LogMessage{
				ID:          uuid.New().String(),
				ExecutionID: executionCtx.ExecutionID,
				StepID:      executionCtx.StepID,
				StepName:    executionCtx.StepName,
				LogTime:     time.Now().UTC(),
				Level:       level,
				Message:     message,
				Variables:   maps.Clone(executionCtx.Variables),
			}

			if err := a.sink.Append(ctx, entry); err != nil {
				l.RaiseError("log append failed: %v", err)
			}

			return 0
		}))
	}

	bind("log", models.LogLevelInfo)
	bind("log_debug", models.LogLevelDebug)
	bind("log_warn", models.LogLevelWarn)
	bind("log_error", models.LogLevelError)
}

func (a *Action) bindKVFunctions(ctx context.Context, state *lua.LState, executionCtx *models.ExecutionContext) {
	state.SetGlobal("kv_get", state.NewFunction(func(l *lua.LState) int {
		key := l.CheckString(1)

		value, found, err := a.kv.Get(ctx, executionCtx.WorkflowID, key)
		if err != nil {
			l.RaiseError("kv_get failed: %v", err)

			return 0
		}

		if !found {
			l.Push(lua.LNil)

			return 1
		}

		l.Push(goToLua(l, value))

		return 1
	}))

	state.SetGlobal("kv_set", state.NewFunction(func(l *lua.LState) int {
		key := l.CheckString(1)
		value := luaToGo(l.Get(2))

		if err := a.kv.Set(ctx, executionCtx.WorkflowID, key, value); err != nil {
			l.RaiseError("kv_set failed: %v", err)
		}

		return 0
	}))

	state.SetGlobal("kv_delete", state.NewFunction(func(l *lua.LState) int {
		key := l.CheckString(1)

		if err := a.kv.Delete(ctx, executionCtx.WorkflowID, key); err != nil {
			l.RaiseError("kv_delete failed: %v", err)
		}

		return 0
	}))
}

func anyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return m
}

// ActionFactory creates lua_script actions.
type ActionFactory struct {
	sink protocol.MessageSink
	kv   protocol.KVStore
}

func NewActionFactory(sink protocol.MessageSink, kv protocol.KVStore) *ActionFactory {
	return &ActionFactory{sink: sink, kv: kv}
}

func (*ActionFactory) ID() string {
	return "lua_script"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(f.sink, f.kv, config)
}
