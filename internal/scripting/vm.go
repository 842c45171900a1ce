// Package scripting runs JavaScript policies. A script defines
// act(obs) returning an action index or name; the VM is sandboxed and every
// call is bounded by a timeout.
package scripting

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/vovakirdan/blockfall/internal/agent"
)

// LogEntry represents a single log message from the script.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// VM wraps a goja runtime with sandbox restrictions and global function injection.
type VM struct {
	runtime *goja.Runtime
	mu      sync.Mutex

	logs    []LogEntry
	logsMu  sync.Mutex
	maxLogs int

	initTimeout time.Duration
	callTimeout time.Duration
}

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 250 * time.Millisecond
)

// NewVM creates a sandboxed goja runtime with global functions injected.
func NewVM() *VM {
	vm := &VM{
		runtime:     goja.New(),
		maxLogs:     500,
		initTimeout: scriptInitTimeout,
		callTimeout: scriptCallTimeout,
	}
	vm.injectGlobalFunctions()
	injectConstants(vm.runtime)
	return vm
}

// SetCallTimeout overrides the per-call time limit.
func (vm *VM) SetCallTimeout(d time.Duration) {
	if d > 0 {
		vm.callTimeout = d
	}
}

// injectGlobalFunctions registers log and console.log and blocks escape hatches.
func (vm *VM) injectGlobalFunctions() {
	// log(...args) appends to the log buffer
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		vm.logsMu.Lock()
		if len(vm.logs) >= vm.maxLogs {
			vm.logs = vm.logs[1:]
		}
		vm.logs = append(vm.logs, LogEntry{Time: time.Now(), Message: msg})
		vm.logsMu.Unlock()

		return goja.Undefined()
	})

	console := vm.runtime.NewObject()
	console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

// injectConstants exposes the action indices and piece kinds.
func injectConstants(rt *goja.Runtime) {
	for i := 0; i < agent.NumActions; i++ {
		rt.Set(constName(agent.Action(i).String()), i)
	}
	kinds := rt.NewObject()
	for i, name := range []string{"I", "O", "T", "S", "Z", "J", "L"} {
		kinds.Set(name, i+1)
	}
	rt.Set("KIND", kinds)
}

// constName turns "HardDrop" into "HARD_DROP".
func constName(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// Execute runs user script source code. It must define act(obs).
func (vm *VM) Execute(source string) error {
	err := vm.runWithTimeout(vm.initTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		_, err := vm.runtime.RunString(source)
		if err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !vm.HasFunc("act") {
		return fmt.Errorf("act() function is not defined")
	}
	return nil
}

// HasFunc returns true if the script defined a global function with that name.
func (vm *VM) HasFunc(name string) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	fn := vm.runtime.Get(name)
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return false
	}
	_, ok := goja.AssertFunction(fn)
	return ok
}

// CallAct calls act(obs) and converts its result into an action.
func (vm *VM) CallAct(obs agent.Observation) (agent.Action, error) {
	var out agent.Action
	err := vm.runWithTimeout(vm.callTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()

		fn := vm.runtime.Get("act")
		callable, ok := goja.AssertFunction(fn)
		if !ok {
			return fmt.Errorf("act is not a function")
		}

		result, err := callable(goja.Undefined(), vm.runtime.ToValue(observationValue(obs)))
		if err != nil {
			return fmt.Errorf("act() error: %w", err)
		}
		out, err = toAction(result)
		return err
	})
	return out, err
}

// GetLogs returns a copy of the current log buffer.
func (vm *VM) GetLogs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}

// ClearLogs clears the log buffer.
func (vm *VM) ClearLogs() {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	vm.logs = vm.logs[:0]
}

func (vm *VM) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		// Interrupt a runaway script execution.
		vm.runtime.Interrupt("script execution timeout")
		select {
		case <-done:
		case <-time.After(200 * time.Millisecond):
		}
		vm.runtime.ClearInterrupt()
		return fmt.Errorf("script timed out after %v", timeout)
	}
}
