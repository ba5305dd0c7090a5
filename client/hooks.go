package client

import (
	"context"
	"time"
)

// HookContext describes the command being executed.
// Before hooks may rewrite Command; After hooks see the outcome.
type HookContext struct {
	// Command is the command text, without its NUL terminator
	Command string

	// Verb names the operation, e.g. "append" or "get_exp"
	Verb string

	// Database and Table the command addresses, when known
	Database string
	Table    string

	// StartTime is when the command execution began
	StartTime time.Time

	// Metadata allows hooks to store arbitrary data for passing between Before/After
	Metadata map[string]interface{}

	// TraceID is the unique identifier for this command execution
	TraceID string

	// Response holds the raw response bytes (After only)
	Response []byte

	// Status is the decoded status byte of a mutation (After only)
	Status *int8

	// Rows is the number of decoded rows for gets (After only)
	Rows int

	// Error stores any error that occurred (After only)
	Error error

	// Duration is the execution time (After only)
	Duration time.Duration
}

// Hook observes or vetoes commands.
type Hook interface {
	// Name returns the unique name of this hook
	Name() string

	// Before is called before the command is sent.
	// Returning an error aborts the command and returns the error.
	Before(ctx context.Context, hookCtx *HookContext) error

	// After is called after the command completes, even if it failed.
	// Returning an error replaces any existing error.
	After(ctx context.Context, hookCtx *HookContext) error
}

// RegisterHook adds a hook to the chain. Hooks run in registration order;
// registering a name twice replaces the earlier hook in place.
func (c *Client) RegisterHook(hook Hook) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()

	for i, h := range c.hooks {
		if h.Name() == hook.Name() {
			c.hooks[i] = hook
			c.logger.Debug("hook replaced", String("hook", hook.Name()))
			return
		}
	}

	c.hooks = append(c.hooks, hook)
	c.logger.Debug("hook registered", String("hook", hook.Name()), Int("order", len(c.hooks)-1))
}

// UnregisterHook removes a hook by name.
// Returns true if the hook was found and removed, false otherwise.
func (c *Client) UnregisterHook(name string) bool {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()

	for i, h := range c.hooks {
		if h.Name() == name {
			c.hooks = append(c.hooks[:i], c.hooks[i+1:]...)
			c.logger.Debug("hook unregistered", String("hook", name))
			return true
		}
	}
	return false
}

// GetHooks returns the names of all registered hooks in execution order.
func (c *Client) GetHooks() []string {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()

	names := make([]string, len(c.hooks))
	for i, h := range c.hooks {
		names[i] = h.Name()
	}
	return names
}

func (c *Client) snapshotHooks() []Hook {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()
	hooks := make([]Hook, len(c.hooks))
	copy(hooks, c.hooks)
	return hooks
}

// executeBeforeHooks runs all Before hooks in order, stopping at the first error.
func (c *Client) executeBeforeHooks(ctx context.Context, hookCtx *HookContext) error {
	for _, hook := range c.snapshotHooks() {
		if err := hook.Before(ctx, hookCtx); err != nil {
			c.logger.Debug("hook aborted command",
				String("hook", hook.Name()),
				String("verb", hookCtx.Verb),
				String("trace_id", hookCtx.TraceID),
				Error("error", err))
			return err
		}
	}
	return nil
}

// executeAfterHooks runs every After hook and returns the last error, if any.
func (c *Client) executeAfterHooks(ctx context.Context, hookCtx *HookContext) error {
	var lastErr error
	for _, hook := range c.snapshotHooks() {
		if err := hook.After(ctx, hookCtx); err != nil {
			c.logger.Debug("hook returned error in After",
				String("hook", hook.Name()),
				String("verb", hookCtx.Verb),
				String("trace_id", hookCtx.TraceID),
				Error("error", err))
			lastErr = err
		}
	}
	return lastErr
}
