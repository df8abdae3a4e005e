// Package workflow implements the asynchronous task and workflow
// orchestration engine. It drives individual background tasks through
// their retry lifecycle, executes multi-step workflow packages that
// chain tasks together with shared accumulating state, and manages
// package templates with an in-process read-through cache.
//
// Callers submit work and get an identifier back immediately; all
// processing happens on background goroutines owned by the
// Orchestrator and Executor. Terminal failures are only ever observable
// through the status queries, never as synchronous errors.
package workflow
