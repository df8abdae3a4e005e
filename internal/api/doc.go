// Package api provides the HTTP handlers fronting the workflow engine's
// caller-facing contract: submitting tasks, triggering packages, and
// polling their status. Asynchronous failures never surface as
// synchronous errors here; callers observe them through the status
// endpoints.
package api
