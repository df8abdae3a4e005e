// Package generation defines the boundary between the workflow engine's
// default content processors and external AI/LLM services. The engine
// depends only on the Generator interface; concrete implementations
// live under internal/platform.
package generation
