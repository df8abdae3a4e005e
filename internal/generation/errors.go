package generation

import "errors"

// Common errors returned by Generator implementations
var (
	// ErrInvalidConfig indicates the generator was constructed with
	// missing or malformed configuration.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrGenerationFailed indicates the underlying service could not
	// produce content.
	ErrGenerationFailed = errors.New("content generation failed")

	// ErrTransient indicates a temporary failure (rate limit, service
	// unavailable) worth retrying.
	ErrTransient = errors.New("transient generation error")

	// ErrContentBlocked indicates the service refused the request on
	// safety grounds; retrying will not help.
	ErrContentBlocked = errors.New("content blocked by provider")
)
