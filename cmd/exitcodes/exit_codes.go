package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.

	// ExitCodeSetupError indicates the session could not be set up: config, artifact loading, discovery, or an
	// unreachable backend. Failing trials are expected fuzzing output and never produce this code.
	ExitCodeSetupError = 6

	// ExitCodeHandledError indicates an error occurred that was already reported through the logger; the top level
	// should not print it again.
	ExitCodeHandledError = 7
)
