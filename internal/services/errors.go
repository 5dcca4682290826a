package services

import "fmt"

// ValidationError marks a malformed request. Maps to 400.
type ValidationError struct {
	Message string
	Detail  string
}

func (e *ValidationError) Error() string { return e.Message }

// MisconfiguredError marks a provider whose credential is absent. Maps to 500.
type MisconfiguredError struct{ Message string }

func (e *MisconfiguredError) Error() string { return e.Message }

// UnknownProviderError carries the identifier that did not resolve. Maps to 400.
type UnknownProviderError struct{ ID string }

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.ID)
}

// UpstreamError wraps a transport or non-2xx failure from a provider.
type UpstreamError struct {
	Provider ProviderID
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
