package models

import "fmt"

// ValidationError reports a request that was rejected before any processing.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ExtractionError reports PDF bytes that could not be turned into text.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting pdf text: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StorageError reports a failed read or write against the persistent store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RemoteServiceError reports a failed call to the generative model.
type RemoteServiceError struct {
	Err error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("model generation: %v", e.Err)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }
