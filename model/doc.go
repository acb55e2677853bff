// Package model defines a provider-agnostic interface for language model
// calls so they can be driven as retryable operations.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Expose any Model as an action.Operation (Operation, Collect)
//   - Facilitate lightweight mocking, including scripted failures (MockModel)
//
// Providers (OpenAI, Anthropic) implement Model and ship an alert.Describer
// that classifies their API errors as retryable or not.
package model
