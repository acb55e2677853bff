// Package decider resolves pending decisions on behalf of a user.
//
// Backoff retries automatically with exponential backoff from
// github.com/cenkalti/backoff/v4 and ignores the failure once the policy is
// exhausted. Prompt asks a human over an io.Reader / io.Writer pair. Both
// use the alert package to decide whether Retry is offered at all.
package decider
