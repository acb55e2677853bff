// Package testutil contains helpers used across tests to reduce boilerplate
// when scripting operations and consuming invocation or state channels.
// They are not intended for production usage.
package testutil
