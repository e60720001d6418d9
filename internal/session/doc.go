// Package session manages the process-wide bearer credential and wraps
// outbound requests with expiry interception and idempotent teardown.
package session
