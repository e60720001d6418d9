// Package backend implements the HTTP contracts of the minutes API: direct
// and blob-based uploads, signed-URL issuance, raw storage writes, summary
// reconciliation, and document export.
package backend
