// Package merge reconciles multiple per-segment summaries into one ordered
// narrative, with a deterministic concatenation fallback.
package merge
