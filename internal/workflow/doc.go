// Package workflow holds the Temporal workflow definitions for promptlab.
//
// Workflows only orchestrate: dataset IO, completions and winner storage run
// in activities, so workflow code stays deterministic under replay.
package workflow
