// Package pipeline orchestrates the stages of one mirror run: crawling
// the target, persisting the run to the database, and emitting reports.
// It also provides concurrent batch processing for multiple targets.
package pipeline
