package storage

// Package storage persists a rolling history of notification lifecycle
// events (delivered, dismissed, failed) so the daemon can answer
// "what fired recently" across restarts.
