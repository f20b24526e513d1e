// Package store persists cross-run state in SQLite: which Reddit posts have
// been republished (and the fingerprint of each image) plus the rate-limit
// cooldown marker. Every run starts cold, so this database is the only
// memory the bot has between cron invocations.
package store
