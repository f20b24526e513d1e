// Package bluesky publishes image posts to a Bluesky PDS over the AT
// Protocol xrpc surface: createSession once per run, uploadBlob with raw
// image bytes, then createRecord embedding the returned blob descriptor.
//
// A Client authenticates lazily on the first publish call and never
// refreshes the session. After any login failure the client latches into a
// failed state and every later publish attempt in the same run
// short-circuits, so a bad credential cannot hammer the remote service.
// A 429 during login additionally persists a cooldown through the state
// store so the next cron invocation backs off before doing any work.
package bluesky
