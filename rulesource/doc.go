// Package rulesource loads rule tables and keeps them current.
//
// A Source returns a rule table document. Sources exist for the table embedded in
// the binary, a file, an object in MinIO or S3 (minio-go) and the newest row of a
// Postgres or MySQL table (gorm). The document is validated by rules.Load before it
// becomes active; an invalid document never replaces a working table.
//
// Two mechanisms update the active table at runtime:
//
//   - Watcher consumes a Kafka topic (kafka-go) where every message is a complete
//     table document. Consumer groups commit offsets after each message.
//   - Poller re-reads the configured source on an interval.
//
// Both go through rules.Store, which refuses tables older than the active one.
// Failures are logged and reported to the observer; they never stop the watcher or
// the poller.
package rulesource
