// Package audit buffers session lifecycle events and delivers them to a
// caller-supplied [Sink].
//
// # Components
//
//   - [Event]: one audited step (create, verify, refresh, theft, revoke, update).
//   - [Sink]: event consumer. [NoOpSink], [ChannelSink], [JSONWriterSink] and
//     [MultiSink] live here; a NATS sink lives in auditsink/nats.
//   - [Dispatcher]: bounded async relay that either drops or blocks when full.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the engine does that.
//   - Import goSession or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
