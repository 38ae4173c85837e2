package dbhost

// Package dbhost is the native connection layer behind the request boundary:
// it resolves caller-supplied targets into safe local paths or remote
// endpoints, builds local, replica and pure-remote connections with the
// engine builder held inside a panic boundary, keeps the process-wide pool of
// shared connections, and executes single statements, ordered-row selects and
// atomic multi-statement batches. Schema migrations are layered on top by the
// migrations package; the serialized request surface lives in server.
