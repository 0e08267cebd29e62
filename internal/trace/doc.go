// Package trace records what the ABI pipeline decided and when.
//
//	abic lower --trace=- --trace-level=detail sigs.toml
//	abic classify --trace=run.ndjson --trace-mode=both sigs.toml
//
// Events flow from spans (Start/End) and points to a Tracer stored in the
// context. StreamTracer encodes them as text, NDJSON or msgpack as they
// arrive; RingTracer keeps the last few thousand in memory and is dumped
// when a run fails. Levels gate scopes: phase keeps driver and pass
// boundaries, detail adds one span per signature and registry insertions,
// debug adds per-argument decisions such as register demotions.
package trace
