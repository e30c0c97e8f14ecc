// Package agentbridge translates messages between AI agent interaction
// paradigms: tool-centric, task-centric, function-calling, and
// framework-specific formats.
//
// # Architecture
//
// Translation flows through a small set of cooperating packages:
//
//   - message: the paradigm-neutral protocol message and translation
//     direction types.
//   - intent: semantic intent extraction from paradigm payloads and the
//     four-factor confidence scoring model.
//   - capability: paradigm capability manifests, gap detection between
//     source and target, and the fallback strategy table.
//   - adapter: one ProtocolAdapter per paradigm handling parse, validate,
//     extract, and reconstruct.
//   - cache: the three-tier translation cache (in-process LRU, NATS KV,
//     SQLite) with confidence-gated admission and read promotion.
//   - queue: the prioritized work queue with batching, backpressure,
//     retry, and a dead-letter store.
//   - engine: the orchestrator tying extraction, negotiation, fallbacks,
//     reconstruction, scoring, and caching into one Translate call.
//
// Supporting packages: errors (typed translation errors), event (in-process
// observability bus), metric (Prometheus registry and scrape endpoint),
// health (readiness checks), natsclient (connection and KV helpers),
// config (YAML configuration), and pkg/retry (backoff helpers).
//
// The agentbridge daemon in cmd/agentbridge wires the full stack behind a
// NATS connection and a metrics endpoint.
package agentbridge
