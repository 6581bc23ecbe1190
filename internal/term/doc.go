// Package term owns terminal sessions and turns their raw byte streams into
// discrete, typed blocks.
//
// The Registry is the single mutator of session state: it spawns shells
// through the pty bridge, routes input/resize/close operations, and feeds
// every session's output stream through the segmenter. The segmenter decides
// where one logical block ends and the next begins using a two-tier scheme:
// OSC 133 prompt markers when the shell emits them, and a prompt-character
// heuristic as fallback for shells that do not.
//
// Supporting state lives beside the registry: a bounded undo/redo History of
// block-producing actions, a short-TTL context Cache for AI-assisted
// commands, and a Bus that fans block and lifecycle events out to observers
// without coupling the core to any consumer.
package term
