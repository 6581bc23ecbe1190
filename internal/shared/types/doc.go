// Package types holds the shared service-surface contracts: service and tool
// definitions, execution context, and result envelopes. Kept dependency-free
// so every layer can import it.
package types
