// Package preflight owns the decision steps asked before any book is
// processed: the closed Step registry, validation of operator-supplied step
// orders, the context-gated Orchestrator that runs steps as their required
// context becomes available, and Resolve, which applies the uniform
// override > manifest > prompt/default precedence to every decision.
//
// Step orders arrive from configuration as strings and are parsed once into
// Step values; nothing downstream branches on raw keys.
package preflight
