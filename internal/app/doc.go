// Package app contains the core application logic. It wires the descriptor
// loader to the bundle builder, owns the logger, and runs one build per
// invocation, decoupled from any specific entrypoint like the CLI.
package app
