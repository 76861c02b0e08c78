// Package app contains the core application logic. It loads a workflow
// definition, builds an orchestrator from it using the registered node kinds
// and runs it once or on a schedule, decoupled from any specific entrypoint
// like a CLI or server.
package app
