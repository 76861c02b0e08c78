// Package registry maps the node kinds named in workflow files to the Go
// code implementing them.
//
// Modules add kinds through Register. Each kind supplies a processor
// constructor and, usually, a configuration schema that node.Bind enforces
// before the processor sees its configuration. The registry is validated once
// at startup so that a broken kind fails the process before any workflow runs.
package registry
