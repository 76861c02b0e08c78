// Package hcl provides the HCL implementation of config.Loader.
//
// A workflow file holds at most one `workflow "<name>"` block and any number
// of `node "<kind>" "<id>"` blocks:
//
//	workflow "greeting" {
//	  input = { name = "world" }
//	}
//
//	node "assign" "compose" {
//	  timeout    = "2s"
//	  schema     = object({ name = string })
//	  config     = { key = "output", from = "input" }
//	}
//
//	node "print" "show" {
//	  depends_on = ["compose"]
//	}
//
// Expressions are evaluated without variables, with a small function library
// (upper, lower, format, jsonencode, ...) available.
package hcl
