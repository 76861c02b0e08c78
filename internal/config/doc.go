// Package config defines the format-agnostic workflow model produced by the
// loaders (HCL, YAML) and consumed by the app when it assembles an
// orchestrator. It also holds the value conversions shared by loaders and
// callers: JSON input files and native Go values to cty.
package config
