// Package journal persists workflow runs to SQLite. A Journal is an
// orchestrator.Observer: attach it with orchestrator.WithObserver and every
// run and node outcome is recorded.
package journal
