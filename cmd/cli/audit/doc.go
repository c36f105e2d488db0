// Package audit wires the audit and versions commands: it merges configuration
// with flags, constructs the registry and repository clients, and renders the
// audit report.
package audit
