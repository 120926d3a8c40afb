// Package tool defines the callable functions an agent can hand to the
// model, together with the registry that validates and executes the
// model's invocation requests.
package tool
