// Package agent provides the built-in agent implementations: model-backed
// agents specialized by role (research, development, code review,
// documentation, testing) plus a function adapter for custom logic.
//
// Every agent is a plain implementation of the core.Agent contract; the
// specializations differ only in their system instruction and how they build
// a prompt from the task input. Register them with a registry.Registry and
// reference them from workflow specs by kind.
package agent
