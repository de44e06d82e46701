// Package core defines the shared contracts of the taskflow orchestration
// engine: the Agent interface, the Task and Workflow data model, the error
// taxonomy and the result types exchanged between the scheduler, the agent
// registry and callers.
//
// The package holds no execution logic. Everything here is either an
// interface implemented elsewhere (Agent, Observer) or a plain data type
// mutated exclusively by the scheduler during a run. Keeping the contracts in
// one leaf package avoids cyclic dependencies between the scheduler, the
// registry and agent implementations.
package core
