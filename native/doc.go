// Package native is the low-level execution runtime behind a serialized
// message-passing boundary. Callers hand in fully-validated task descriptors
// as JSON; the runtime executes them through an Invoker callback under a
// bounded worker pool and hands back exactly one serialized report per task.
//
// The boundary is strict: no live objects cross it, only bytes. Ownership of
// a descriptor's input transfers to the runtime for the duration of execution
// and comes back as part of the report. A task always produces exactly one
// terminal report, including on panic or cancellation, and every failure is
// marshaled into the same {kind, message} error shape the in-process
// scheduler uses, so callers see one uniform taxonomy regardless of which
// path ran a task.
package native
