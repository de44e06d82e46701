// Package scheduler implements the execution engine at the heart of taskflow.
//
// A Scheduler walks a validated workflow graph, dispatches ready tasks to
// agents obtained from the registry under a bounded in-flight limit, and
// applies retry, timeout and cancellation policy per task. Task state is
// owned by a single event loop: workers report attempt outcomes over a
// channel and never touch statuses themselves, so no two goroutines ever
// transition the same task concurrently.
//
// # Execution model
//
//	Pending -> Ready -> Running -> Completed
//	                            -> (Retrying -> Running)* -> Failed
//	                            -> Cancelled
//	Pending/Ready -> Skipped   (dependency failed or was cancelled)
//	Pending/Ready -> Cancelled (workflow cancelled or fail-fast abort)
//
// The concurrency limit bounds in-flight agent calls, not goroutines: a
// worker sleeping between retry attempts still holds its slot. The slot is
// released when the event loop processes the task's terminal report, which a
// worker delivers promptly even when it had to abandon a non-cooperative
// agent.
//
// Failure policy: dependents of a failed or cancelled task are always
// skipped, recording which dependency caused the cascade. Under fail-fast
// the rest of the graph is cancelled as well; under continue-on-error
// unrelated branches run to completion.
package scheduler
