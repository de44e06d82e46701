// Package workflow builds immutable, validated task graphs from declarative
// specifications.
//
// A workflow is constructed once via Build, which validates that every
// referenced dependency exists, that the graph is acyclic and that every
// agent kind is known to the registry. Any violation fails construction
// atomically; no partially built workflow is ever returned. After
// construction the workflow is read-only: the scheduler snapshots task state
// at the start of a run and owns all status mutation from there.
//
// Specs can be assembled in code or loaded from YAML/JSON files via LoadFile.
package workflow
