package agent

import (
	"github.com/tzervas/taskflow/core"
	"github.com/tzervas/taskflow/model"
	"github.com/tzervas/taskflow/registry"
)

// Built-in agent kinds. Workflow specs reference these identifiers in
// agent_kind.
const (
	KindResearch      = "research"
	KindRetrieval     = "retrieval"
	KindDevelopment   = "development"
	KindCodeReview    = "code_review"
	KindDocumentation = "documentation"
	KindTesting       = "testing"
)

const (
	researchSystem = "You are a research agent. Investigate the given topic and " +
		"report concrete findings with sources where possible. Be factual and concise."
	retrievalSystem = "You are a retrieval agent. Extract and return the facts " +
		"relevant to the query from the provided material, without commentary."
	developmentSystem = "You are a software development agent. Produce working, " +
		"idiomatic code for the given requirement. Include only code and brief usage notes."
	codeReviewSystem = "You are a code review agent. Review the given code for " +
		"correctness, clarity and safety. List concrete findings ordered by severity."
	documentationSystem = "You are a documentation agent. Write clear, accurate " +
		"documentation for the given subject, aimed at a developer audience."
	testingSystem = "You are a testing agent. Design test cases for the given " +
		"code or behavior, covering happy paths, edge cases and failure modes."
)

// NewResearch creates a research agent backed by m.
func NewResearch(m model.Model) *ModelAgent {
	return NewModelAgent(KindResearch, m, func(o *Options) { o.System = researchSystem })
}

// NewRetrieval creates a retrieval agent backed by m.
func NewRetrieval(m model.Model) *ModelAgent {
	return NewModelAgent(KindRetrieval, m, func(o *Options) { o.System = retrievalSystem })
}

// NewDevelopment creates a development agent backed by m.
func NewDevelopment(m model.Model) *ModelAgent {
	return NewModelAgent(KindDevelopment, m, func(o *Options) { o.System = developmentSystem })
}

// NewCodeReview creates a code review agent backed by m.
func NewCodeReview(m model.Model) *ModelAgent {
	return NewModelAgent(KindCodeReview, m, func(o *Options) { o.System = codeReviewSystem })
}

// NewDocumentation creates a documentation agent backed by m.
func NewDocumentation(m model.Model) *ModelAgent {
	return NewModelAgent(KindDocumentation, m, func(o *Options) { o.System = documentationSystem })
}

// NewTesting creates a testing agent backed by m.
func NewTesting(m model.Model) *ModelAgent {
	return NewModelAgent(KindTesting, m, func(o *Options) { o.System = testingSystem })
}

// RegisterDefaults registers factories for every built-in kind against reg,
// all backed by the same model.
func RegisterDefaults(reg *registry.Registry, m model.Model) {
	reg.Register(KindResearch, func() core.Agent { return NewResearch(m) })
	reg.Register(KindRetrieval, func() core.Agent { return NewRetrieval(m) })
	reg.Register(KindDevelopment, func() core.Agent { return NewDevelopment(m) })
	reg.Register(KindCodeReview, func() core.Agent { return NewCodeReview(m) })
	reg.Register(KindDocumentation, func() core.Agent { return NewDocumentation(m) })
	reg.Register(KindTesting, func() core.Agent { return NewTesting(m) })
}
