package experiment

import "github.com/fedscope/fedscope/internal/pkg/judge"

// CanonicalQuery binds an evaluation question to its judge rubric.
type CanonicalQuery struct {
	ID       judge.QueryID `json:"id"`
	Question string        `json:"question"`
}

// CanonicalQueries are the three evaluation questions. Each probes a
// different retrieval failure mode: temporal evolution within one year,
// cross-period comparison, and fact retrieval with a hallucination trap.
var CanonicalQueries = []CanonicalQuery{
	{
		ID:       judge.QueryTransitory2021,
		Question: "How did the sentiment and usage of the term 'transitory' to describe inflation evolve in press conferences throughout 2021? When did the tone shift from confident to concerned?",
	},
	{
		ID:       judge.QueryCrisisComparison,
		Question: "Compare the tone of urgency regarding unemployment post-2008 versus the tone during the onset of the pandemic in 2020.",
	},
	{
		ID:       judge.QueryRateDecision2025,
		Question: "What was the specific interest rate decision announced in the December 2025 press conference, and how did Chair Powell describe the availability of federal government data regarding the economic outlook?",
	},
}

// DefaultKValues is the retrieval-depth sweep.
var DefaultKValues = []int{15, 30, 45}
