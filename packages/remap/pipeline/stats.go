package pipeline

import "go.uber.org/atomic"

// Stats is a snapshot of the work done by a Pipeline across all of its runs. Remainders counts
// the pieces left over when a rule claimed only part of an interval.
type Stats struct {
	Queries     int64
	Stages      int64
	RulePasses  int64
	Translated  int64
	Remainders  int64
	Passthrough int64
}

type counters struct {
	queries     atomic.Int64
	stages      atomic.Int64
	rulePasses  atomic.Int64
	translated  atomic.Int64
	remainders  atomic.Int64
	passthrough atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Queries:     c.queries.Load(),
		Stages:      c.stages.Load(),
		RulePasses:  c.rulePasses.Load(),
		Translated:  c.translated.Load(),
		Remainders:  c.remainders.Load(),
		Passthrough: c.passthrough.Load(),
	}
}
