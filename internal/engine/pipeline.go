package engine

// Pipeline selects which stages a reconciliation run executes. Matching
// always runs; analysis and resolution are pipeline choices. Swapping the
// pipeline changes the next run only.
type Pipeline interface {
	// Name identifies the pipeline in logs and summaries
	Name() string

	// AnalyzeEnabled reports whether the discrepancy analysis stage runs
	AnalyzeEnabled() bool

	// ResolveEnabled reports whether the resolution stage runs
	ResolveEnabled() bool
}

// FullPipeline runs Match, Analyze, Resolve and Summarize
type FullPipeline struct{}

func (FullPipeline) Name() string         { return "full" }
func (FullPipeline) AnalyzeEnabled() bool { return true }
func (FullPipeline) ResolveEnabled() bool { return true }

// MatchOnlyPipeline runs the matching stage alone, for quick candidate
// exploration before a full run.
type MatchOnlyPipeline struct{}

func (MatchOnlyPipeline) Name() string         { return "match-only" }
func (MatchOnlyPipeline) AnalyzeEnabled() bool { return false }
func (MatchOnlyPipeline) ResolveEnabled() bool { return false }

// AnalysisPipeline runs matching and discrepancy analysis but leaves every
// discrepancy unresolved, for review-first workflows.
type AnalysisPipeline struct{}

func (AnalysisPipeline) Name() string         { return "analysis" }
func (AnalysisPipeline) AnalyzeEnabled() bool { return true }
func (AnalysisPipeline) ResolveEnabled() bool { return false }
