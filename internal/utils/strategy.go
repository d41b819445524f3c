package utils

type Strategy string

const (
	StrategySimple    Strategy = "simple"
	StrategyStreaming Strategy = "streaming"
	StrategyChunked   Strategy = "chunked"
	StrategyExternal  Strategy = "external"
)

type StrategyInput struct {
	DelegateRequested bool
	DelegateAvailable bool
	Probe             ProbeResult
	ChunkThreshold    int64
}

// SelectStrategy applies the decision table in order: delegate, unknown
// size, ranged and large, everything else.
func SelectStrategy(in StrategyInput) Strategy {
	if in.DelegateRequested {
		if in.DelegateAvailable {
			return StrategyExternal
		}
		return StrategyStreaming
	}
	if !in.Probe.SizeKnown {
		return StrategySimple
	}
	threshold := in.ChunkThreshold
	if threshold <= 0 {
		threshold = DefaultChunkThreshold
	}
	if in.Probe.SupportsRange && in.Probe.Size > threshold {
		return StrategyChunked
	}
	return StrategyStreaming
}
