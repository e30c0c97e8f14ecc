// Package capability implements protocol capability negotiation: comparing
// two paradigm manifests, finding feature gaps, selecting fallback
// strategies, and producing an overall compatibility score.
package capability

import (
	"time"

	"github.com/c360/agentbridge/message"
)

// Feature names the eight boolean capability flags.
type Feature string

const (
	FeatureStreaming      Feature = "streaming"
	FeatureStateful       Feature = "stateful"
	FeatureMultiModal     Feature = "multiModal"
	FeatureBatching       Feature = "batching"
	FeatureTransactions   Feature = "transactions"
	FeatureAsync          Feature = "async"
	FeaturePartialResults Feature = "partialResults"
	FeatureDiscovery      Feature = "discovery"
)

// Features is the capability flag set of a paradigm.
type Features struct {
	Streaming      bool `json:"streaming"`
	Stateful       bool `json:"stateful"`
	MultiModal     bool `json:"multiModal"`
	Batching       bool `json:"batching"`
	Transactions   bool `json:"transactions"`
	Async          bool `json:"async"`
	PartialResults bool `json:"partialResults"`
	Discovery      bool `json:"discovery"`
}

// Has reports whether the named feature is supported.
func (f Features) Has(feature Feature) bool {
	switch feature {
	case FeatureStreaming:
		return f.Streaming
	case FeatureStateful:
		return f.Stateful
	case FeatureMultiModal:
		return f.MultiModal
	case FeatureBatching:
		return f.Batching
	case FeatureTransactions:
		return f.Transactions
	case FeatureAsync:
		return f.Async
	case FeaturePartialResults:
		return f.PartialResults
	case FeatureDiscovery:
		return f.Discovery
	}
	return false
}

// AllFeatures lists the flags in a stable order for deterministic gap
// reports.
var AllFeatures = []Feature{
	FeatureStreaming,
	FeatureStateful,
	FeatureMultiModal,
	FeatureBatching,
	FeatureTransactions,
	FeatureAsync,
	FeaturePartialResults,
	FeatureDiscovery,
}

// Constraints carries a paradigm's numeric and structural limits.
type Constraints struct {
	MaxMessageSize   int64         `json:"maxMessageSize,omitempty"`
	MaxExecutionTime time.Duration `json:"maxExecutionTime,omitempty"`
	RequiredFields   []string      `json:"requiredFields,omitempty"`
}

// Capability is an individually named operation a paradigm exposes.
type Capability struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Features    Features    `json:"features,omitempty"`
	Constraints Constraints `json:"constraints,omitempty"`
}

// Manifest is the capability description a protocol adapter publishes.
type Manifest struct {
	Paradigm     message.Paradigm `json:"paradigm"`
	Version      string           `json:"version"`
	Features     Features         `json:"features"`
	Capabilities []Capability     `json:"capabilities,omitempty"`
	Constraints  Constraints      `json:"constraints,omitempty"`
}

// Severity grades a capability gap.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Penalty is the compatibility-score deduction for a gap of this severity.
func (s Severity) Penalty() float64 {
	switch s {
	case SeverityLow:
		return 0.05
	case SeverityMedium:
		return 0.1
	case SeverityHigh:
		return 0.2
	case SeverityCritical:
		return 0.4
	}
	return 0.1
}

// FallbackType classifies how a fallback strategy bridges a gap.
type FallbackType string

const (
	// FallbackEmulation reproduces the missing feature with target-side
	// primitives (e.g. polling for streaming).
	FallbackEmulation FallbackType = "emulation"
	// FallbackSynthesis fabricates state or structure the target lacks
	// (e.g. shadow state for a stateless paradigm).
	FallbackSynthesis FallbackType = "synthesis"
	// FallbackDegradation delivers a reduced-fidelity result.
	FallbackDegradation FallbackType = "degradation"
	// FallbackRejection declines the translation for this feature.
	FallbackRejection FallbackType = "rejection"
)

// FallbackStrategy is a documented technique for handling one capability gap.
type FallbackStrategy struct {
	Name             string         `json:"name"`
	Feature          Feature        `json:"feature"`
	Type             FallbackType   `json:"type"`
	ConfidenceImpact float64        `json:"confidenceImpact"`
	Params           map[string]any `json:"params,omitempty"`
}

// Gap is a feature the source supports and the target does not.
type Gap struct {
	Feature   Feature            `json:"feature"`
	Severity  Severity           `json:"severity"`
	Fallbacks []FallbackStrategy `json:"fallbacks,omitempty"`
}

// NegotiationResult is the outcome of comparing two manifests.
type NegotiationResult struct {
	Success         bool     `json:"success"`
	Compatibility   float64  `json:"compatibility"`
	Gaps            []Gap    `json:"gaps,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// CapabilityMatch reports similarity between two named capabilities.
type CapabilityMatch struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Score      float64 `json:"score"`
	Compatible bool    `json:"compatible"`
}
