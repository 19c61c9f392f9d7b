// Package types provides shared type definitions used across subtyper packages.
// Types in this package are foundational data structures with no complex dependencies.
package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// PIPELINE MODE
// =============================================================================

// Mode selects the pipeline variant. It controls what the prompt embeds and
// which fields the backend is asked to echo into the output record.
type Mode string

const (
	// ModeBasic prompts with the gene list only; no risk scores are embedded.
	ModeBasic Mode = "basic"

	// ModeScoredInterpreted embeds scores pre-labeled as "0.720 (high)" and
	// instructs the backend to echo them verbatim without re-interpreting.
	ModeScoredInterpreted Mode = "scored_interpreted"

	// ModeScoredRaw embeds bare numeric scores and asks the backend itself to
	// interpret their levels in its supporting evidence.
	ModeScoredRaw Mode = "scored_raw"
)

// Modes lists all valid pipeline modes.
var Modes = []Mode{ModeBasic, ModeScoredInterpreted, ModeScoredRaw}

// ParseMode converts a string to a Mode. Unknown values are a configuration
// error and must be rejected before any cluster is processed.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (valid: basic, scored_interpreted, scored_raw)", s)
}

// Scored reports whether this mode embeds risk scores in the prompt.
func (m Mode) Scored() bool {
	return m == ModeScoredInterpreted || m == ModeScoredRaw
}

// =============================================================================
// SUBTYPE (closed set)
// =============================================================================

// Subtype is one of the known hepatoblastoma subtypes the backend must
// choose among.
type Subtype string

const (
	SubtypeFetal           Subtype = "fetal"
	SubtypeEmbryonal       Subtype = "embryonal"
	SubtypeMacrotrabecular Subtype = "macrotrabecular"
	SubtypeMixed           Subtype = "mixed"
)

// Subtypes lists the closed subtype set in prompt order.
var Subtypes = []Subtype{SubtypeFetal, SubtypeEmbryonal, SubtypeMacrotrabecular, SubtypeMixed}

// ValidSubtype reports whether s is a member of the closed subtype set.
func ValidSubtype(s string) bool {
	for _, st := range Subtypes {
		if Subtype(s) == st {
			return true
		}
	}
	return false
}

// SubtypeList returns the subtype set comma-joined for prompt embedding.
func SubtypeList() string {
	parts := make([]string, len(Subtypes))
	for i, st := range Subtypes {
		parts[i] = string(st)
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// INPUT TYPES
// =============================================================================

// ClusterMarkerSet is one cluster's marker-gene list. Genes are ordered by
// upregulation rank, most-upregulated first. Read-only for the life of a run.
type ClusterMarkerSet struct {
	ClusterID string
	Genes     []string
}

// RiskScore holds the four normalized composite scores for one cluster.
// Values are expected in [0,1]; out-of-range values are an upstream data
// defect and are passed through untouched.
type RiskScore struct {
	Proliferation float64
	Stemness      float64
	Immune        float64
	Prognostic    float64
}

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// HypothesisRecord is the unit of output: one per cluster, success or
// degraded. The JSON keys match the document shape the backend is asked to
// return, so a compliant response round-trips without re-mapping.
//
// A degraded record carries only Cluster, TopGenes, and RawResponse; the
// absence of CandidateSubtype is what distinguishes it from a success.
type HypothesisRecord struct {
	Cluster              string   `json:"Cluster"`
	CandidateSubtype     string   `json:"CandidateSubtype,omitempty"`
	TopGenes             []string `json:"TopGenes"`
	ProliferationScore   string   `json:"ProliferationScore,omitempty"`
	StemnessScore        string   `json:"StemnessScore,omitempty"`
	ImmuneScore          string   `json:"ImmuneScore,omitempty"`
	PrognosticScore      string   `json:"PrognosticScore,omitempty"`
	SupportingEvidence   []string `json:"SupportingEvidence,omitempty"`
	SuggestedExperiments []string `json:"SuggestedExperiments,omitempty"`
	RawResponse          string   `json:"RawResponse,omitempty"`
}

// Degraded reports whether this record is the fallback variant produced when
// the backend response could not be parsed.
func (r *HypothesisRecord) Degraded() bool {
	return r.CandidateSubtype == ""
}
