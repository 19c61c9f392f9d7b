// Package prompt assembles the instruction prompt sent to the completion
// backend for one cluster. One template per pipeline mode; the templates are
// fixed and the gene list is embedded in rank order without de-duplication.
package prompt

import (
	"fmt"
	"strings"

	"subtyper/internal/scores"
	"subtyper/internal/types"
)

// ScoreFields holds the four score strings exactly as embedded in the prompt.
// In scored_interpreted mode they carry labels ("0.720 (high)"); in
// scored_raw mode they are bare numerics ("0.720"). Basic mode has none.
type ScoreFields struct {
	Proliferation string
	Stemness      string
	Immune        string
	Prognostic    string
}

// FieldsFor renders the score strings for a mode. Basic mode returns the
// zero value.
func FieldsFor(mode types.Mode, rs types.RiskScore) ScoreFields {
	switch mode {
	case types.ModeScoredInterpreted:
		return ScoreFields{
			Proliferation: scores.Interpret(rs.Proliferation).String(),
			Stemness:      scores.Interpret(rs.Stemness).String(),
			Immune:        scores.Interpret(rs.Immune).String(),
			Prognostic:    scores.Interpret(rs.Prognostic).String(),
		}
	case types.ModeScoredRaw:
		return ScoreFields{
			Proliferation: scores.FormatRaw(rs.Proliferation),
			Stemness:      scores.FormatRaw(rs.Stemness),
			Immune:        scores.FormatRaw(rs.Immune),
			Prognostic:    scores.FormatRaw(rs.Prognostic),
		}
	default:
		return ScoreFields{}
	}
}

// Build renders the full prompt for one cluster. An empty gene list is a
// valid degenerate input and still yields a well-formed prompt.
func Build(mode types.Mode, clusterID string, genes []string, rs types.RiskScore) string {
	geneList := strings.Join(genes, ", ")
	sf := FieldsFor(mode, rs)

	switch mode {
	case types.ModeScoredInterpreted:
		return fmt.Sprintf(scoredInterpretedTemplate,
			clusterID, geneList,
			sf.Proliferation, sf.Stemness, sf.Immune, sf.Prognostic,
			types.SubtypeList(),
			sf.Proliferation, sf.Stemness, sf.Immune, sf.Prognostic)
	case types.ModeScoredRaw:
		return fmt.Sprintf(scoredRawTemplate,
			clusterID, geneList,
			sf.Proliferation, sf.Stemness, sf.Immune, sf.Prognostic,
			types.SubtypeList(),
			sf.Proliferation, sf.Stemness, sf.Immune, sf.Prognostic)
	default:
		return fmt.Sprintf(basicTemplate, clusterID, geneList, types.SubtypeList())
	}
}

// basicTemplate prompts with gene markers only.
const basicTemplate = `You are a liver cancer expert analyzing single-cell transcriptomics data from a hepatoblastoma tumor.

The following genes are the most upregulated in cluster %s:
%s

Based on known hepatoblastoma subtypes (%s), please return a JSON object with the following structure:

{
  "Cluster": "<cluster ID>",
  "CandidateSubtype": "<one of fetal, embryonal, macrotrabecular, mixed>",
  "TopGenes": [<list of top marker genes>],
  "SupportingEvidence": [<short bullet points explaining reasoning>],
  "SuggestedExperiments": [<short list of follow-up biological experiments>]
}

Be concise but accurate. Use known literature and tumor biology concepts. Return **only the JSON object**.`

// scoredRawTemplate embeds bare numeric scores with axis legends and asks the
// backend itself to interpret their levels in its evidence.
const scoredRawTemplate = `You are a liver cancer expert analyzing single-cell transcriptomics data from a hepatoblastoma tumor.

The following genes are the most upregulated in cluster %s:
%s

The following normalized risk scores (scaled 0 to 1) have been computed for this cluster:
- Proliferation score (0 = low proliferation, 1 = high proliferation): %s
- Stemness score (0 = low stemness, 1 = high stemness): %s
- Immune infiltration score (0 = low immune infiltration, 1 = high infiltration): %s
- Prognostic signature score (0 = low risk, 1 = high risk): %s

Based on these gene markers and risk scores, and known hepatoblastoma subtypes (%s), please return a JSON object with the following structure. In "SupportingEvidence", please interpret these scores, indicating if they are high, low, or intermediate, and what that implies for the subtype assignment and tumor biology:

{
  "Cluster": "<cluster ID>",
  "CandidateSubtype": "<one of fetal, embryonal, macrotrabecular, mixed>",
  "TopGenes": [<list of top marker genes>],
  "ProliferationScore": "%s",
  "StemnessScore": "%s",
  "ImmuneScore": "%s",
  "PrognosticScore": "%s",
  "SupportingEvidence": [<short bullet points explaining reasoning including score interpretation>],
  "SuggestedExperiments": [<short list of follow-up biological experiments>]
}

Be concise but accurate. Use known literature and tumor biology concepts. Return **only the JSON object**.`

// scoredInterpretedTemplate embeds pre-labeled scores and forbids the backend
// from re-interpreting them, so the labeling stays deterministic.
const scoredInterpretedTemplate = `You are a liver cancer expert analyzing single-cell transcriptomics data from a hepatoblastoma tumor.

The following genes are the most upregulated in cluster %s:
%s

The following normalized risk scores (scaled 0 to 1) have been computed for this cluster, with interpretations in parentheses:
- Proliferation score: %s
- Stemness score: %s
- Immune infiltration score: %s
- Prognostic signature score: %s

Based on these gene markers and known hepatoblastoma subtypes (%s), please return a JSON object with the following structure:

{
  "Cluster": "<cluster ID>",
  "CandidateSubtype": "<one of fetal, embryonal, macrotrabecular, mixed>",
  "TopGenes": [<list of top marker genes>],
  "ProliferationScore": "%s",
  "StemnessScore": "%s",
  "ImmuneScore": "%s",
  "PrognosticScore": "%s",
  "SupportingEvidence": [<short bullet points explaining reasoning based on gene markers and tumor biology>],
  "SuggestedExperiments": [<short list of follow-up biological experiments>]
}

Do NOT interpret the scores in SupportingEvidence; just include them directly in the respective score fields above. Be concise but accurate, and return **only the JSON object**.`
