package catalog

import (
	"strings"

	"scoutd/pkg/types"
)

// Built-in model family sets. Family names match as substrings of model_type
// and architecture values (e.g. "llama" matches "LlamaForCausalLM").
// Both sets are extendable through Options / the family override registry.
var (
	encoderOnlyFamilies = []string{
		"bert", "roberta", "distilbert", "electra", "albert",
		"deberta", "mobilebert", "convbert", "sentence-transformers",
	}
	generationFamilies = []string{
		"gpt2", "gptj", "gpt_neox", "llama", "qwen", "mistral",
		"phi", "gpt", "t5", "bart", "pegasus",
	}
)

// classifyOutcome turns one candidate's fetch outcome into its final
// classification. Deterministic; the priority order is fixed:
// auth > model_type deny > model_type allow > architectures scan >
// not-found tag fallback > unknown.
func classifyOutcome(sum RemoteModelSummary, out configOutcome, allow, deny []string) types.ModelClassification {
	mc := types.ModelClassification{
		Identifier:    sum.Identifier,
		ModelType:     out.modelType,
		Architectures: out.architectures,
	}
	switch out.status {
	case fetchAuth:
		mc.FetchStatus = types.FetchAuthError
		mc.StatusCode = out.statusCode
		mc.Classification = types.ClassAuthProtected
		mc.Confidence = types.ConfidenceHigh
		return mc

	case fetchOK:
		mc.FetchStatus = types.FetchOK
		if out.modelType != "" {
			if matchesFamily(out.modelType, deny) {
				mc.Classification = types.ClassEncoderOnly
				mc.Confidence = types.ConfidenceHigh
				return mc
			}
			if matchesFamily(out.modelType, allow) {
				mc.Classification = types.ClassGeneration
				mc.Confidence = types.ConfidenceHigh
				return mc
			}
		}
		// Allow is checked before deny per architecture entry; the first
		// matching entry wins.
		for _, arch := range out.architectures {
			if matchesFamily(arch, allow) {
				mc.Classification = types.ClassGeneration
				mc.Confidence = types.ConfidenceHigh
				return mc
			}
			if matchesFamily(arch, deny) {
				mc.Classification = types.ClassEncoderOnly
				mc.Confidence = types.ConfidenceHigh
				return mc
			}
		}
		mc.Classification = types.ClassUnknown
		mc.Confidence = types.ConfidenceLow
		return mc

	case fetchNotFound:
		mc.FetchStatus = types.FetchNotFound
		if isGenerationTag(sum.PipelineTag) {
			mc.Classification = types.ClassGeneration
			mc.Confidence = types.ConfidenceMedium
			return mc
		}
		mc.Classification = types.ClassUnknown
		mc.Confidence = types.ConfidenceLow
		return mc

	default: // fetchTransient
		mc.FetchStatus = types.FetchTransient
		mc.Classification = types.ClassUnknown
		mc.Confidence = types.ConfidenceLow
		mc.Error = out.message
		return mc
	}
}

func matchesFamily(value string, families []string) bool {
	lower := strings.ToLower(value)
	for _, f := range families {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
