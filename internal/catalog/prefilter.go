package catalog

import "strings"

// Pipeline tags that mark a repository as not text-generation capable.
var denyPipelineTags = []string{
	"feature-extraction",
	"sentence-similarity",
	"fill-mask",
	"token-classification",
	"text-classification",
	"zero-shot-classification",
}

// Identifier substrings conventionally used by embedding model repos.
var denyNameHints = []string{
	"sentence-transformers/",
	"-embedding",
	"embedding-",
	"bge-",
	"gte-",
	"e5-",
	"minilm",
}

// Pipeline tags that explicitly declare text generation. These waive the
// tokenizer-file requirement and drive the medium-confidence fallback when a
// config cannot be retrieved.
func isGenerationTag(tag string) bool {
	return tag == "text-generation" || tag == "text2text-generation"
}

// prefilter removes listing entries that cannot be text-generation models
// without touching the network, then caps survivors to maxCandidates while
// preserving listing order.
func prefilter(list []RemoteModelSummary, opts Options) []RemoteModelSummary {
	denyTags := append(append([]string(nil), denyPipelineTags...), opts.ExtraDenyPipelineTags...)
	survivors := make([]RemoteModelSummary, 0, opts.MaxCandidates)
	for _, sum := range list {
		if matchesTag(sum.PipelineTag, denyTags) {
			continue
		}
		if matchesNameHint(sum.Identifier) {
			continue
		}
		// A declared generation tag waives the tokenizer-file check.
		if !isGenerationTag(sum.PipelineTag) && !hasTokenizerFile(sum) {
			continue
		}
		survivors = append(survivors, sum)
		if len(survivors) >= opts.MaxCandidates {
			break
		}
	}
	return survivors
}

func matchesTag(tag string, deny []string) bool {
	for _, d := range deny {
		if tag == d {
			return true
		}
	}
	return false
}

func matchesNameHint(id string) bool {
	lower := strings.ToLower(id)
	for _, hint := range denyNameHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func hasTokenizerFile(sum RemoteModelSummary) bool {
	for _, f := range sum.Siblings {
		name := strings.ToLower(f.Name)
		if strings.Contains(name, "tokenizer") || strings.HasSuffix(name, "spiece.model") {
			return true
		}
	}
	return false
}
