// Package registry loads model-family overrides extending the classifier's
// built-in allow/deny sets from a YAML file.
package registry

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"scoutd/internal/common/fsutil"
)

// Families extends the classifier's built-in sets. Entries are lowercase
// family names matched as substrings of model_type and architecture values.
type Families struct {
	Allow            []string `yaml:"allow"`
	Deny             []string `yaml:"deny"`
	DenyPipelineTags []string `yaml:"deny_pipeline_tags"`
}

// LoadFamilies reads a family override file. A missing path is not an error:
// the built-in sets simply apply unchanged.
func LoadFamilies(path string) (Families, error) {
	var fam Families
	if path == "" {
		return fam, nil
	}
	expanded, err := fsutil.ExpandHome(path)
	if err != nil {
		return fam, err
	}
	if !fsutil.PathExists(expanded) {
		return fam, nil
	}
	b, err := os.ReadFile(expanded)
	if err != nil {
		return fam, fmt.Errorf("read families file: %w", err)
	}
	if err := yaml.Unmarshal(b, &fam); err != nil {
		return fam, fmt.Errorf("parse families file: %w", err)
	}
	fam.Allow = normalize(fam.Allow)
	fam.Deny = normalize(fam.Deny)
	fam.DenyPipelineTags = normalize(fam.DenyPipelineTags)
	return fam, nil
}

func normalize(in []string) []string {
	out := in[:0]
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
