package job

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest is the on-disk form of an ordered job sequence:
//
//	jobs:
//	  - template: template/basic.set.tmpl
//	    vars: data/basic_set_datavars.yml
//	    format: set
type Manifest struct {
	Jobs []TemplateJob `yaml:"jobs"`
}

// LoadManifest reads a YAML job manifest. Relative template and variables
// paths resolve against the manifest's directory. Order is preserved.
func LoadManifest(path string) ([]TemplateJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing job manifest %s: %w", path, err)
	}

	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("job manifest %s: no jobs defined", path)
	}

	base := filepath.Dir(path)
	jobs := make([]TemplateJob, 0, len(m.Jobs))
	for i, j := range m.Jobs {
		prefix := fmt.Sprintf("job manifest %s: jobs[%d]", path, i)
		if j.Template == "" {
			return nil, fmt.Errorf("%s: template is required", prefix)
		}
		if j.Variables == "" {
			return nil, fmt.Errorf("%s: vars is required", prefix)
		}
		if j.Format == "" {
			return nil, fmt.Errorf("%s: format is required", prefix)
		}
		j.Template = resolve(base, j.Template)
		j.Variables = resolve(base, j.Variables)
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
