package job

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VariableSet maps variable names to arbitrary nested YAML values.
type VariableSet map[string]any

// Empty reports whether the set binds no variables.
func (v VariableSet) Empty() bool {
	return len(v) == 0
}

// VariablesError reports a variables file that could not be read or parsed.
type VariablesError struct {
	Path string
	Err  error
}

func (e *VariablesError) Error() string {
	return fmt.Sprintf("loading variables %s: %v", e.Path, e.Err)
}

func (e *VariablesError) Unwrap() error {
	return e.Err
}

// LoadVariables reads a YAML variables file. An empty document (or a bare
// null) yields an empty set; a missing file, a parse failure, or a top-level
// document that is not a mapping is a *VariablesError.
func LoadVariables(path string) (VariableSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &VariablesError{Path: path, Err: err}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &VariablesError{Path: path, Err: err}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return VariableSet{}, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return VariableSet{}, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, &VariablesError{Path: path, Err: fmt.Errorf("top-level document must be a mapping, got %s", kindName(root.Kind))}
	}

	vars := VariableSet{}
	if err := root.Decode(&vars); err != nil {
		return nil, &VariablesError{Path: path, Err: err}
	}
	return vars, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "node"
}
