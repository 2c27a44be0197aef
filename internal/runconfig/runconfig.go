package runconfig

import (
	"fmt"

	"github.com/wandb/simplejsonext"
	"gopkg.in/yaml.v3"

	"github.com/pipelinerl/runtrack/internal/pathtree"
)

type Format int

const (
	FormatYaml Format = iota
	FormatJson
)

// The configuration of a training run.
//
// This is usually hyperparameters and some run metadata like the output
// directory and the distributed launch state. It is reported to the
// tracking service as a flat set of dotted keys.
type RunConfig struct {
	pathTree *pathtree.PathTree
}

func New() *RunConfig {
	return &RunConfig{pathTree: pathtree.New()}
}

// NewFrom wraps an existing nested map without copying it.
func NewFrom(tree pathtree.TreeData) *RunConfig {
	return &RunConfig{pathTree: pathtree.NewFrom(tree)}
}

// FromYAML parses a YAML document into a run configuration.
func FromYAML(data []byte) (*RunConfig, error) {
	tree := make(pathtree.TreeData)
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("runconfig: failed to parse yaml: %v", err)
	}
	return NewFrom(normalizeTree(tree)), nil
}

// Set changes the value at the given dotted path, inserting nodes as needed.
func (rc *RunConfig) Set(path pathtree.TreePath, value any) {
	rc.pathTree.Set(path, value)
}

// Subtree returns the nested map at path, or nil if path doesn't lead to
// a non-leaf node.
func (rc *RunConfig) Subtree(path pathtree.TreePath) pathtree.TreeData {
	node := rc.pathTree.Tree()
	for _, key := range path {
		subtree, ok := node[key].(pathtree.TreeData)
		if !ok {
			return nil
		}
		node = subtree
	}
	return node
}

// Flatten returns the configuration as a single-level map with dot-joined
// keys. The result contains only leaf scalars, never nested structures.
func (rc *RunConfig) Flatten() map[string]any {
	return rc.pathTree.FlattenDotted(".")
}

func (rc *RunConfig) Tree() pathtree.TreeData {
	return rc.pathTree.Tree()
}

func (rc *RunConfig) CloneTree() pathtree.TreeData {
	return rc.pathTree.CloneTree()
}

// Serialize encodes the configuration tree in the given format.
//
// JSON output is extended JSON that supports NaN and +-Infinity, which are
// legal values for training hyperparameters such as clipping thresholds.
func (rc *RunConfig) Serialize(format Format) ([]byte, error) {
	switch format {
	case FormatYaml:
		return yaml.Marshal(rc.pathTree.Tree())
	case FormatJson:
		return simplejsonext.Marshal(rc.pathTree.Tree())
	default:
		return nil, fmt.Errorf("runconfig: unsupported format: %v", format)
	}
}

// normalizeTree rewrites any map[any]any nodes produced by YAML parsing
// into string-keyed TreeData nodes.
func normalizeTree(tree pathtree.TreeData) pathtree.TreeData {
	for key, value := range tree {
		tree[key] = normalizeValue(value)
	}
	return tree
}

func normalizeValue(value any) any {
	switch value := value.(type) {
	case pathtree.TreeData:
		return normalizeTree(value)
	case map[any]any:
		subtree := make(pathtree.TreeData, len(value))
		for k, v := range value {
			subtree[fmt.Sprintf("%v", k)] = normalizeValue(v)
		}
		return subtree
	default:
		return value
	}
}
