package runconfig_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipelinerl/runtrack/internal/pathtree"
	"github.com/pipelinerl/runtrack/internal/runconfig"
)

func TestFlatten(t *testing.T) {
	rc := runconfig.NewFrom(pathtree.TreeData{
		"a": pathtree.TreeData{
			"b": 1,
			"c": pathtree.TreeData{"d": 2},
		},
	})

	assert.Equal(t,
		map[string]any{"a.b": 1, "a.c.d": 2},
		rc.Flatten())
}

func TestFromYAML(t *testing.T) {
	rc, err := runconfig.FromYAML([]byte(`
finetune:
  learning_rate: 0.0003
  wandb_project_name: pipelinerl
model:
  layers: 12
`))
	require.NoError(t, err)

	flat := rc.Flatten()
	assert.Equal(t, 0.0003, flat["finetune.learning_rate"])
	assert.Equal(t, "pipelinerl", flat["finetune.wandb_project_name"])
	assert.Equal(t, 12, flat["model.layers"])
}

func TestFromYAML_Invalid(t *testing.T) {
	_, err := runconfig.FromYAML([]byte("a: [unclosed"))
	assert.Error(t, err)
}

func TestSubtree(t *testing.T) {
	rc := runconfig.NewFrom(pathtree.TreeData{
		"finetune": pathtree.TreeData{"use_wandb": true},
	})

	assert.Equal(t,
		pathtree.TreeData{"use_wandb": true},
		rc.Subtree(pathtree.TreePath{"finetune"}))
	assert.Nil(t, rc.Subtree(pathtree.TreePath{"missing"}))
}

func TestSerialize_JsonSupportsNaN(t *testing.T) {
	rc := runconfig.New()
	rc.Set(pathtree.TreePath{"grad_clip"}, math.NaN())

	data, err := rc.Serialize(runconfig.FormatJson)
	require.NoError(t, err)
	assert.Contains(t, string(data), "NaN")
}

func TestSerialize_Yaml(t *testing.T) {
	rc := runconfig.New()
	rc.Set(pathtree.TreePath{"model", "layers"}, 12)

	data, err := rc.Serialize(runconfig.FormatYaml)
	require.NoError(t, err)
	assert.Contains(t, string(data), "layers: 12")
}
