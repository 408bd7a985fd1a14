package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsisomap/hsisomap/artifact"
	"github.com/hsisomap/hsisomap/logging"
	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/pipeline"
)

// scene writes a 60×3 image of a noisy tilted plane, a backbone of every
// other row and a landmark list, and returns the task file body.
func scene(t *testing.T, dir string) string {
	t.Helper()
	r := rand.New(rand.NewSource(17))
	rows := make([][]float64, 60)
	for i := range rows {
		u, v := r.Float64()*10, r.Float64()*10
		rows[i] = []float64{u, v, 0.3*u + 0.2*v + r.NormFloat64()*0.05}
	}
	data, err := matrix.FromRows(rows)
	require.NoError(t, err)
	require.NoError(t, artifact.WriteMatrix(filepath.Join(dir, "image.txt"), data))

	backbone := make([]int, 0, 30)
	for i := 0; i < 60; i += 2 {
		backbone = append(backbone, i)
	}
	require.NoError(t, artifact.WriteIndices(filepath.Join(dir, "backbone.txt"), backbone))
	require.NoError(t, artifact.WriteIndices(filepath.Join(dir, "landmarks.txt"), []int{0, 5, 10, 15, 20, 25}))

	return fmt.Sprintf(`type: hsisomap_task_configuration
version: "0"
tasks:
  - name: plane
    input: %s
    output_root: %s
    output: out/reconstructed.zst
    seed: 3
    workers: 2
    backbone:
      implementation: loading
      index_file: backbone.txt
    landmark:
      implementation: list
      index_file: landmarks.txt
      index_output: out/landmarks.txt
    knngraph:
      implementation: fixed
      k: 5
    dijkstra:
      output: out/geodesic.lz4
    reconstruction:
      neighborhood_strategy: fixed
      neighborhood_size: 4
      nncache_file: out/nncache.txt
      manifold_output: out/manifold.txt
`, filepath.Join(dir, "image.txt"), dir)
}

func TestRunTask_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg, err := pipeline.ParseConfig(strings.NewReader(scene(t, dir)))
	require.NoError(t, err)

	m := pipeline.NewMetrics()
	res, err := pipeline.RunTask(context.Background(), cfg.Tasks[0], pipeline.WithMetrics(m))
	require.NoError(t, err)

	assert.Equal(t, 60, res.Rows)
	assert.Equal(t, 30, res.BackboneRows)
	assert.Equal(t, []int{0, 5, 10, 15, 20, 25}, res.Landmarks)
	assert.Equal(t, res.Components-1, res.AugmentedEdges)
	assert.GreaterOrEqual(t, res.ManifoldDims, 2)

	out, err := artifact.ReadMatrix(filepath.Join(dir, "out", "reconstructed.zst"))
	require.NoError(t, err)
	assert.Equal(t, 60, out.Rows())
	assert.Equal(t, res.ManifoldDims, out.Cols())

	// backbone rows carry the manifold coordinates verbatim
	coords, err := artifact.ReadMatrix(filepath.Join(dir, "out", "manifold.txt"))
	require.NoError(t, err)
	for i := 0; i < 30; i++ {
		for j := 0; j < out.Cols(); j++ {
			assert.InDelta(t, coords.At(i, j), out.At(2*i, j), 1e-9)
		}
	}

	cache, err := artifact.ReadMatrix(filepath.Join(dir, "out", "nncache.txt"))
	require.NoError(t, err)
	assert.Equal(t, 30, cache.Rows())
	assert.Equal(t, 5, cache.Cols())

	geo, err := artifact.ReadMatrix(filepath.Join(dir, "out", "geodesic.lz4"))
	require.NoError(t, err)
	assert.Equal(t, 6, geo.Rows())
	assert.Equal(t, 30, geo.Cols())
	assert.False(t, geo.HasSentinel())

	lm, err := artifact.ReadIndices(filepath.Join(dir, "out", "landmarks.txt"))
	require.NoError(t, err)
	assert.Equal(t, res.Landmarks, lm)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tasks.WithLabelValues("ok")))
	assert.Equal(t, 8, testutil.CollectAndCount(m.StageDuration))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.Rows.WithLabelValues("backbone")))

	// a second run reuses the cache file and reproduces the output
	again, err := pipeline.RunTask(context.Background(), cfg.Tasks[0])
	require.NoError(t, err)
	assert.True(t, res.Reconstructed.Equal(again.Reconstructed))
}

func TestRun_ContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	body := scene(t, dir)
	body = strings.Replace(body, "tasks:\n", fmt.Sprintf(`tasks:
  - name: missing
    input: %s
    output: never.txt
`, filepath.Join(dir, "nope.txt")), 1)
	cfg, err := pipeline.ParseConfig(strings.NewReader(body))
	require.NoError(t, err)
	cfg.Metrics = filepath.Join(dir, "metrics.prom")

	var logs bytes.Buffer
	m := pipeline.NewMetrics()
	report, err := pipeline.Run(context.Background(), cfg,
		pipeline.WithMetrics(m),
		pipeline.WithRunID("run-1"),
		pipeline.WithLogger(logging.NewJSONLogger(&logs, 0)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrTaskFailed))
	assert.True(t, errors.Is(err, artifact.ErrNotExist))

	require.Len(t, report.Tasks, 2)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 1, report.Failed())
	assert.Error(t, report.Tasks[0].Err)
	assert.NoError(t, report.Tasks[1].Err)
	assert.NotNil(t, report.Tasks[1].Result)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tasks.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tasks.WithLabelValues("ok")))
	assert.Contains(t, logs.String(), `"run_id":"run-1"`)
	assert.Contains(t, logs.String(), "task failed")

	prom, err := os.ReadFile(cfg.Metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "hsisomap_tasks_total")
}

func TestParseConfig_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"wrong type", "type: other\nversion: \"0\"\ntasks: [{input: a, output: b}]\n", pipeline.ErrBadConfig},
		{"wrong version", "type: hsisomap_task_configuration\nversion: \"1\"\ntasks: [{input: a, output: b}]\n", pipeline.ErrBadConfig},
		{"no tasks", "type: hsisomap_task_configuration\nversion: \"0\"\n", pipeline.ErrBadConfig},
		{"unknown field", "type: hsisomap_task_configuration\nversion: \"0\"\ntasks: [{input: a, output: b, colour: red}]\n", pipeline.ErrBadConfig},
		{"missing output", "type: hsisomap_task_configuration\nversion: \"0\"\ntasks: [{input: a}]\n", pipeline.ErrBadConfig},
		{"sampling backbone", "type: hsisomap_task_configuration\nversion: \"0\"\ntasks: [{input: a, output: b, backbone: {implementation: sampling}}]\n", pipeline.ErrUnsupported},
		{"noise model", "type: hsisomap_task_configuration\nversion: \"0\"\ntasks: [{input: a, output: b, landmark: {noise_model: pca}}]\n", pipeline.ErrUnsupported},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pipeline.ParseConfig(strings.NewReader(tc.body))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scene(t, dir)), 0o644))

	cfg, err := pipeline.LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Tasks, 1)
	assert.Equal(t, "plane", cfg.Tasks[0].Name)
	assert.Equal(t, 5, cfg.Tasks[0].KNNGraph.K)
	assert.Equal(t, "out/nncache.txt", cfg.Tasks[0].Reconstruction.NNCacheFile)

	_, err = pipeline.LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
