package pipeline

import (
	"context"
	"fmt"

	"github.com/hsisomap/hsisomap/artifact"
	"github.com/hsisomap/hsisomap/backbone"
	"github.com/hsisomap/hsisomap/dijkstra"
	"github.com/hsisomap/hsisomap/embedding"
	"github.com/hsisomap/hsisomap/graph"
	"github.com/hsisomap/hsisomap/knngraph"
	"github.com/hsisomap/hsisomap/landmark"
	"github.com/hsisomap/hsisomap/logging"
	"github.com/hsisomap/hsisomap/manifold"
	"github.com/hsisomap/hsisomap/matrix"
)

// defaultNeighborhood is the reconstruction neighbourhood size used when
// neither the task nor an existing NN cache sets one.
const defaultNeighborhood = 10

// Result summarizes a finished task.
type Result struct {
	Output         string
	Rows           int   // input rows
	BackboneRows   int   // rows of the backbone
	Landmarks      []int // landmark positions within the backbone
	Components     int   // kNN components before augmentation
	AugmentedEdges int
	ManifoldDims   int
	Reconstructed  *matrix.Dense
}

// runner carries the state of one task between stages.
type runner struct {
	task    Task
	log     *logging.Logger
	metrics *Metrics
	workers int
	seed    int64

	data      *matrix.Dense
	bb        *backbone.Backbone
	knn       knngraph.Builder
	landmarks []int
	geodesic  *matrix.Dense // landmarks × backbone rows
	lmDist    *matrix.Dense // landmarks × landmarks
	cmds      *embedding.Embedding
	coords    *matrix.Dense // backbone rows × manifold dims
	out       *matrix.Dense
}

// run executes the stages in order.
func (r *runner) run(ctx context.Context) (*Result, error) {
	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"load", r.load},
		{"backbone", r.buildBackbone},
		{"knngraph", r.buildGraph},
		{"landmark", r.selectLandmarks},
		{"dijkstra", r.solveGeodesics},
		{"cmds", r.embed},
		{"manifold", r.construct},
		{"reconstruct", r.reconstruct},
	}
	var i int
	for i = range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fn := stages[i].fn
		if err := r.stage(ctx, stages[i].name, func() error { return fn(ctx) }); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Output:         r.task.path(r.task.Output),
		Rows:           r.data.Rows(),
		BackboneRows:   r.bb.SampledData().Rows(),
		Landmarks:      append([]int(nil), r.landmarks...),
		Components:     r.knn.Components(),
		AugmentedEdges: r.knn.AugmentedEdges(),
		ManifoldDims:   r.coords.Cols(),
		Reconstructed:  r.out,
	}
	r.metrics.Rows.WithLabelValues("pixels").Set(float64(res.Rows))
	r.metrics.Rows.WithLabelValues("backbone").Set(float64(res.BackboneRows))
	r.metrics.Rows.WithLabelValues("landmarks").Set(float64(len(res.Landmarks)))
	r.metrics.AugmentedEdges.Add(float64(res.AugmentedEdges))

	return res, nil
}

func (r *runner) load(context.Context) error {
	m, err := artifact.ReadMatrix(r.task.Input)
	if err != nil {
		return err
	}
	if m.Empty() {
		return fmt.Errorf("%w: empty input %s", ErrBadConfig, r.task.Input)
	}
	r.data = m
	r.log.Info("input loaded", "rows", m.Rows(), "bands", m.Cols())

	return nil
}

func (r *runner) buildBackbone(context.Context) error {
	var idx []int
	if r.task.Backbone.Implementation == "loading" {
		var err error
		if idx, err = artifact.ReadIndices(r.task.path(r.task.Backbone.IndexFile)); err != nil {
			return err
		}
	}
	bb, err := backbone.New(r.data, idx,
		backbone.WithProperties(r.task.backboneProperties()),
		backbone.WithWorkers(r.workers),
		backbone.WithSeed(r.seed),
		backbone.WithLogger(r.log))
	if err != nil {
		return err
	}
	r.bb = bb
	r.log.Info("backbone ready", "rows", bb.SampledData().Rows())

	return nil
}

func (r *runner) buildGraph(ctx context.Context) error {
	c := r.task.KNNGraph
	impl, err := knngraph.ParseImplementation(c.Implementation)
	if err != nil {
		return err
	}
	backend, err := graph.ParseBackend(c.Backend)
	if err != nil {
		return err
	}
	b, err := knngraph.New(ctx, impl, r.bb.SampledData(),
		knngraph.WithProperties(r.task.knnProperties()),
		knngraph.WithBackend(backend),
		knngraph.WithWorkers(r.workers),
		knngraph.WithSeed(r.seed),
		knngraph.WithLogger(r.log))
	if err != nil {
		return err
	}
	r.knn = b

	return nil
}

func (r *runner) selectLandmarks(context.Context) error {
	c := r.task.Landmark
	impl, err := landmark.ParseImplementation(c.Implementation)
	if err != nil {
		return err
	}
	opts := []landmark.Option{
		landmark.WithProperties(r.task.landmarkProperties()),
		landmark.WithSeed(r.seed),
		landmark.WithLogger(r.log),
	}
	if impl == landmark.ImplementationList {
		list, err := artifact.ReadIndices(r.task.path(c.IndexFile))
		if err != nil {
			return err
		}
		opts = append(opts, landmark.WithList(list))
	}
	sel, err := landmark.New(impl, r.bb.SampledData(), opts...)
	if err != nil {
		return err
	}
	r.landmarks = sel.Indices()

	// Optional artifacts.
	if c.IndexOutput != "" {
		if err = artifact.WriteIndices(r.task.path(c.IndexOutput), r.landmarks); err != nil {
			return err
		}
	}
	if sub, ok := sel.(*landmark.Subsets); ok && c.SubsetOutput != "" {
		if err = artifact.WriteIndexGroups(r.task.path(c.SubsetOutput), sub.SubsetIndices()); err != nil {
			return err
		}
	}

	return nil
}

func (r *runner) solveGeodesics(ctx context.Context) error {
	impl, err := r.dijkstraImplementation()
	if err != nil {
		return err
	}
	e, err := dijkstra.New(impl, r.knn.Graph(),
		dijkstra.WithWorkers(r.workers),
		dijkstra.WithLogger(r.log))
	if err != nil {
		return err
	}
	if err = e.SetSourceVertices(r.landmarks); err != nil {
		return err
	}
	r.log.Info("solving geodesics", "landmarks", len(r.landmarks), "vertices", r.knn.Graph().NumVertices())
	if err = e.Run(ctx); err != nil {
		return err
	}
	if r.geodesic, err = e.DistanceMatrix(); err != nil {
		return err
	}
	if out := r.task.Dijkstra.Output; out != "" {
		return artifact.WriteMatrix(r.task.path(out), r.geodesic)
	}

	return nil
}

// dijkstraImplementation follows the graph backend unless set explicitly.
func (r *runner) dijkstraImplementation() (dijkstra.Implementation, error) {
	if s := r.task.Dijkstra.Implementation; s != "" {
		return dijkstra.ParseImplementation(s)
	}
	if _, ok := r.knn.Graph().(*graph.Library); ok {
		return dijkstra.ImplementationLibrary, nil
	}

	return dijkstra.ImplementationParallel, nil
}

// embed runs CMDS on the symmetrized landmark-to-landmark distances.
func (r *runner) embed(context.Context) error {
	lm, err := r.geodesic.SelectCols(r.landmarks)
	if err != nil {
		return err
	}
	var i, j int
	l := lm.Rows()
	for i = 0; i < l; i++ {
		for j = i + 1; j < l; j++ {
			a, b := lm.At(i, j), lm.At(j, i)
			if a == matrix.Sentinel || b == matrix.Sentinel {
				continue
			}
			m := (a + b) / 2
			lm.Set(i, j, m)
			lm.Set(j, i, m)
		}
	}
	r.lmDist = lm

	dims := r.task.ReducedDims
	if dims == 0 {
		dims = r.data.Cols()
	}
	if dims > l {
		dims = l
	}
	if r.cmds, err = embedding.CMDS(lm, dims, true); err != nil {
		return err
	}

	return nil
}

// construct extends the landmark embedding over the positive eigenvalues.
func (r *runner) construct(context.Context) error {
	dims := 0
	var j int
	for j = 0; j < r.cmds.Values.Cols(); j++ {
		if !(r.cmds.Values.At(0, j) > 0) {
			break
		}
		dims++
	}
	if dims == 0 {
		return fmt.Errorf("%w: no positive CMDS eigenvalue", manifold.ErrNonPositiveEigenvalue)
	}
	if dims < r.cmds.Values.Cols() {
		r.log.Warn("manifold truncated to positive eigenvalues", "requested", r.cmds.Values.Cols(), "dims", dims)
	}
	m, err := manifold.Construct(r.geodesic, r.lmDist, r.cmds, dims)
	if err != nil {
		return err
	}
	r.coords = m
	if out := r.task.Reconstruction.ManifoldOutput; out != "" {
		return artifact.WriteMatrix(r.task.path(out), m)
	}

	return nil
}

// reconstruct maps the manifold to every input row and writes the output.
func (r *runner) reconstruct(ctx context.Context) error {
	c := r.task.Reconstruction
	strategy, err := backbone.ParseStrategy(c.Strategy)
	if err != nil {
		return err
	}
	props := r.task.backboneProperties()
	props.Set(backbone.KeyStrategy, float64(strategy))
	rc := backbone.ReconstructionFromProperties(props)

	// 1) NN cache: reuse the configured file, or build and store it.
	cachePath := r.task.path(c.NNCacheFile)
	switch {
	case cachePath != "" && artifact.Exists(cachePath):
		cache, err := artifact.ReadMatrix(cachePath)
		if err != nil {
			return err
		}
		if err = r.bb.SetNNCache(cache); err != nil {
			return fmt.Errorf("nncache %s: %w", cachePath, err)
		}
		r.log.Info("NN cache loaded", "path", cachePath, "rows", cache.Rows())
	case rc.Strategy == backbone.StrategyFixed:
		if rc.Neighbors == 0 {
			rc.Neighbors = min(defaultNeighborhood, r.bb.SampledData().Rows())
		}
		if err = r.bb.PrepareNNCache(ctx, rc.Neighbors); err != nil {
			return err
		}
		if cachePath != "" {
			if err = artifact.WriteMatrix(cachePath, r.bb.NNCache()); err != nil {
				return err
			}
		}
	}

	// 2) Reconstruction.
	out, err := r.bb.Reconstruct(ctx, r.coords, rc)
	if err != nil {
		return err
	}
	r.out = out

	return artifact.WriteMatrix(r.task.path(r.task.Output), out)
}
