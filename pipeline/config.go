package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hsisomap/hsisomap/backbone"
	"github.com/hsisomap/hsisomap/knngraph"
	"github.com/hsisomap/hsisomap/landmark"
	"github.com/hsisomap/hsisomap/logging"
	"github.com/hsisomap/hsisomap/property"
)

// Task file identification.
const (
	ConfigType    = "hsisomap_task_configuration"
	ConfigVersion = "0"
)

// Configuration errors.
var (
	// ErrBadConfig indicates a malformed or incomplete task file.
	ErrBadConfig = errors.New("pipeline: bad configuration")

	// ErrUnsupported marks configuration values that are recognised but not
	// implemented.
	ErrUnsupported = errors.New("pipeline: not supported")
)

// Config is a task file.
type Config struct {
	Type    string         `yaml:"type"`
	Version string         `yaml:"version"`
	Log     logging.Config `yaml:"log"`
	Metrics string         `yaml:"metrics"` // Prometheus textfile written after Run
	Tasks   []Task         `yaml:"tasks"`
}

// Task describes one end-to-end run. Relative artifact paths are resolved
// against OutputRoot; Input is used as given.
type Task struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Input       string `yaml:"input"`
	OutputRoot  string `yaml:"output_root"`
	Output      string `yaml:"output"`
	ReducedDims int    `yaml:"reduced_dims"` // 0 means the band count
	Seed        int64  `yaml:"seed"`
	Workers     int    `yaml:"workers"` // 0 means GOMAXPROCS

	Backbone       BackboneConfig       `yaml:"backbone"`
	Landmark       LandmarkConfig       `yaml:"landmark"`
	KNNGraph       KNNGraphConfig       `yaml:"knngraph"`
	Dijkstra       DijkstraConfig       `yaml:"dijkstra"`
	Reconstruction ReconstructionConfig `yaml:"reconstruction"`
	Log            *logging.Config      `yaml:"log"` // overrides Config.Log for this task
}

// BackboneConfig selects the backbone rows.
//
// Implementation "all" (default) keeps every row; "loading" reads the
// index list IndexFile.
type BackboneConfig struct {
	Implementation string `yaml:"implementation"`
	IndexFile      string `yaml:"index_file"`
}

// LandmarkConfig configures landmark selection.
type LandmarkConfig struct {
	Implementation  string  `yaml:"implementation"`
	Count           int     `yaml:"count"`
	IndexFile       string  `yaml:"index_file"` // input list for "list"
	NoiseModel      string  `yaml:"noise_model"`
	NoiseExclusion  float64 `yaml:"noise_exclusion_percentage"`
	NoiseDimensions int     `yaml:"noise_exclusion_dimensions"`
	IndexOutput     string  `yaml:"index_output"`
	SubsetOutput    string  `yaml:"subset_output"`
}

// KNNGraphConfig configures the neighbourhood graph.
type KNNGraphConfig struct {
	Implementation    string `yaml:"implementation"`
	K                 int    `yaml:"k"`
	PoolDepth         int    `yaml:"pool_depth"`
	Subsets           int    `yaml:"subsets"`
	AdaptivePoolDepth int    `yaml:"adaptive_pool_depth"`
	Backend           string `yaml:"backend"`
}

// DijkstraConfig configures the geodesic solve. An empty Implementation
// follows the graph backend.
type DijkstraConfig struct {
	Implementation string `yaml:"implementation"`
	Output         string `yaml:"output"` // landmark-to-all distances
}

// ReconstructionConfig configures the backbone reconstruction.
type ReconstructionConfig struct {
	Strategy         string `yaml:"neighborhood_strategy"`
	NeighborhoodSize int    `yaml:"neighborhood_size"`
	NNCacheFile      string `yaml:"nncache_file"` // read when present, written otherwise
	PrimaryRange     int    `yaml:"primary_search_range"`
	SecondaryRange   int    `yaml:"secondary_search_range"`
	ManifoldOutput   string `yaml:"manifold_output"`
}

// LoadConfig reads and validates a YAML task file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read config: %w", err)
	}

	return ParseConfig(bytes.NewReader(raw))
}

// ParseConfig decodes and validates a YAML task file. Unknown fields are
// rejected.
func ParseConfig(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the file header and the required task fields.
func (c *Config) Validate() error {
	if c.Type != ConfigType {
		return fmt.Errorf("%w: type %q, want %q", ErrBadConfig, c.Type, ConfigType)
	}
	if c.Version != ConfigVersion {
		return fmt.Errorf("%w: version %q, want %q", ErrBadConfig, c.Version, ConfigVersion)
	}
	if len(c.Tasks) == 0 {
		return fmt.Errorf("%w: no tasks", ErrBadConfig)
	}
	var i int
	for i = range c.Tasks {
		if err := c.Tasks[i].validate(); err != nil {
			return fmt.Errorf("task %d (%s): %w", i+1, c.Tasks[i].Name, err)
		}
	}

	return nil
}

func (t *Task) validate() error {
	if t.Input == "" {
		return fmt.Errorf("%w: input required", ErrBadConfig)
	}
	if t.Output == "" {
		return fmt.Errorf("%w: output required", ErrBadConfig)
	}
	if t.ReducedDims < 0 || t.Workers < 0 {
		return fmt.Errorf("%w: reduced_dims=%d workers=%d", ErrBadConfig, t.ReducedDims, t.Workers)
	}
	switch t.Backbone.Implementation {
	case "", "all":
	case "loading":
		if t.Backbone.IndexFile == "" {
			return fmt.Errorf("%w: backbone loading needs index_file", ErrBadConfig)
		}
	case "sampling":
		return fmt.Errorf("%w: backbone implementation %q", ErrUnsupported, t.Backbone.Implementation)
	default:
		return fmt.Errorf("%w: backbone implementation %q", ErrBadConfig, t.Backbone.Implementation)
	}
	switch t.Landmark.NoiseModel {
	case "", "mnf":
	default:
		return fmt.Errorf("%w: landmark noise model %q", ErrUnsupported, t.Landmark.NoiseModel)
	}

	return nil
}

// path resolves an artifact path against OutputRoot. Empty stays empty.
func (t *Task) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(t.OutputRoot, p)
}

// landmarkProperties maps the landmark section onto LANDMARK_* keys; zero
// values are left to the package defaults.
func (t *Task) landmarkProperties() property.List {
	var p property.List
	if t.Landmark.Count != 0 {
		p.Set(landmark.KeyCount, float64(t.Landmark.Count))
	}
	p.Set(landmark.KeyNoiseModel, landmark.NoiseModelMNF)
	if t.Landmark.NoiseExclusion != 0 {
		p.Set(landmark.KeyNoiseExclusionPercent, t.Landmark.NoiseExclusion)
	}
	if t.Landmark.NoiseDimensions != 0 {
		p.Set(landmark.KeyNoiseExclusionDimension, float64(t.Landmark.NoiseDimensions))
	}

	return p
}

// knnProperties maps the knngraph section onto KNNGRAPH_* keys.
func (t *Task) knnProperties() property.List {
	var p property.List
	c := t.KNNGraph
	if c.K != 0 {
		p.Set(knngraph.KeyFixedK, float64(c.K))
	}
	if c.PoolDepth != 0 {
		p.Set(knngraph.KeyFixedKPoolDepth, float64(c.PoolDepth))
	}
	if c.Subsets != 0 {
		p.Set(knngraph.KeyAdaptiveKSubsets, float64(c.Subsets))
	}
	if c.AdaptivePoolDepth != 0 {
		p.Set(knngraph.KeyAdaptiveKPoolDepth, float64(c.AdaptivePoolDepth))
	}

	return p
}

// backboneProperties maps the reconstruction section onto BACKBONE_* keys.
func (t *Task) backboneProperties() property.List {
	var p property.List
	c := t.Reconstruction
	if c.PrimaryRange != 0 {
		p.Set(backbone.KeyPrimaryRange, float64(c.PrimaryRange))
	}
	if c.SecondaryRange != 0 {
		p.Set(backbone.KeySecondaryRange, float64(c.SecondaryRange))
	}
	if c.NeighborhoodSize != 0 {
		p.Set(backbone.KeyFixedNumber, float64(c.NeighborhoodSize))
	}

	return p
}
