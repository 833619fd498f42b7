package properties

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/forest-guardian/moisture-index-cli/internal/scene"
	"gopkg.in/yaml.v2"
)

// RunFile describes one pipeline invocation. Windows are "start/end"
// intervals of RFC3339 timestamps or plain dates.
type RunFile struct {
	AOI           string          `yaml:"aoi"`
	Plot          string          `yaml:"plot"`
	Collection    string          `yaml:"collection"`
	Primary       string          `yaml:"primary_window"`
	Fallback      string          `yaml:"fallback_window"`
	MaxItems      int             `yaml:"max_items"`
	Bands         scene.BandRoles `yaml:"bands"`
	Resampling    string          `yaml:"resampling"`
	Selection     string          `yaml:"selection"`
	HistogramBins int             `yaml:"histogram_bins"`
	OutputDir     string          `yaml:"output_dir"`
	S3Prefix      string          `yaml:"s3_prefix"`
}

// LoadRunFile reads path and fills every field left empty with its default.
// A relative aoi is resolved against the directory of the run file.
func LoadRunFile(path string) (*RunFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	var rf RunFile
	if err := yaml.UnmarshalStrict(b, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse run file %s: %w", path, err)
	}
	if rf.AOI == "" {
		return nil, fmt.Errorf("run file %s has no aoi", path)
	}
	if rf.Primary == "" || rf.Fallback == "" {
		return nil, fmt.Errorf("run file %s needs both primary_window and fallback_window", path)
	}
	if !filepath.IsAbs(rf.AOI) {
		rf.AOI = filepath.Join(filepath.Dir(path), rf.AOI)
	}
	rf.ApplyDefaults()
	return &rf, nil
}

func (rf *RunFile) ApplyDefaults() {
	if rf.Collection == "" {
		rf.Collection = StacCollection()
	}
	if rf.MaxItems == 0 {
		rf.MaxItems = DefaultMaxItems
	}
	if rf.Bands.NIR == "" {
		rf.Bands.NIR = DefaultNIRBand
	}
	if rf.Bands.SWIR == "" {
		rf.Bands.SWIR = DefaultSWIRBand
	}
	if rf.Resampling == "" {
		rf.Resampling = "nearest"
	}
	if rf.Selection == "" {
		rf.Selection = "most-recent"
	}
	if rf.HistogramBins == 0 {
		rf.HistogramBins = DefaultHistogramBins
	}
	if rf.OutputDir == "" {
		rf.OutputDir = filepath.Join(RootPath(), "data", "result")
	}
}
