package consensus

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// FileConfig is the on-disk form of a run. Names are resolved with
// AlgorithmByName, LinkageByName and MetricByName.
//
//	k: 3
//	subsamples: 300
//	subsample_fraction: 0.8
//	algorithms: [kmeans, hierarchical]
//	linkages: [average, complete]
//	final_algorithm: hierarchical
//	final_linkage: average
//	metric: pearson
type FileConfig struct {
	K                 int      `yaml:"k" validate:"required,min=1"`
	Subsamples        int      `yaml:"subsamples" validate:"omitempty,min=1"`
	SubsampleFraction float64  `yaml:"subsample_fraction" validate:"min=0,max=1"`
	NormalizeVariance bool     `yaml:"normalize_variance"`
	Metric            string   `yaml:"metric" validate:"omitempty,oneof=euclidean manhattan chebyshev cosine pearson"`
	Algorithms        []string `yaml:"algorithms" validate:"dive,oneof=hierarchical kmeans pam som"`
	Linkages          []string `yaml:"linkages" validate:"dive,oneof=average single complete"`
	FinalAlgorithm    string   `yaml:"final_algorithm" validate:"omitempty,oneof=hierarchical pam"`
	FinalLinkage      string   `yaml:"final_linkage" validate:"omitempty,oneof=average single complete"`
	Threshold         float64  `yaml:"threshold" validate:"min=0,max=1"`
	Seed              int64    `yaml:"seed"`
	Workers           int      `yaml:"workers" validate:"min=0"`

	SOM struct {
		HDim      int     `yaml:"hdim" validate:"omitempty,min=2"`
		VDim      int     `yaml:"vdim" validate:"omitempty,min=2"`
		LearnRate float64 `yaml:"learn_rate" validate:"min=0"`
		Epochs    int     `yaml:"epochs" validate:"min=0"`
	} `yaml:"som"`

	Anneal struct {
		MaxIterations int `yaml:"max_iterations" validate:"min=0"`
		Stagnation    int `yaml:"stagnation" validate:"min=0"`
	} `yaml:"anneal"`
}

// LoadConfig reads a YAML run file and returns the corresponding Config.
// Unset fields keep the values of [DefaultConfig]; runtime-only fields
// (Logger, Progress, Metrics, Coordinator) are left for the caller.
func LoadConfig(r io.Reader) (Config, error) {
	var fc FileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return Config{}, configErrorf("decoding run file: %v", err)
	}
	if err := validate.Struct(&fc); err != nil {
		return Config{}, formatValidationError(err)
	}
	return fc.Config()
}

// Config resolves the names in fc into a Config.
func (fc *FileConfig) Config() (Config, error) {
	cfg := DefaultConfig()
	cfg.K = fc.K
	if fc.Subsamples > 0 {
		cfg.Subsamples = fc.Subsamples
	}
	cfg.SubsampleFraction = fc.SubsampleFraction
	cfg.NormalizeVariance = fc.NormalizeVariance
	cfg.Threshold = fc.Threshold
	cfg.Seed = fc.Seed
	cfg.Workers = fc.Workers
	if fc.Anneal.MaxIterations > 0 {
		cfg.Anneal.MaxIterations = fc.Anneal.MaxIterations
	}
	if fc.Anneal.Stagnation > 0 {
		cfg.Anneal.Stagnation = fc.Anneal.Stagnation
	}

	if fc.Metric != "" {
		m, err := MetricByName(fc.Metric)
		if err != nil {
			return Config{}, err
		}
		cfg.Metric = m
	}

	if len(fc.Algorithms) > 0 {
		cfg.Algorithms = nil
		for _, name := range fc.Algorithms {
			alg, err := AlgorithmByName(name)
			if err != nil {
				return Config{}, err
			}
			if som, ok := alg.(*SOM); ok {
				som.HDim, som.VDim = fc.SOM.HDim, fc.SOM.VDim
				som.LearnRate, som.Epochs = fc.SOM.LearnRate, fc.SOM.Epochs
			}
			cfg.Algorithms = append(cfg.Algorithms, alg)
		}
	}

	if len(fc.Linkages) > 0 {
		cfg.Linkages = nil
		for _, name := range fc.Linkages {
			l, err := LinkageByName(name)
			if err != nil {
				return Config{}, err
			}
			cfg.Linkages = append(cfg.Linkages, l)
		}
	}

	if fc.FinalAlgorithm != "" {
		alg, err := AlgorithmByName(fc.FinalAlgorithm)
		if err != nil {
			return Config{}, err
		}
		cfg.FinalAlgorithm = alg
	}
	if h, ok := cfg.FinalAlgorithm.(*Hierarchical); ok && fc.FinalLinkage != "" {
		l, err := LinkageByName(fc.FinalLinkage)
		if err != nil {
			return Config{}, err
		}
		h.Linkage = l
	}

	if err := validateConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// formatValidationError turns validator field errors into one configuration
// error listing every offending field.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return configErrorf("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return configErrorf("%s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
