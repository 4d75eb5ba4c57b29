package harness

import (
	"log"

	"github.com/viaems/ecuharness/outputs"
	"github.com/viaems/ecuharness/recording"
	"github.com/viaems/ecuharness/timing"
	"github.com/viaems/ecuharness/validate"
)

// A Builder can build harnesses.
type Builder struct {
	config       *outputs.Config
	tolerances   validate.Tolerances
	outputDomain timing.Domain
	recorder     recording.Recorder
	logger       *log.Logger
}

// MakeBuilder creates a Builder with the default output schedule, the
// default tolerances and target-reported outputs.
func MakeBuilder() Builder {
	return Builder{
		config:       outputs.Default(),
		tolerances:   validate.DefaultTolerances,
		outputDomain: timing.TargetDomain,
	}
}

// WithConfig sets the output schedule firings are validated against.
func (b Builder) WithConfig(config *outputs.Config) Builder {
	b.config = config
	return b
}

// WithTolerances sets the validation tolerances.
func (b Builder) WithTolerances(t validate.Tolerances) Builder {
	b.tolerances = t
	return b
}

// WithCaptureOutputs derives firings from the hardware capture instead of
// from what the target reports.
func (b Builder) WithCaptureOutputs() Builder {
	b.outputDomain = timing.CaptureDomain
	return b
}

// WithRecorder stores every run in the recorder.
func (b Builder) WithRecorder(r recording.Recorder) Builder {
	b.recorder = r
	return b
}

// WithLogger reports run progress to the logger.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates the harness.
func (b Builder) Build() *Harness {
	if b.config == nil {
		log.Panic("harness: no output configuration")
	}

	if b.recorder != nil {
		recording.CreateTables(b.recorder)
	}

	return &Harness{
		config:       b.config,
		tolerances:   b.tolerances,
		outputDomain: b.outputDomain,
		recorder:     b.recorder,
		logger:       b.logger,
	}
}
