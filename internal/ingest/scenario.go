package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/services"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ScenarioFile is the YAML description of one scenario and its inputs.
// File paths are relative to the YAML file.
type ScenarioFile struct {
	ID          string    `yaml:"id" validate:"required"`
	WellID      string    `yaml:"well_id" validate:"required"`
	PeriodStart time.Time `yaml:"period_start" validate:"required"`
	PeriodEnd   time.Time `yaml:"period_end" validate:"required,gtfield=PeriodStart"`
	ChokeMM     *float64  `yaml:"choke_mm" validate:"omitempty,gt=0"`

	PressureFile string `yaml:"pressure_file" validate:"required"`
	MarkersFile  string `yaml:"markers_file"`
	// Separator is "," (default) or ";" with decimal commas.
	Separator string `yaml:"separator"`
	// Timezone interprets zone-less timestamps, e.g. "Asia/Tashkent".
	Timezone string `yaml:"timezone"`

	// ExcludePurgeIDs is the comma-separated list of excluded cycle ids.
	ExcludePurgeIDs string                    `yaml:"exclude_purge_ids"`
	Smoothing       *flowrate.SmoothingConfig `yaml:"smoothing"`
	Corrections     []CorrectionSpec          `yaml:"corrections" validate:"dive"`

	dir string
}

// CorrectionSpec is the flat YAML form of a correction. Only the fields of
// its type are used.
type CorrectionSpec struct {
	ID        string    `yaml:"id"`
	Type      string    `yaml:"type" validate:"required"`
	TimeStart time.Time `yaml:"time_start" validate:"required"`
	TimeEnd   time.Time `yaml:"time_end" validate:"required"`
	Order     int       `yaml:"order"`
	Reason    string    `yaml:"reason"`

	Method    string   `yaml:"method"`
	TubeValue *float64 `yaml:"tube_value"`
	LineValue *float64 `yaml:"line_value"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
}

// Correction converts the spec into an engine correction. Unknown types are
// ConfigurationErrors; window ordering is checked by the engine.
func (c CorrectionSpec) Correction() (flowrate.Correction, error) {
	out := flowrate.Correction{
		ID:        c.ID,
		Type:      flowrate.CorrectionType(c.Type),
		TimeStart: c.TimeStart,
		TimeEnd:   c.TimeEnd,
		Order:     c.Order,
		Reason:    c.Reason,
	}
	switch out.Type {
	case flowrate.CorrectionExclude:
		out.Params = flowrate.ExcludeParams{}
	case flowrate.CorrectionInterpolate:
		out.Params = flowrate.InterpolateParams{Method: flowrate.InterpolationMethod(c.Method)}
	case flowrate.CorrectionManualValue:
		out.Params = flowrate.ManualValueParams{Tube: c.TubeValue, Line: c.LineValue}
	case flowrate.CorrectionClamp:
		out.Params = flowrate.ClampParams{Min: c.Min, Max: c.Max}
	default:
		return flowrate.Correction{}, apperrors.NewConfigError(fmt.Sprintf("unknown correction type %q", c.Type), nil).
			WithContext("correction_id", c.ID)
	}
	return out, nil
}

// LoadScenarioFile reads and validates a scenario YAML file
func LoadScenarioFile(path string) (*ScenarioFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("scenario file " + path)
		}
		return nil, apperrors.NewStorageError("read scenario file", err)
	}

	var sf ScenarioFile
	if err := yaml.UnmarshalStrict(data, &sf); err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("parse scenario file %s", path), err)
	}
	if err := validate.Struct(sf); err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("invalid scenario file %s", path), err)
	}
	switch sf.Separator {
	case "", ",", ";":
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("invalid scenario file %s: separator must be \",\" or \";\"", path), nil)
	}
	sf.dir = filepath.Dir(path)
	return &sf, nil
}

// Scenario returns the service-level request described by the file
func (sf *ScenarioFile) Scenario() services.Scenario {
	return services.Scenario{
		ID:        sf.ID,
		WellID:    sf.WellID,
		From:      sf.PeriodStart,
		To:        sf.PeriodEnd,
		Exclude:   flowrate.ParseExcludeIDs(sf.ExcludePurgeIDs),
		Smoothing: sf.Smoothing,
	}
}

// EngineCorrections converts every correction spec
func (sf *ScenarioFile) EngineCorrections() ([]flowrate.Correction, error) {
	out := make([]flowrate.Correction, 0, len(sf.Corrections))
	for _, spec := range sf.Corrections {
		c, err := spec.Correction()
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sf.ID, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// ReadOptions returns the CSV options declared by the file
func (sf *ScenarioFile) ReadOptions() (ReadOptions, error) {
	opts := ReadOptions{Comma: ','}
	if sf.Separator == ";" {
		opts.Comma = ';'
	}
	if sf.Timezone != "" {
		loc, err := time.LoadLocation(sf.Timezone)
		if err != nil {
			return opts, apperrors.NewConfigError(fmt.Sprintf("scenario %s: unknown timezone %q", sf.ID, sf.Timezone), err)
		}
		opts.Location = loc
	}
	return opts, nil
}

// resolve returns path relative to the scenario file's directory
func (sf *ScenarioFile) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(sf.dir, path)
}
