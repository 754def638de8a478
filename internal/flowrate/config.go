package flowrate

import "time"

// FlowModelConfig holds the choke-flow equation constants.
type FlowModelConfig struct {
	C1            float64 `yaml:"c1" envconfig:"C1" default:"2.919" validate:"gt=0"`   // discharge coefficient (4.17 * 0.7)
	C2            float64 `yaml:"c2" envconfig:"C2" default:"4.654" validate:"gt=0"`   // normalizing bore diameter, mm
	C3            float64 `yaml:"c3" envconfig:"C3" default:"286.95" validate:"gt=0"`  // specific gas constant, J/(kg·K)
	Multiplier    float64 `yaml:"multiplier" envconfig:"MULTIPLIER" default:"4.1" validate:"gt=0"`
	CriticalRatio float64 `yaml:"critical_ratio" envconfig:"CRITICAL_RATIO" default:"0.5" validate:"gt=0,lt=1"`
}

// DefaultFlowModelConfig returns the site-wide calibration.
func DefaultFlowModelConfig() FlowModelConfig {
	return FlowModelConfig{
		C1:            2.919,
		C2:            4.654,
		C3:            286.95,
		Multiplier:    4.1,
		CriticalRatio: 0.5,
	}
}

// PurgeLossConfig holds the orifice constants for venting to atmosphere.
type PurgeLossConfig struct {
	ChokeDiameterM float64 `yaml:"choke_diameter_m" envconfig:"CHOKE_DIAMETER_M" default:"0.03" validate:"gt=0"`
	GasConstant    float64 `yaml:"gas_constant" envconfig:"GAS_CONSTANT" default:"8314" validate:"gt=0"` // J/(kmol·K)
	MolarMass      float64 `yaml:"molar_mass" envconfig:"MOLAR_MASS" default:"18" validate:"gt=0"`       // kg/kmol
	DischargeCoeff float64 `yaml:"discharge_coeff" envconfig:"DISCHARGE_COEFF" default:"0.9" validate:"gt=0,lte=1"`
	StandardTempK  float64 `yaml:"standard_temp_k" envconfig:"STANDARD_TEMP_K" default:"273.15" validate:"gt=0"`
	AtmPressureMPa float64 `yaml:"atm_pressure_mpa" envconfig:"ATM_PRESSURE_MPA" default:"0.101325" validate:"gt=0"`
	KgfCm2ToMPa    float64 `yaml:"kgfcm2_to_mpa" envconfig:"KGFCM2_TO_MPA" default:"0.0980665" validate:"gt=0"`
}

// DefaultPurgeLossConfig returns the standard venting orifice.
func DefaultPurgeLossConfig() PurgeLossConfig {
	return PurgeLossConfig{
		ChokeDiameterM: 0.03,
		GasConstant:    8314.0,
		MolarMass:      18.0,
		DischargeCoeff: 0.9,
		StandardTempK:  273.15,
		AtmPressureMPa: 0.101325,
		KgfCm2ToMPa:    0.0980665,
	}
}

// PurgeDetectionConfig tunes marker snapping and curve-shape detection.
type PurgeDetectionConfig struct {
	MinConfidence          float64 `yaml:"min_confidence" envconfig:"MIN_CONFIDENCE" default:"0.3" validate:"gte=0,lte=1"`
	MaxVentingMinutes      float64 `yaml:"max_venting_minutes" envconfig:"MAX_VENTING_MINUTES" default:"60" validate:"gt=0"`
	MinDeclineRate         float64 `yaml:"min_decline_rate" envconfig:"MIN_DECLINE_RATE" default:"0.2" validate:"gt=0"` // kgf/cm² per minute
	MinDeclineMinutes      float64 `yaml:"min_decline_minutes" envconfig:"MIN_DECLINE_MINUTES" default:"3" validate:"gt=0"`
	MinDropMagnitude       float64 `yaml:"min_drop_magnitude" envconfig:"MIN_DROP_MAGNITUDE" default:"1" validate:"gte=0"`
	RecoveryThreshold      float64 `yaml:"recovery_threshold" envconfig:"RECOVERY_THRESHOLD" default:"0.9" validate:"gt=0,lte=1"`
	MaxBuildupHours        float64 `yaml:"max_buildup_hours" envconfig:"MAX_BUILDUP_HOURS" default:"6" validate:"gt=0"`
	MarkerToleranceMinutes float64 `yaml:"marker_tolerance_minutes" envconfig:"MARKER_TOLERANCE_MINUTES" default:"5" validate:"gte=0"`
	PressureLookupMinutes  float64 `yaml:"pressure_lookup_minutes" envconfig:"PRESSURE_LOOKUP_MINUTES" default:"5" validate:"gte=0"`
	MovingAverageWindow    int     `yaml:"moving_average_window" envconfig:"MOVING_AVERAGE_WINDOW" default:"5" validate:"gte=1"`
	BottomSearchBefore     int     `yaml:"bottom_search_before" envconfig:"BOTTOM_SEARCH_BEFORE" default:"5" validate:"gte=0"`
	BottomSearchAfter      int     `yaml:"bottom_search_after" envconfig:"BOTTOM_SEARCH_AFTER" default:"10" validate:"gte=1"`
	RestartSearchSamples   int     `yaml:"restart_search_samples" envconfig:"RESTART_SEARCH_SAMPLES" default:"30" validate:"gte=0"`
	RestartLookahead       int     `yaml:"restart_lookahead" envconfig:"RESTART_LOOKAHEAD" default:"3" validate:"gte=1"`
	RestartSlope           float64 `yaml:"restart_slope" envconfig:"RESTART_SLOPE" default:"-0.02" validate:"lt=0"` // kgf/cm² per minute
	MinCurveSamples        int     `yaml:"min_curve_samples" envconfig:"MIN_CURVE_SAMPLES" default:"30" validate:"gte=2"`
}

// DefaultPurgeDetectionConfig returns the detector defaults.
func DefaultPurgeDetectionConfig() PurgeDetectionConfig {
	return PurgeDetectionConfig{
		MinConfidence:          0.3,
		MaxVentingMinutes:      60,
		MinDeclineRate:         0.2,
		MinDeclineMinutes:      3,
		MinDropMagnitude:       1.0,
		RecoveryThreshold:      0.9,
		MaxBuildupHours:        6,
		MarkerToleranceMinutes: 5,
		PressureLookupMinutes:  5,
		MovingAverageWindow:    5,
		BottomSearchBefore:     5,
		BottomSearchAfter:      10,
		RestartSearchSamples:   30,
		RestartLookahead:       3,
		RestartSlope:           -0.02,
		MinCurveSamples:        30,
	}
}

func (c PurgeDetectionConfig) markerTolerance() time.Duration {
	return minutes(c.MarkerToleranceMinutes)
}

func (c PurgeDetectionConfig) pressureLookup() time.Duration {
	return minutes(c.PressureLookupMinutes)
}

func (c PurgeDetectionConfig) maxVenting() time.Duration {
	return minutes(c.MaxVentingMinutes)
}

func (c PurgeDetectionConfig) maxBuildup() time.Duration {
	return minutes(c.MaxBuildupHours * 60)
}

// SmoothingConfig controls the optional Savitzky–Golay pass.
type SmoothingConfig struct {
	Enabled   bool `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	Window    int  `yaml:"window" envconfig:"WINDOW" default:"17" validate:"gte=3"`
	PolyOrder int  `yaml:"polyorder" envconfig:"POLYORDER" default:"3" validate:"gte=0,ltfield=Window"`
	Passes    int  `yaml:"passes" envconfig:"PASSES" default:"2" validate:"gte=1,lte=5"`
}

// DefaultSmoothingConfig returns a disabled 17/3 double-pass filter.
func DefaultSmoothingConfig() SmoothingConfig {
	return SmoothingConfig{
		Enabled:   false,
		Window:    17,
		PolyOrder: 3,
		Passes:    2,
	}
}

// DowntimeConfig tunes downtime classification.
type DowntimeConfig struct {
	MinBlowoutMinutes float64 `yaml:"min_blowout_minutes" envconfig:"MIN_BLOWOUT_MINUTES" default:"30" validate:"gte=0"`
}

// DefaultDowntimeConfig returns the 30-minute blowout threshold.
func DefaultDowntimeConfig() DowntimeConfig {
	return DowntimeConfig{MinBlowoutMinutes: 30}
}

// Config is the complete engine configuration for one run.
type Config struct {
	FlowModel FlowModelConfig      `yaml:"flow_model" envconfig:"FLOW_MODEL"`
	PurgeLoss PurgeLossConfig      `yaml:"purge_loss" envconfig:"PURGE_LOSS"`
	Detection PurgeDetectionConfig `yaml:"detection" envconfig:"DETECTION"`
	Smoothing SmoothingConfig      `yaml:"smoothing" envconfig:"SMOOTHING"`
	Downtime  DowntimeConfig       `yaml:"downtime" envconfig:"DOWNTIME"`
}

// DefaultConfig returns the defaults for every section.
func DefaultConfig() Config {
	return Config{
		FlowModel: DefaultFlowModelConfig(),
		PurgeLoss: DefaultPurgeLossConfig(),
		Detection: DefaultPurgeDetectionConfig(),
		Smoothing: DefaultSmoothingConfig(),
		Downtime:  DefaultDowntimeConfig(),
	}
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
