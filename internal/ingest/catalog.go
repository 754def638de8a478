package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/infrastructure"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/services"
)

// well holds the loaded inputs of one well
type well struct {
	pressureFile string
	chokeMM      *float64
	samples      []flowrate.PressureSample
	markers      []flowrate.PurgeMarker
}

// Catalog serves scenario inputs loaded from scenario files. It is read
// fully on construction and is safe for concurrent use.
type Catalog struct {
	wells       map[string]*well
	scenarios   []services.Scenario
	byID        map[string]int
	corrections map[string][]flowrate.Correction
	logger      *slog.Logger
}

var (
	_ services.PressureSource   = (*Catalog)(nil)
	_ services.ChokeSource      = (*Catalog)(nil)
	_ services.MarkerSource     = (*Catalog)(nil)
	_ services.CorrectionSource = (*Catalog)(nil)
)

// LoadCatalogDir loads every *.yaml and *.yml file of dir in name order
func LoadCatalogDir(dir string, logger *slog.Logger) (*Catalog, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, apperrors.NewConfigError("invalid scenario directory pattern", err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, apperrors.NewNotFoundError("scenario directory " + dir)
		}
		return nil, apperrors.NewMissingInputError("no scenario files in " + dir)
	}
	sort.Strings(files)
	return LoadCatalog(files, logger)
}

// LoadCatalog loads the given scenario files and the CSV inputs they name.
// Scenarios of the same well must agree on its pressure file and choke.
func LoadCatalog(files []string, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{
		wells:       make(map[string]*well),
		byID:        make(map[string]int),
		corrections: make(map[string][]flowrate.Correction),
		logger:      infrastructure.WithComponent(logger, "catalog"),
	}
	for _, path := range files {
		if err := c.add(path); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(path string) error {
	sf, err := LoadScenarioFile(path)
	if err != nil {
		return err
	}
	if _, dup := c.byID[sf.ID]; dup {
		return apperrors.NewConfigError(fmt.Sprintf("duplicate scenario id %q in %s", sf.ID, path), nil)
	}
	corrections, err := sf.EngineCorrections()
	if err != nil {
		return err
	}
	if err := c.addWell(sf); err != nil {
		return err
	}

	c.byID[sf.ID] = len(c.scenarios)
	c.scenarios = append(c.scenarios, sf.Scenario())
	c.corrections[sf.ID] = corrections
	c.logger.Debug("scenario loaded",
		slog.String("scenario_id", sf.ID),
		slog.String("well_id", sf.WellID),
		slog.Int("corrections", len(corrections)))
	return nil
}

func (c *Catalog) addWell(sf *ScenarioFile) error {
	pressureFile := sf.resolve(sf.PressureFile)
	if w, ok := c.wells[sf.WellID]; ok {
		if w.pressureFile != pressureFile {
			return apperrors.NewConfigError(fmt.Sprintf("well %s: scenario %s names pressure file %s, already loaded from %s",
				sf.WellID, sf.ID, pressureFile, w.pressureFile), nil)
		}
		if !sameChoke(w.chokeMM, sf.ChokeMM) {
			return apperrors.NewConfigError(fmt.Sprintf("well %s: scenario %s declares a different choke diameter", sf.WellID, sf.ID), nil)
		}
		return nil
	}

	opts, err := sf.ReadOptions()
	if err != nil {
		return err
	}
	w := &well{pressureFile: pressureFile, chokeMM: sf.ChokeMM}

	w.samples, err = readFile(c.logger, pressureFile, opts, ReadPressureCSV)
	if err != nil {
		return fmt.Errorf("well %s: %w", sf.WellID, err)
	}
	if sf.MarkersFile != "" {
		w.markers, err = readFile(c.logger, sf.resolve(sf.MarkersFile), opts, ReadMarkersCSV)
		if err != nil {
			return fmt.Errorf("well %s: %w", sf.WellID, err)
		}
	}
	c.logger.Info("well inputs loaded",
		slog.String("well_id", sf.WellID),
		slog.Int("samples", len(w.samples)),
		slog.Int("markers", len(w.markers)))
	c.wells[sf.WellID] = w
	return nil
}

func readFile[T any](logger *slog.Logger, path string, opts ReadOptions, read func(io.Reader, ReadOptions) ([]T, ReadReport, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("input file " + path)
		}
		return nil, apperrors.NewStorageError("open input file", err)
	}
	defer f.Close()

	out, report, err := read(f, opts)
	if err != nil {
		var ae *apperrors.AppError
		if errors.As(err, &ae) {
			return nil, ae.WithContext("file", path)
		}
		return nil, err
	}
	if len(report.Errors) > 0 {
		logger.Warn("input rows with problems",
			slog.String("file", path),
			slog.Int("rows", report.Rows),
			slog.Int("skipped", report.Skipped),
			slog.String("first", report.Errors[0]))
	}
	return out, nil
}

func sameChoke(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Scenarios returns the loaded scenarios in file order
func (c *Catalog) Scenarios() []services.Scenario {
	out := make([]services.Scenario, len(c.scenarios))
	copy(out, c.scenarios)
	return out
}

// Scenario returns the scenario with the given id
func (c *Catalog) Scenario(id string) (services.Scenario, error) {
	idx, ok := c.byID[id]
	if !ok {
		return services.Scenario{}, apperrors.NewNotFoundError("scenario " + id)
	}
	return c.scenarios[idx], nil
}

func (c *Catalog) well(wellID string) (*well, error) {
	w, ok := c.wells[wellID]
	if !ok {
		return nil, apperrors.NewNotFoundError("well " + wellID)
	}
	return w, nil
}

// LoadPressure returns the samples within [from, to]
func (c *Catalog) LoadPressure(ctx context.Context, wellID string, from, to time.Time) ([]flowrate.PressureSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, err := c.well(wellID)
	if err != nil {
		return nil, err
	}
	lo := sort.Search(len(w.samples), func(i int) bool { return !w.samples[i].Time.Before(from) })
	hi := sort.Search(len(w.samples), func(i int) bool { return w.samples[i].Time.After(to) })
	if lo >= hi {
		return []flowrate.PressureSample{}, nil
	}
	out := make([]flowrate.PressureSample, hi-lo)
	copy(out, w.samples[lo:hi])
	return out, nil
}

// ChokeDiameter returns the declared choke diameter, nil when none is set
func (c *Catalog) ChokeDiameter(ctx context.Context, wellID string) (*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, err := c.well(wellID)
	if err != nil {
		return nil, err
	}
	if w.chokeMM == nil {
		return nil, nil
	}
	d := *w.chokeMM
	return &d, nil
}

// LoadMarkers returns the purge markers within [from, to]
func (c *Catalog) LoadMarkers(ctx context.Context, wellID string, from, to time.Time) ([]flowrate.PurgeMarker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, err := c.well(wellID)
	if err != nil {
		return nil, err
	}
	var out []flowrate.PurgeMarker
	for _, m := range w.markers {
		if m.Time.Before(from) || m.Time.After(to) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// LoadCorrections returns the corrections declared by a scenario
func (c *Catalog) LoadCorrections(ctx context.Context, scenarioID string) ([]flowrate.Correction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	corrections, ok := c.corrections[scenarioID]
	if !ok {
		return nil, apperrors.NewNotFoundError("scenario " + scenarioID)
	}
	out := make([]flowrate.Correction, len(corrections))
	copy(out, corrections)
	return out, nil
}

// Sources exposes the catalog as every service port
func (c *Catalog) Sources() services.Sources {
	return services.Sources{Pressure: c, Choke: c, Markers: c, Corrections: c}
}
