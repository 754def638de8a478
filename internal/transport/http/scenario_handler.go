package http

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/services"
)

// ScenarioCatalog lists the scenarios available to the CLI
type ScenarioCatalog interface {
	Scenarios() []services.Scenario
	Scenario(id string) (services.Scenario, error)
}

// ScenarioView is the JSON form of a scenario
type ScenarioView struct {
	ID         string                    `json:"id"`
	WellID     string                    `json:"well_id"`
	From       time.Time                 `json:"period_start"`
	To         time.Time                 `json:"period_end"`
	ExcludeIDs []string                  `json:"exclude_purge_ids"`
	Smoothing  *flowrate.SmoothingConfig `json:"smoothing,omitempty"`
}

func newScenarioView(sc services.Scenario) ScenarioView {
	ids := make([]string, 0, len(sc.Exclude))
	for id := range sc.Exclude {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ScenarioView{
		ID:         sc.ID,
		WellID:     sc.WellID,
		From:       sc.From,
		To:         sc.To,
		ExcludeIDs: ids,
		Smoothing:  sc.Smoothing,
	}
}

// ScenarioHandler serves the loaded scenario definitions
type ScenarioHandler struct {
	catalog    ScenarioCatalog
	errHandler *apperrors.ErrorHandler
}

// NewScenarioHandler creates a new scenario handler
func NewScenarioHandler(catalog ScenarioCatalog, errHandler *apperrors.ErrorHandler) *ScenarioHandler {
	return &ScenarioHandler{catalog: catalog, errHandler: errHandler}
}

// List handles GET /scenarios
func (h *ScenarioHandler) List(w http.ResponseWriter, r *http.Request) {
	scenarios := h.catalog.Scenarios()
	views := make([]ScenarioView, 0, len(scenarios))
	for _, sc := range scenarios {
		views = append(views, newScenarioView(sc))
	}
	render.JSON(w, r, views)
}

// Get handles GET /scenarios/{id}
func (h *ScenarioHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, err := h.catalog.Scenario(chi.URLParam(r, "id"))
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, newScenarioView(sc))
}
