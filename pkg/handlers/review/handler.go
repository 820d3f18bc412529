package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/de-tools/access-atlas/pkg/adapters"
	"github.com/de-tools/access-atlas/pkg/models/api"
	"github.com/de-tools/access-atlas/pkg/models/domain"
	"github.com/de-tools/access-atlas/pkg/server/metrics"
	"github.com/de-tools/access-atlas/pkg/services/review"
	"github.com/de-tools/access-atlas/pkg/store/duckdb/findings"
)

type Handler struct {
	auditor review.Auditor
	history findings.Store
	metrics *metrics.Metrics
}

func NewHandler(auditor review.Auditor, history findings.Store, m *metrics.Metrics) *Handler {
	return &Handler{
		auditor: auditor,
		history: history,
		metrics: m,
	}
}

func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	profiles, err := h.auditor.ListProfiles(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list profiles")
		http.Error(w, "failed to list profiles", http.StatusInternalServerError)
		return
	}

	response := make([]api.Profile, 0, len(profiles))
	for _, p := range profiles {
		response = append(response, api.Profile{Name: p.Name, Platform: p.Platform})
	}

	err = json.NewEncoder(w).Encode(response)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to encode profiles")
	}
}

func (h *Handler) RunReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	profile := chi.URLParam(r, "profile")

	overrides, err := parseOverrides(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	started := time.Now()
	result, err := h.auditor.ReviewProfile(ctx, profile, overrides)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, fmt.Sprintf("profile %q is not configured", profile), http.StatusNotFound)
		case errors.Is(err, domain.ErrConfig):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			logger.Error().Err(err).Str("profile", profile).Msg("review failed")
			http.Error(w, "review failed", http.StatusInternalServerError)
		}
		return
	}
	h.metrics.ObserveReview(result, time.Since(started))

	err = json.NewEncoder(w).Encode(adapters.MapReviewResultDomainToApi(result))
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to encode review result")
	}
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	runs, err := h.history.ListRuns(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list review runs")
		http.Error(w, "failed to list review runs", http.StatusInternalServerError)
		return
	}

	response := make([]api.ReviewRun, 0, len(runs))
	for _, run := range runs {
		response = append(response, adapters.MapStoreRunToApi(run))
	}

	err = json.NewEncoder(w).Encode(response)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to encode review runs")
	}
}

func (h *Handler) GetRunFindings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	runID := chi.URLParam(r, "runID")

	records, err := h.history.GetFindings(ctx, runID)
	if err != nil {
		logger.Error().Err(err).Str("run_id", runID).Msg("failed to load findings")
		http.Error(w, "failed to load findings", http.StatusInternalServerError)
		return
	}

	response := make([]api.Finding, 0, len(records))
	for _, rec := range records {
		finding, err := adapters.MapStoreFindingToDomain(rec)
		if err != nil {
			logger.Warn().Err(err).Str("run_id", runID).Msg("skipping unreadable finding")
			continue
		}
		response = append(response, adapters.MapFindingDomainToApi(finding))
	}

	err = json.NewEncoder(w).Encode(response)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to encode findings")
	}
}

// parseOverrides reads per-run config knobs from the query string.
func parseOverrides(r *http.Request) (*review.Overrides, error) {
	query := r.URL.Query()
	var overrides review.Overrides
	set := false

	if raw := query.Get("staleness_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return nil, fmt.Errorf("invalid 'staleness_days' value. Expected a non-negative integer")
		}
		overrides.StalenessThresholdDays = &days
		set = true
	}
	if factors, ok := query["factor"]; ok && len(factors) > 0 {
		overrides.EnabledFactors = factors
		set = true
	}

	if !set {
		return nil, nil
	}
	return &overrides, nil
}
