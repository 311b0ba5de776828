package httpadapter

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/ports"
)

func (rt *Router) createJob(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	job, err := rt.jobs.CreateJob(r.Context(), ports.NewJob{
		CustomerID:      req.CustomerID,
		PropertyAddress: req.PropertyAddress,
		ScheduledDate:   req.ScheduledDate,
		Notes:           req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobDetailResponse(job, nil))
}

func (rt *Router) listJobs(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := domain.JobFilter{Page: page}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := domain.ParseJobStatus(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.Status = status
	}

	jobs, err := rt.jobs.ListJobs(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		items = append(items, toJobResponse(&jobs[i]))
	}
	writeJSON(w, http.StatusOK, listResponse[jobResponse]{
		Items:  items,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// getJob embeds the customer when it can be loaded; a missing customer does
// not fail the request.
func (rt *Router) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := rt.jobs.GetJob(r.Context(), urlID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	customer, err := rt.customers.GetCustomer(r.Context(), job.CustomerID)
	if err != nil {
		slog.Warn("job_customer_lookup_failed",
			"request_id", requestIDFromContext(r.Context()),
			"job_id", job.ID,
			"customer_id", job.CustomerID,
			"error", err,
		)
		customer = nil
	}
	writeJSON(w, http.StatusOK, toJobDetailResponse(job, customer))
}

func (rt *Router) updateJob(w http.ResponseWriter, r *http.Request) {
	var req jobUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	job, err := rt.jobs.UpdateJob(r.Context(), urlID(r), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDetailResponse(job, nil))
}

func (rt *Router) deleteJob(w http.ResponseWriter, r *http.Request) {
	if err := rt.jobs.DeleteJob(r.Context(), urlID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) getEstimate(w http.ResponseWriter, r *http.Request) {
	estimate, err := rt.jobs.GetEstimate(r.Context(), urlID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEstimateResponse(estimate))
}
