package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/cleanout-estimator/internal/config"
	"github.com/kirillkom/cleanout-estimator/internal/core/ports"
	"github.com/kirillkom/cleanout-estimator/internal/observability/metrics"
)

const maxJSONBodyBytes = 1 << 20

type Router struct {
	customers ports.CustomerService
	jobs      ports.JobService
	rooms     ports.RoomService
	invoices  ports.InvoiceService
	pricing   ports.PricingTableReader

	maxImageBytes     int64
	rateLimitRPS      float64
	rateLimitBurst    int
	maxInFlight       int
	queueWait         time.Duration
	httpServerMetrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	customers ports.CustomerService,
	jobs ports.JobService,
	rooms ports.RoomService,
	invoices ports.InvoiceService,
	pricing ports.PricingTableReader,
) *Router {
	maxImageBytes := cfg.MaxImageBytes
	if maxImageBytes <= 0 {
		maxImageBytes = 10 << 20
	}
	return &Router{
		customers:      customers,
		jobs:           jobs,
		rooms:          rooms,
		invoices:       invoices,
		pricing:        pricing,
		maxImageBytes:  maxImageBytes,
		rateLimitRPS:   cfg.APIRateLimitRPS,
		rateLimitBurst: cfg.APIRateLimitBurst,
		maxInFlight:    cfg.APIMaxInFlight,
		queueWait:      cfg.APIQueueWait,
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.httpServerMetrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware, accessLogMiddleware)
	if rt.httpServerMetrics != nil {
		r.Use(rt.httpServerMetrics.Middleware)
		r.Handle("/metrics", rt.httpServerMetrics.Handler())
	}

	r.Get("/healthz", rt.healthz)
	r.Get("/openapi.yaml", serveOpenAPI)

	r.Route("/v1", func(r chi.Router) {
		r.Use(rt.trafficControl)

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", rt.createCustomer)
			r.Get("/", rt.listCustomers)
			r.Get("/{id}", rt.getCustomer)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", rt.createJob)
			r.Get("/", rt.listJobs)
			r.Get("/{id}", rt.getJob)
			r.Patch("/{id}", rt.updateJob)
			r.Delete("/{id}", rt.deleteJob)
			r.Get("/{id}/estimate", rt.getEstimate)
			r.Post("/{id}/invoices", rt.createInvoice)
			r.Get("/{id}/invoices", rt.listInvoices)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", rt.createRoom)
			r.Get("/", rt.listRooms)
			r.Get("/{id}", rt.getRoom)
			r.Delete("/{id}", rt.deleteRoom)
			r.Put("/{id}/override", rt.overrideRoom)
			r.Patch("/{id}/override", rt.overrideRoom)
			r.Put("/{id}/adjustments", rt.setRoomAdjustments)
			r.Post("/{id}/reprocess", rt.reprocessRoom)
		})

		r.Get("/invoices/{id}", rt.getInvoice)
		r.Get("/invoices/{id}/xlsx", rt.exportInvoice)
		r.Get("/pricing/table", rt.getPricingTable)
	})

	return r
}

func (rt *Router) trafficControl(next http.Handler) http.Handler {
	var onReject rejectRecorder
	if rt.httpServerMetrics != nil {
		onReject = rt.httpServerMetrics.RecordRejected
	}
	gated := backpressureMiddleware(next, rt.maxInFlight, rt.queueWait, onReject)
	return rateLimitMiddleware(gated, rt.rateLimitRPS, rt.rateLimitBurst, onReject)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
