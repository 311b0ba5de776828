package httpadapter

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/pricing"
)

// Money leaves the API as a string with exactly two decimals.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type adjustmentDTO struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

func (a adjustmentDTO) toDomain() domain.Adjustment {
	return domain.Adjustment{Label: a.Label, Amount: a.Amount}
}

type adjustmentResponse struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

func toAdjustmentResponses(in []domain.Adjustment) []adjustmentResponse {
	out := make([]adjustmentResponse, 0, len(in))
	for _, adj := range in {
		out = append(out, adjustmentResponse{Label: adj.Label, Amount: money(adj.Amount)})
	}
	return out
}

func toDomainAdjustments(in []adjustmentDTO) []domain.Adjustment {
	out := make([]domain.Adjustment, 0, len(in))
	for _, adj := range in {
		out = append(out, adj.toDomain())
	}
	return out
}

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type jobCreateRequest struct {
	CustomerID      string     `json:"customer_id"`
	PropertyAddress string     `json:"property_address"`
	ScheduledDate   *time.Time `json:"scheduled_date"`
	Notes           string     `json:"notes"`
}

type jobUpdateRequest struct {
	Status                *string          `json:"status"`
	PropertyAddress       *string          `json:"property_address"`
	ScheduledDate         *time.Time       `json:"scheduled_date"`
	CompletedDate         *time.Time       `json:"completed_date"`
	Notes                 *string          `json:"notes"`
	HumanAdjustedEstimate *decimal.Decimal `json:"human_adjusted_estimate"`
	Adjustments           *[]adjustmentDTO `json:"adjustments"`
}

func (req jobUpdateRequest) toPatch() (domain.JobPatch, error) {
	patch := domain.JobPatch{
		PropertyAddress:       req.PropertyAddress,
		ScheduledDate:         req.ScheduledDate,
		CompletedDate:         req.CompletedDate,
		Notes:                 req.Notes,
		HumanAdjustedEstimate: req.HumanAdjustedEstimate,
	}
	if req.Status != nil {
		status, err := domain.ParseJobStatus(*req.Status)
		if err != nil {
			return domain.JobPatch{}, err
		}
		patch.Status = &status
	}
	if req.Adjustments != nil {
		adjustments := toDomainAdjustments(*req.Adjustments)
		patch.Adjustments = &adjustments
	}
	return patch, nil
}

type overrideRequest struct {
	SizeClass     string  `json:"size_class"`
	WorkloadClass string  `json:"workload_class"`
	Reason        *string `json:"reason"`
	ClearSize     bool    `json:"clear_size"`
	ClearWorkload bool    `json:"clear_workload"`
}

// toPatch parses class names at the boundary; unknown values are rejected
// here and never reach the engine.
func (req overrideRequest) toPatch() (domain.RoomOverridePatch, error) {
	patch := domain.RoomOverridePatch{
		Reason:        req.Reason,
		ClearSize:     req.ClearSize,
		ClearWorkload: req.ClearWorkload,
	}
	if req.SizeClass != "" {
		size, err := domain.ParseSizeClass(req.SizeClass)
		if err != nil {
			return domain.RoomOverridePatch{}, err
		}
		patch.Size = size
	}
	if req.WorkloadClass != "" {
		workload, err := domain.ParseWorkloadClass(req.WorkloadClass)
		if err != nil {
			return domain.RoomOverridePatch{}, err
		}
		patch.Workload = workload
	}
	return patch, nil
}

type adjustmentsRequest struct {
	Adjustments []adjustmentDTO `json:"adjustments"`
}

type jobResponse struct {
	ID                    string               `json:"id"`
	JobNumber             string               `json:"job_number"`
	CustomerID            string               `json:"customer_id"`
	Status                string               `json:"status"`
	PropertyAddress       string               `json:"property_address"`
	ScheduledDate         *time.Time           `json:"scheduled_date,omitempty"`
	CompletedDate         *time.Time           `json:"completed_date,omitempty"`
	Notes                 string               `json:"notes,omitempty"`
	AIEstimate            string               `json:"ai_estimate"`
	FinalPrice            string               `json:"final_price"`
	HumanAdjustedEstimate string               `json:"human_adjusted_estimate"`
	QuotedPrice           string               `json:"quoted_price"`
	Adjustments           []adjustmentResponse `json:"adjustments"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

type jobDetailResponse struct {
	jobResponse
	Rooms    []roomResponse   `json:"rooms"`
	Customer *domain.Customer `json:"customer,omitempty"`
}

func toJobResponse(job *domain.Job) jobResponse {
	return jobResponse{
		ID:                    job.ID,
		JobNumber:             job.JobNumber,
		CustomerID:            job.CustomerID,
		Status:                string(job.Status),
		PropertyAddress:       job.PropertyAddress,
		ScheduledDate:         job.ScheduledDate,
		CompletedDate:         job.CompletedDate,
		Notes:                 job.Notes,
		AIEstimate:            money(job.AIEstimate),
		FinalPrice:            money(job.FinalPrice),
		HumanAdjustedEstimate: money(job.HumanAdjustedEstimate),
		QuotedPrice:           money(job.QuotedPrice()),
		Adjustments:           toAdjustmentResponses(job.Adjustments),
		CreatedAt:             job.CreatedAt,
		UpdatedAt:             job.UpdatedAt,
	}
}

func toJobDetailResponse(job *domain.Job, customer *domain.Customer) jobDetailResponse {
	rooms := make([]roomResponse, 0, len(job.Rooms))
	for i := range job.Rooms {
		rooms = append(rooms, toRoomResponse(&job.Rooms[i]))
	}
	return jobDetailResponse{
		jobResponse: toJobResponse(job),
		Rooms:       rooms,
		Customer:    customer,
	}
}

type roomResponse struct {
	ID               string                     `json:"id"`
	JobID            string                     `json:"job_id"`
	Name             string                     `json:"name"`
	Position         int                        `json:"position"`
	ImageContentType string                     `json:"image_content_type,omitempty"`
	Automated        domain.Classification      `json:"automated"`
	Override         domain.Override            `json:"override"`
	Final            domain.FinalClassification `json:"final"`
	EstimatedCost    string                     `json:"estimated_cost"`
	Adjustments      []adjustmentResponse       `json:"adjustments"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

func toRoomResponse(room *domain.Room) roomResponse {
	return roomResponse{
		ID:               room.ID,
		JobID:            room.JobID,
		Name:             room.Name,
		Position:         room.Position,
		ImageContentType: room.ImageContentType,
		Automated:        room.Automated,
		Override:         room.Override,
		Final:            room.Final,
		EstimatedCost:    money(room.EstimatedCost),
		Adjustments:      toAdjustmentResponses(room.Adjustments),
		CreatedAt:        room.CreatedAt,
		UpdatedAt:        room.UpdatedAt,
	}
}

type roomEstimateResponse struct {
	RoomID        string                     `json:"room_id"`
	Name          string                     `json:"name"`
	Position      int                        `json:"position"`
	Final         domain.FinalClassification `json:"final"`
	Automated     domain.Classification      `json:"automated"`
	Override      domain.Override            `json:"override"`
	Adjustments   []adjustmentResponse       `json:"adjustments"`
	Cost          string                     `json:"cost"`
	AutomatedCost string                     `json:"ai_cost"`
}

type estimateResponse struct {
	JobID                 string                 `json:"job_id"`
	TableVersion          string                 `json:"table_version"`
	Rooms                 []roomEstimateResponse `json:"rooms"`
	RoomTotal             string                 `json:"room_total"`
	Adjustments           []adjustmentResponse   `json:"adjustments"`
	AdjustmentTotal       string                 `json:"adjustment_total"`
	AIEstimate            string                 `json:"ai_estimate"`
	FinalPrice            string                 `json:"final_price"`
	HumanAdjustedEstimate string                 `json:"human_adjusted_estimate"`
	QuotedPrice           string                 `json:"quoted_price"`
}

func toEstimateResponse(est *pricing.Estimate) estimateResponse {
	rooms := make([]roomEstimateResponse, 0, len(est.Rooms))
	for _, room := range est.Rooms {
		rooms = append(rooms, roomEstimateResponse{
			RoomID:        room.RoomID,
			Name:          room.Name,
			Position:      room.Position,
			Final:         room.Final,
			Automated:     room.Automated,
			Override:      room.Override,
			Adjustments:   toAdjustmentResponses(room.Adjustments),
			Cost:          money(room.Cost),
			AutomatedCost: money(room.AutomatedCost),
		})
	}
	return estimateResponse{
		JobID:                 est.JobID,
		TableVersion:          est.TableVersion,
		Rooms:                 rooms,
		RoomTotal:             money(est.RoomTotal),
		Adjustments:           toAdjustmentResponses(est.Adjustments),
		AdjustmentTotal:       money(est.AdjustmentTotal),
		AIEstimate:            money(est.AIEstimate),
		FinalPrice:            money(est.FinalPrice),
		HumanAdjustedEstimate: money(est.HumanAdjustedEstimate),
		QuotedPrice:           money(est.QuotedPrice),
	}
}

type lineItemResponse struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

// invoiceResponse is customer facing and carries no classification data.
type invoiceResponse struct {
	ID            string             `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	JobID         string             `json:"job_id"`
	CustomerID    string             `json:"customer_id"`
	LineItems     []lineItemResponse `json:"line_items"`
	Subtotal      string             `json:"subtotal"`
	TaxRate       string             `json:"tax_rate"`
	TaxAmount     string             `json:"tax_amount"`
	Total         string             `json:"total"`
	Status        string             `json:"status"`
	IssuedAt      time.Time          `json:"issued_at"`
	DueAt         time.Time          `json:"due_at"`
	CreatedAt     time.Time          `json:"created_at"`
}

func toInvoiceResponse(inv *domain.Invoice) invoiceResponse {
	items := make([]lineItemResponse, 0, len(inv.LineItems))
	for _, item := range inv.LineItems {
		items = append(items, lineItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   money(item.UnitPrice),
			Total:       money(item.Total),
		})
	}
	return invoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		JobID:         inv.JobID,
		CustomerID:    inv.CustomerID,
		LineItems:     items,
		Subtotal:      money(inv.Subtotal),
		TaxRate:       inv.TaxRate.String(),
		TaxAmount:     money(inv.TaxAmount),
		Total:         money(inv.Total),
		Status:        string(inv.Status),
		IssuedAt:      inv.IssuedAt,
		DueAt:         inv.DueAt,
		CreatedAt:     inv.CreatedAt,
	}
}

type pricingTableResponse struct {
	Version  string            `json:"version"`
	BaseRate string            `json:"base_rate"`
	Size     map[string]string `json:"size_multipliers"`
	Workload map[string]string `json:"workload_multipliers"`
}

func toPricingTableResponse(table *pricing.MultiplierTable) pricingTableResponse {
	spec := table.Spec()
	out := pricingTableResponse{
		Version:  spec.Version,
		BaseRate: money(spec.BaseRate),
		Size:     make(map[string]string, len(spec.Size)),
		Workload: make(map[string]string, len(spec.Workload)),
	}
	for class, m := range spec.Size {
		out.Size[string(class)] = m.String()
	}
	for class, m := range spec.Workload {
		out.Workload[string(class)] = m.String()
	}
	return out
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}
