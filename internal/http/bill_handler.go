package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"societysync/internal/domain"
	"societysync/internal/repository"
	"societysync/internal/service"

	"go.uber.org/zap"
)

// BillHandler 账单 Handler（管理员与住户共用，权限由服务层判断）
type BillHandler struct {
	billingService service.BillingService
	logger         *zap.Logger
}

// NewBillHandler 创建账单 Handler
func NewBillHandler(billingService service.BillingService, logger *zap.Logger) *BillHandler {
	return &BillHandler{billingService: billingService, logger: logger}
}

// payRequest 付款请求
type payRequest struct {
	PaymentMethod string `json:"payment_method"`
}

func billFilters(r *http.Request) repository.BillFilters {
	q := r.URL.Query()
	return repository.BillFilters{
		FlatNumber: q.Get("flat_number"),
		Status:     domain.BillStatus(q.Get("status")),
		BillType:   q.Get("bill_type"),
		Limit:      parseInt(q.Get("limit"), 0),
	}
}

// ListBills GET /api/v1/bills 与 /admin/api/v1/bills
func (h *BillHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	bills, err := h.billingService.ListBills(r.Context(), actor, billFilters(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": bills, "total": len(bills)}))
}

// ListFlatBills GET /admin/api/v1/flats/{flat}/bills
func (h *BillHandler) ListFlatBills(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	flat := domain.NormalizeFlat(r.PathValue("flat"))
	bills, err := h.billingService.ListFlatBills(r.Context(), actor, flat)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"flat_number": flat, "items": bills, "total": len(bills)}))
}

// CreateBill POST /admin/api/v1/bills
func (h *BillHandler) CreateBill(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	var req service.CreateBillRequest
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	bill, err := h.billingService.CreateBill(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(bill))
}

// BulkGenerate POST /admin/api/v1/bills/bulk
func (h *BillHandler) BulkGenerate(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	var req service.BulkBillRequest
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	resp, err := h.billingService.BulkGenerate(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

// Stats GET /admin/api/v1/bills/stats?flat_number=
func (h *BillHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	stats, err := h.billingService.Stats(r.Context(), actor, r.URL.Query().Get("flat_number"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

// Export GET /admin/api/v1/bills/export
func (h *BillHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	data, err := h.billingService.ExportBills(r.Context(), actor, billFilters(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	filename := fmt.Sprintf("bills_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Sweep POST /admin/api/v1/bills/sweep
func (h *BillHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.billingService.SweepOverdue(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"marked_overdue": n}))
}

// GetBill GET /admin/api/v1/bills/{id}
func (h *BillHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	bill, err := h.billingService.GetBill(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(bill))
}

// UpdateBill PUT /admin/api/v1/bills/{id}
func (h *BillHandler) UpdateBill(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req service.UpdateBillRequest
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	bill, err := h.billingService.UpdateBill(r.Context(), actor, id, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(bill))
}

// DeleteBill DELETE /admin/api/v1/bills/{id}
func (h *BillHandler) DeleteBill(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.billingService.DeleteBill(r.Context(), actor, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"bill_id": id, "deleted": true}))
}

// Pay POST /api/v1/bills/{id}/pay 与 /admin/api/v1/bills/{id}/pay
func (h *BillHandler) Pay(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req payRequest
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	bill, err := h.billingService.Pay(r.Context(), actor, id, req.PaymentMethod)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(bill))
}
