package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（Go 1.22 方法 + 路径参数模式）
type Router struct {
	mux    *http.ServeMux
	authn  *Authenticator
	logger *zap.Logger
}

func NewRouter(authn *Authenticator, logger *zap.Logger) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		authn:  authn,
		logger: logger,
	}
	r.Handle("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
	return r
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func chain(h http.HandlerFunc, mws ...Middleware) http.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// initial 已登录即可（含初始密码状态）
func (r *Router) initial(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, chain(h, r.authn.RequireAuth))
}

// user 已登录且已修改初始密码
func (r *Router) user(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, chain(h, r.authn.RequireAuth, RequirePasswordChanged))
}

// admin 管理员且已修改初始密码
func (r *Router) admin(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, chain(h, r.authn.RequireAuth, RequirePasswordChanged, RequireAdmin))
}

// RegisterAuthRoutes 登录、修改密码、个人资料
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.Handle("POST /auth/api/v1/login", h.Login)
	r.initial("POST /auth/api/v1/change-password", h.ChangePassword)
	r.initial("GET /api/v1/me", h.Me)
}

// RegisterUserRoutes 管理员：住户账号与房屋占用
func (r *Router) RegisterUserRoutes(h *UserHandler) {
	r.admin("GET /admin/api/v1/users", h.ListUsers)
	r.admin("POST /admin/api/v1/users", h.CreateUser)
	r.admin("GET /admin/api/v1/users/{id}", h.GetUser)
	r.admin("DELETE /admin/api/v1/users/{id}", h.DeleteUser)
	r.admin("GET /admin/api/v1/owners", h.ListOwners)
	r.admin("GET /admin/api/v1/flats/occupancy", h.Occupancy)
	r.admin("GET /admin/api/v1/flats/available", h.AvailableFlats)
}

// RegisterBillRoutes 账单
func (r *Router) RegisterBillRoutes(h *BillHandler) {
	r.user("GET /api/v1/bills", h.ListBills)
	r.user("POST /api/v1/bills/{id}/pay", h.Pay)

	r.admin("GET /admin/api/v1/bills", h.ListBills)
	r.admin("POST /admin/api/v1/bills", h.CreateBill)
	r.admin("POST /admin/api/v1/bills/bulk", h.BulkGenerate)
	r.admin("GET /admin/api/v1/bills/stats", h.Stats)
	r.admin("GET /admin/api/v1/bills/export", h.Export)
	r.admin("POST /admin/api/v1/bills/sweep", h.Sweep)
	r.admin("GET /admin/api/v1/flats/{flat}/bills", h.ListFlatBills)
	r.admin("GET /admin/api/v1/bills/{id}", h.GetBill)
	r.admin("PUT /admin/api/v1/bills/{id}", h.UpdateBill)
	r.admin("DELETE /admin/api/v1/bills/{id}", h.DeleteBill)
	r.admin("POST /admin/api/v1/bills/{id}/pay", h.Pay)
}

// RegisterComplaintRoutes 投诉
func (r *Router) RegisterComplaintRoutes(h *ComplaintHandler) {
	r.user("GET /api/v1/complaints", h.ListMine)
	r.user("POST /api/v1/complaints", h.Create)

	r.admin("GET /admin/api/v1/complaints", h.ListAll)
	r.admin("GET /admin/api/v1/complaints/stats", h.Stats)
	r.admin("GET /admin/api/v1/complaints/{id}", h.Get)
	r.admin("DELETE /admin/api/v1/complaints/{id}", h.Delete)
	r.admin("PUT /admin/api/v1/complaints/{id}/status", h.UpdateStatus)
	r.admin("PUT /admin/api/v1/complaints/{id}/response", h.Respond)
}

// RegisterVisitorRoutes 访客
func (r *Router) RegisterVisitorRoutes(h *VisitorHandler) {
	r.user("GET /api/v1/visitors", h.ListFlat)

	r.admin("GET /admin/api/v1/visitors", h.List)
	r.admin("POST /admin/api/v1/visitors", h.Log)
	r.admin("DELETE /admin/api/v1/visitors/{id}", h.Delete)
	r.admin("POST /admin/api/v1/visitors/{id}/exit", h.Exit)
	r.admin("GET /admin/api/v1/visitors/{id}/photo", h.Photo)
}

// RegisterNotificationRoutes 通知
func (r *Router) RegisterNotificationRoutes(h *NotificationHandler) {
	r.user("GET /api/v1/notifications", h.ListMine)
	r.user("POST /api/v1/notifications/read-all", h.MarkAllRead)
	r.user("POST /api/v1/notifications/{id}/read", h.MarkRead)

	r.admin("GET /admin/api/v1/notifications", h.History)
	r.admin("POST /admin/api/v1/notifications", h.Create)
	r.admin("PUT /admin/api/v1/notifications/{id}", h.Update)
	r.admin("DELETE /admin/api/v1/notifications/{id}", h.Delete)
}

// RegisterPollRoutes 投票
func (r *Router) RegisterPollRoutes(h *PollHandler) {
	r.user("GET /api/v1/polls", h.ListActive)
	r.user("GET /api/v1/polls/{id}/vote", h.MyVote)
	r.user("POST /api/v1/polls/{id}/vote", h.Vote)
	r.user("GET /api/v1/polls/{id}/results", h.Results)

	r.admin("GET /admin/api/v1/polls", h.ListAll)
	r.admin("POST /admin/api/v1/polls", h.Create)
	r.admin("DELETE /admin/api/v1/polls/{id}", h.Delete)
	r.admin("POST /admin/api/v1/polls/{id}/close", h.Close)
	r.admin("GET /admin/api/v1/polls/{id}/results", h.Results)
}

// RegisterDashboardRoutes 首页统计
func (r *Router) RegisterDashboardRoutes(h *DashboardHandler) {
	r.user("GET /api/v1/dashboard", h.Resident)
	r.admin("GET /admin/api/v1/dashboard", h.Society)
}
