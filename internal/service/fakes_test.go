package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"societysync/internal/domain"
	"societysync/internal/notify"
	"societysync/internal/repository"

	"go.uber.org/zap"
)

// 内存版 Repository，未实现的方法调用时 panic（嵌入接口）

type fakeBillsRepo struct {
	repository.BillsRepository
	bills  map[int64]*domain.Bill
	nextID int64
}

func newFakeBillsRepo(bills ...*domain.Bill) *fakeBillsRepo {
	r := &fakeBillsRepo{bills: make(map[int64]*domain.Bill)}
	for _, b := range bills {
		r.nextID++
		if b.BillID == 0 {
			b.BillID = r.nextID
		}
		if b.PaymentStatus == "" {
			b.PaymentStatus = domain.BillPending
		}
		r.bills[b.BillID] = b
	}
	return r
}

func (r *fakeBillsRepo) CreateBill(_ context.Context, bill *domain.Bill) (int64, error) {
	r.nextID++
	cp := *bill
	cp.BillID = r.nextID
	cp.PaymentStatus = domain.BillPending
	r.bills[cp.BillID] = &cp
	return cp.BillID, nil
}

func (r *fakeBillsRepo) GenerateBulk(ctx context.Context, template *domain.Bill, _ domain.BulkTarget) (int, error) {
	for _, flat := range []string{"A101", "A102"} {
		b := *template
		b.FlatNumber = flat
		if _, err := r.CreateBill(ctx, &b); err != nil {
			return 0, err
		}
	}
	return 2, nil
}

func (r *fakeBillsRepo) GetBill(_ context.Context, billID int64) (*domain.Bill, error) {
	b, ok := r.bills[billID]
	if !ok {
		return nil, domain.NewNotFoundError("bill", billID)
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBillsRepo) ListBills(_ context.Context, filters repository.BillFilters) ([]*domain.Bill, error) {
	var out []*domain.Bill
	for _, b := range r.bills {
		if filters.FlatNumber != "" && b.FlatNumber != filters.FlatNumber {
			continue
		}
		if filters.Status != "" && b.PaymentStatus != filters.Status {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BillID < out[j].BillID })
	return out, nil
}

func (r *fakeBillsRepo) MarkOverdue(_ context.Context, today time.Time) (int64, error) {
	var n int64
	for _, b := range r.bills {
		if b.PaymentStatus == domain.BillPending && b.DueDate.Before(today) {
			b.PaymentStatus = domain.BillOverdue
			n++
		}
	}
	return n, nil
}

func (r *fakeBillsRepo) MarkPaid(_ context.Context, billID int64, method string, paidOn time.Time) error {
	b, ok := r.bills[billID]
	if !ok {
		return domain.NewNotFoundError("bill", billID)
	}
	b.PaymentStatus = domain.BillPaid
	b.PaymentMethod = &method
	b.PaymentDate = &paidOn
	return nil
}

func (r *fakeBillsRepo) StatusTotals(_ context.Context, flat string) (map[domain.BillStatus]domain.StatusTotal, error) {
	out := make(map[domain.BillStatus]domain.StatusTotal)
	for _, b := range r.bills {
		if flat != "" && b.FlatNumber != flat {
			continue
		}
		t := out[b.PaymentStatus]
		t.Count++
		t.Amount = t.Amount.Add(b.Amount)
		out[b.PaymentStatus] = t
	}
	return out, nil
}

type fakePollsRepo struct {
	repository.PollsRepository
	polls   map[int64]*domain.Poll
	options map[int64][]domain.PollOption
	votes   map[[2]int64]int64 // (poll, user) → option
}

func newFakePollsRepo() *fakePollsRepo {
	return &fakePollsRepo{
		polls:   make(map[int64]*domain.Poll),
		options: make(map[int64][]domain.PollOption),
		votes:   make(map[[2]int64]int64),
	}
}

func (r *fakePollsRepo) add(p *domain.Poll, options ...domain.PollOption) {
	r.polls[p.PollID] = p
	r.options[p.PollID] = options
}

func (r *fakePollsRepo) CreatePoll(_ context.Context, p *domain.Poll, options []string) (int64, error) {
	id := int64(len(r.polls) + 1)
	cp := *p
	cp.PollID = id
	r.polls[id] = &cp
	for i, o := range options {
		r.options[id] = append(r.options[id], domain.PollOption{OptionID: id*100 + int64(i), PollID: id, OptionText: o})
	}
	return id, nil
}

func (r *fakePollsRepo) GetPoll(_ context.Context, pollID int64) (*domain.Poll, error) {
	p, ok := r.polls[pollID]
	if !ok {
		return nil, domain.NewNotFoundError("poll", pollID)
	}
	cp := *p
	return &cp, nil
}

func (r *fakePollsRepo) ListPolls(_ context.Context, activeOnly bool) ([]*domain.Poll, error) {
	var out []*domain.Poll
	for _, p := range r.polls {
		if activeOnly && !p.IsActive {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakePollsRepo) ListOptions(_ context.Context, pollID int64) ([]domain.PollOption, error) {
	return append([]domain.PollOption(nil), r.options[pollID]...), nil
}

func (r *fakePollsRepo) SetActive(_ context.Context, pollID int64, active bool) error {
	p, ok := r.polls[pollID]
	if !ok {
		return domain.NewNotFoundError("poll", pollID)
	}
	p.IsActive = active
	return nil
}

func (r *fakePollsRepo) CastVote(_ context.Context, pollID, optionID, userID int64) error {
	key := [2]int64{pollID, userID}
	if _, dup := r.votes[key]; dup {
		return domain.ErrDuplicateVote
	}
	opts := r.options[pollID]
	for i := range opts {
		if opts[i].OptionID == optionID {
			opts[i].VoteCount++
			r.votes[key] = optionID
			return nil
		}
	}
	return domain.NewNotFoundError("poll option", optionID)
}

func (r *fakePollsRepo) VotedOption(_ context.Context, pollID, userID int64) (*int64, error) {
	opt, ok := r.votes[[2]int64{pollID, userID}]
	if !ok {
		return nil, nil
	}
	return &opt, nil
}

type fakeUsersRepo struct {
	repository.UsersRepository
	users   map[int64]*domain.User
	owners  map[int64]*domain.Owner // owner_id → owner
	tenants map[int64]*domain.Tenant
	nextID  int64

	residentRowCalls int
	deleted          []int64
}

func newFakeUsersRepo(users ...*domain.User) *fakeUsersRepo {
	r := &fakeUsersRepo{
		users:   make(map[int64]*domain.User),
		owners:  make(map[int64]*domain.Owner),
		tenants: make(map[int64]*domain.Tenant),
	}
	for _, u := range users {
		r.nextID++
		if u.UserID == 0 {
			u.UserID = r.nextID
		}
		r.users[u.UserID] = u
		if u.Role == domain.RoleOwner {
			oid := int64(len(r.owners) + 1)
			r.owners[oid] = &domain.Owner{OwnerID: oid, UserID: u.UserID, FlatNumber: u.Flat()}
		}
		if u.Role == domain.RoleTenant {
			r.tenants[u.UserID] = &domain.Tenant{UserID: u.UserID, FlatNumber: u.Flat()}
		}
	}
	return r
}

func (r *fakeUsersRepo) GetUser(_ context.Context, userID int64) (*domain.User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.NewNotFoundError("user", userID)
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUsersRepo) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError("user", username)
}

func (r *fakeUsersRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUsersRepo) CreateUser(_ context.Context, user *domain.User, _ domain.RoleFields) (int64, error) {
	r.nextID++
	cp := *user
	cp.UserID = r.nextID
	r.users[cp.UserID] = &cp
	return cp.UserID, nil
}

func (r *fakeUsersRepo) DeleteUser(_ context.Context, userID int64) error {
	if _, ok := r.users[userID]; !ok {
		return domain.NewNotFoundError("user", userID)
	}
	delete(r.users, userID)
	r.deleted = append(r.deleted, userID)
	return nil
}

func (r *fakeUsersRepo) EnsureAdmin(ctx context.Context, user *domain.User) (bool, error) {
	if exists, _ := r.UsernameExists(ctx, user.Username); exists {
		return false, nil
	}
	_, err := r.CreateUser(ctx, user, nil)
	return err == nil, err
}

func (r *fakeUsersRepo) UpdateLastLogin(_ context.Context, userID int64) error {
	now := time.Now()
	r.users[userID].LastLogin = &now
	return nil
}

func (r *fakeUsersRepo) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	u := r.users[userID]
	u.PasswordHash = passwordHash
	u.PasswordChanged = true
	u.InitialPassword = nil
	return nil
}

func (r *fakeUsersRepo) GetOwner(_ context.Context, ownerID int64) (*domain.Owner, error) {
	o, ok := r.owners[ownerID]
	if !ok {
		return nil, domain.NewNotFoundError("owner", ownerID)
	}
	return o, nil
}

func (r *fakeUsersRepo) GetOwnerByUserID(_ context.Context, userID int64) (*domain.Owner, error) {
	for _, o := range r.owners {
		if o.UserID == userID {
			return o, nil
		}
	}
	return nil, domain.NewNotFoundError("owner", userID)
}

func (r *fakeUsersRepo) GetTenantByUserID(_ context.Context, userID int64) (*domain.Tenant, error) {
	t, ok := r.tenants[userID]
	if !ok {
		return nil, domain.NewNotFoundError("tenant", userID)
	}
	return t, nil
}

func (r *fakeUsersRepo) flatHasRole(flat string, role domain.Role) bool {
	for _, u := range r.users {
		if u.Role == role && u.Flat() == flat {
			return true
		}
	}
	return false
}

func (r *fakeUsersRepo) FlatHasOwner(_ context.Context, flat string) (bool, error) {
	return r.flatHasRole(flat, domain.RoleOwner), nil
}

func (r *fakeUsersRepo) FlatHasTenant(_ context.Context, flat string) (bool, error) {
	return r.flatHasRole(flat, domain.RoleTenant), nil
}

func (r *fakeUsersRepo) ListResidentRows(_ context.Context) ([]domain.ResidentRow, error) {
	r.residentRowCalls++
	var rows []domain.ResidentRow
	for _, u := range r.users {
		if u.Role == domain.RoleAdmin || u.Flat() == "" {
			continue
		}
		rows = append(rows, domain.ResidentRow{UserID: u.UserID, Name: u.Name, Role: u.Role, FlatNumber: u.Flat()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return rows, nil
}

func (r *fakeUsersRepo) ListFlatContacts(_ context.Context, flat string) ([]repository.Contact, error) {
	var out []repository.Contact
	for _, u := range r.users {
		if u.Flat() == flat && u.Role != domain.RoleAdmin {
			out = append(out, repository.Contact{UserID: u.UserID, Name: u.Name, Email: u.Email, Phone: u.Phone})
		}
	}
	return out, nil
}

type fakeNotificationsRepo struct {
	repository.NotificationsRepository
	created []*domain.Notification
}

func (r *fakeNotificationsRepo) CreateNotification(_ context.Context, n *domain.Notification) (int64, error) {
	n.NotificationID = int64(len(r.created) + 1)
	n.CreatedAt = time.Now()
	r.created = append(r.created, n)
	return n.NotificationID, nil
}

func (r *fakeNotificationsRepo) GetNotification(_ context.Context, id int64) (*domain.Notification, error) {
	for _, n := range r.created {
		if n.NotificationID == id {
			return n, nil
		}
	}
	return nil, domain.NewNotFoundError("notification", id)
}

type fakeVisitorsRepo struct {
	repository.VisitorsRepository
	visitors map[int64]*domain.Visitor
	photos   map[int64]*domain.VisitorPhoto
	notified []*domain.Notification
}

func newFakeVisitorsRepo() *fakeVisitorsRepo {
	return &fakeVisitorsRepo{
		visitors: make(map[int64]*domain.Visitor),
		photos:   make(map[int64]*domain.VisitorPhoto),
	}
}

func (r *fakeVisitorsRepo) CreateVisitor(_ context.Context, v *domain.Visitor, photo *domain.VisitorPhoto, n *domain.Notification) (int64, int64, error) {
	id := int64(len(r.visitors) + 1)
	v.VisitorID = id
	v.Status = domain.VisitorIn
	v.EntryTime = time.Now()
	v.HasPhoto = photo != nil
	r.visitors[id] = v
	if photo != nil {
		r.photos[id] = photo
	}
	r.notified = append(r.notified, n)
	n.NotificationID = int64(len(r.notified))
	return id, n.NotificationID, nil
}

func (r *fakeVisitorsRepo) GetVisitor(_ context.Context, visitorID int64) (*domain.Visitor, error) {
	v, ok := r.visitors[visitorID]
	if !ok {
		return nil, domain.NewNotFoundError("visitor", visitorID)
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVisitorsRepo) MarkExit(_ context.Context, visitorID int64) (bool, error) {
	v, ok := r.visitors[visitorID]
	if !ok || v.Status != domain.VisitorIn {
		return false, nil
	}
	now := time.Now()
	v.Status = domain.VisitorOut
	v.ExitTime = &now
	return true, nil
}

// recordingNotifier 记录外发消息
type recordingNotifier struct {
	messages []*notify.Message
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(_ context.Context, msg *notify.Message) error {
	n.messages = append(n.messages, msg)
	return nil
}

// 测试用固定时钟：2026-03-15 10:00 Asia/Kolkata
func fixedClock() Clock {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, loc)
	return Clock{Now: func() time.Time { return now }, Location: loc}
}

func strPtr(s string) *string { return &s }

func resident(userID int64, role domain.Role, name, flat string) *domain.User {
	return &domain.User{
		UserID:          userID,
		Username:        string(role)[:1] + strings.ToLower(strings.ReplaceAll(name, " ", "")),
		Role:            role,
		FlatNumber:      strPtr(flat),
		Name:            name,
		Email:           strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Phone:           "9876543210",
		PasswordChanged: true,
	}
}

var (
	adminActor = domain.Principal{UserID: 1, Username: "admin", Role: domain.RoleAdmin, Name: "Administrator", PasswordChanged: true}
	ownerActor = domain.Principal{UserID: 2, Username: "oravikumar", Role: domain.RoleOwner, FlatNumber: "A101", Name: "Ravi Kumar", PasswordChanged: true}
)

func testLogger() *zap.Logger { return zap.NewNop() }
