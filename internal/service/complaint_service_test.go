package service

import (
	"context"
	"testing"

	"societysync/internal/domain"
	"societysync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComplaintsRepo struct {
	repository.ComplaintsRepository
	complaints map[int64]*domain.Complaint
}

func (r *fakeComplaintsRepo) CreateComplaint(_ context.Context, c *domain.Complaint) (int64, error) {
	id := int64(len(r.complaints) + 1)
	cp := *c
	cp.ComplaintID = id
	r.complaints[id] = &cp
	return id, nil
}

func (r *fakeComplaintsRepo) GetComplaint(_ context.Context, id int64) (*domain.Complaint, error) {
	c, ok := r.complaints[id]
	if !ok {
		return nil, domain.NewNotFoundError("complaint", id)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeComplaintsRepo) UpdateStatus(_ context.Context, id int64, status domain.ComplaintStatus) error {
	c, ok := r.complaints[id]
	if !ok {
		return domain.NewNotFoundError("complaint", id)
	}
	c.Status = status
	return nil
}

func (r *fakeComplaintsRepo) ListComplaints(_ context.Context, filters repository.ComplaintFilters) ([]*domain.Complaint, error) {
	var out []*domain.Complaint
	for _, c := range r.complaints {
		if filters.UserID != 0 && c.UserID != filters.UserID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func TestCreateComplaint(t *testing.T) {
	repo := &fakeComplaintsRepo{complaints: make(map[int64]*domain.Complaint)}
	svc := NewComplaintService(repo, testLogger())
	ctx := context.Background()

	c, err := svc.CreateComplaint(ctx, ownerActor, CreateComplaintRequest{
		Title:       " Leaking tap ",
		Description: "Kitchen tap drips all night",
		Category:    "Plumbing",
	})
	require.NoError(t, err)
	assert.Equal(t, "A101", c.FlatNumber)
	assert.Equal(t, ownerActor.UserID, c.UserID)
	assert.Equal(t, "plumbing", c.Category)
	assert.Equal(t, domain.PriorityMedium, c.Priority)
	assert.Equal(t, domain.ComplaintOpen, c.Status)
	assert.Equal(t, "Leaking tap", c.Title)

	var ve *domain.ValidationError
	_, err = svc.CreateComplaint(ctx, ownerActor, CreateComplaintRequest{Title: "x", Description: "y", Category: "gardening"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "category", ve.Field)

	_, err = svc.CreateComplaint(ctx, ownerActor, CreateComplaintRequest{Title: "x", Description: "y", Category: "noise", Priority: "critical"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "priority", ve.Field)

	_, err = svc.CreateComplaint(ctx, adminActor, CreateComplaintRequest{Title: "x", Description: "y", Category: "noise"})
	var ae *domain.AuthError
	assert.ErrorAs(t, err, &ae)

	mine, err := svc.ListMine(ctx, ownerActor)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestUpdateComplaintStatus(t *testing.T) {
	repo := &fakeComplaintsRepo{complaints: map[int64]*domain.Complaint{
		6: {ComplaintID: 6, UserID: 2, FlatNumber: "A101", Status: domain.ComplaintOpen},
	}}
	svc := NewComplaintService(repo, testLogger())
	ctx := context.Background()

	// 任意状态间可转换
	for _, s := range []domain.ComplaintStatus{domain.ComplaintResolved, domain.ComplaintOpen, domain.ComplaintClosed, domain.ComplaintInProgress} {
		c, err := svc.UpdateStatus(ctx, adminActor, 6, s)
		require.NoError(t, err)
		assert.Equal(t, s, c.Status)
	}

	_, err := svc.UpdateStatus(ctx, adminActor, 6, "reopened")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = svc.UpdateStatus(ctx, adminActor, 60, domain.ComplaintClosed)
	assert.True(t, domain.IsNotFound(err))

	_, err = svc.UpdateStatus(ctx, ownerActor, 6, domain.ComplaintClosed)
	var ae *domain.AuthError
	assert.ErrorAs(t, err, &ae)

	other := domain.Principal{UserID: 3, Role: domain.RoleTenant, FlatNumber: "B202"}
	_, err = svc.GetComplaint(ctx, other, 6)
	assert.ErrorAs(t, err, &ae)
}
