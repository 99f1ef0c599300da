package service

import (
	"context"
	"encoding/base64"
	"testing"

	"societysync/internal/domain"
	"societysync/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type visitorFixture struct {
	svc      VisitorService
	repo     *fakeVisitorsRepo
	outbound *recordingNotifier
}

func newVisitorFixture(maxBytes int) *visitorFixture {
	users := newFakeUsersRepo(resident(2, domain.RoleOwner, "Ravi Kumar", "A101"))
	outbound := &recordingNotifier{}
	ann := NewAnnouncer(&fakeNotificationsRepo{}, users, notify.NewDispatcher(testLogger(), outbound), testLogger())
	repo := newFakeVisitorsRepo()
	occupancy := NewOccupancyService(users, nil, 0, domain.DefaultFlatLayout, testLogger())
	return &visitorFixture{
		svc:      NewVisitorService(repo, occupancy, ann, maxBytes, fixedClock(), testLogger()),
		repo:     repo,
		outbound: outbound,
	}
}

func TestLogVisitor_WithPhotoNotifiesFlat(t *testing.T) {
	f := newVisitorFixture(1024)

	v, err := f.svc.LogVisitor(context.Background(), adminActor, LogVisitorRequest{
		FlatNumber:    "a101",
		VisitorName:   "Courier",
		VisitorPhone:  "98765 43210",
		VehicleNumber: "ka01ab1234",
		Photo:         "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VisitorIn, v.Status)
	assert.Equal(t, "KA01AB1234", v.VehicleNumber)
	assert.True(t, v.HasPhoto)
	assert.Equal(t, "image/png", f.repo.photos[v.VisitorID].ContentType)

	require.Len(t, f.repo.notified, 1)
	n := f.repo.notified[0]
	assert.Equal(t, "New Visitor", n.Title)
	assert.Equal(t, "Visitor Courier arrived at Flat A101", n.Message)
	require.NotNil(t, n.TargetFlat)
	assert.Equal(t, "A101", *n.TargetFlat)

	require.Len(t, f.outbound.messages, 1)
	assert.Equal(t, "A101", f.outbound.messages[0].TargetFlat)
}

func TestLogVisitor_Validation(t *testing.T) {
	f := newVisitorFixture(8)
	ctx := context.Background()

	cases := []struct {
		name  string
		req   LogVisitorRequest
		field string
	}{
		{"missing name", LogVisitorRequest{FlatNumber: "A101"}, "visitor_name"},
		{"bad phone", LogVisitorRequest{FlatNumber: "A101", VisitorName: "X", VisitorPhone: "123"}, "visitor_phone"},
		{"not base64", LogVisitorRequest{FlatNumber: "A101", VisitorName: "X", Photo: "***"}, "photo"},
		{"too large", LogVisitorRequest{FlatNumber: "A101", VisitorName: "X", Photo: base64.StdEncoding.EncodeToString(pngHeader)}, "photo"},
		{"not an image", LogVisitorRequest{FlatNumber: "A101", VisitorName: "X", Photo: base64.StdEncoding.EncodeToString([]byte("hello"))}, "photo"},
		{"unoccupied flat", LogVisitorRequest{FlatNumber: "B202", VisitorName: "X"}, "flat_number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.LogVisitor(ctx, adminActor, tc.req)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
	assert.Empty(t, f.repo.visitors)
	assert.Empty(t, f.outbound.messages)
}

func TestMarkExit(t *testing.T) {
	f := newVisitorFixture(0)
	ctx := context.Background()

	v, err := f.svc.LogVisitor(ctx, adminActor, LogVisitorRequest{FlatNumber: "A101", VisitorName: "Plumber"})
	require.NoError(t, err)

	out, err := f.svc.MarkExit(ctx, adminActor, v.VisitorID)
	require.NoError(t, err)
	assert.Equal(t, domain.VisitorOut, out.Status)
	assert.NotNil(t, out.ExitTime)

	_, err = f.svc.MarkExit(ctx, adminActor, v.VisitorID)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = f.svc.MarkExit(ctx, adminActor, 404)
	assert.True(t, domain.IsNotFound(err))

	_, err = f.svc.MarkExit(ctx, ownerActor, v.VisitorID)
	var ae *domain.AuthError
	assert.ErrorAs(t, err, &ae)
}
