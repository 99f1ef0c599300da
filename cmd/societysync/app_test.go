package main

import (
	"context"
	"testing"

	"societysync/internal/domain"
	"societysync/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingChannel struct {
	name  string
	types []domain.NotificationType
}

func (r *recordingChannel) Name() string { return r.name }

func (r *recordingChannel) Notify(_ context.Context, msg *notify.Message) error {
	r.types = append(r.types, msg.Type)
	return nil
}

func TestNewDispatcher_RoutesByType(t *testing.T) {
	sms := &recordingChannel{name: "twilio_sms"}
	email := &recordingChannel{name: "sendgrid_email"}
	stream := &recordingChannel{name: "redis_stream"}

	d := newDispatcher(zap.NewNop(), channelSet{stream: stream, sms: sms, email: email})
	require.NotNil(t, d)
	assert.Equal(t, []string{"redis_stream", "twilio_sms", "sendgrid_email"}, d.Channels())

	ctx := context.Background()
	for _, typ := range []domain.NotificationType{
		domain.NotificationGeneral,
		domain.NotificationVisitor,
		domain.NotificationBilling,
		domain.NotificationEmergency,
	} {
		d.Dispatch(ctx, &notify.Message{Title: "t", Body: "b", Type: typ, TargetFlat: "A101"})
	}

	assert.Equal(t, []domain.NotificationType{domain.NotificationVisitor}, sms.types)
	assert.Equal(t, []domain.NotificationType{domain.NotificationBilling}, email.types)
	assert.Len(t, stream.types, 4)
}

func TestNewDispatcher_NoChannels(t *testing.T) {
	assert.Nil(t, newDispatcher(zap.NewNop(), channelSet{}))
}
