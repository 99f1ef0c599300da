package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"societysync/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	name string
	err  error
	got  []*Message
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(_ context.Context, msg *Message) error {
	f.got = append(f.got, msg)
	return f.err
}

type fakePublisher struct {
	topic   string
	payload []byte
}

func (p *fakePublisher) Publish(topic string, _ bool, payload []byte) error {
	p.topic = topic
	p.payload = payload
	return nil
}

func visitorMessage() *Message {
	flat := "A101"
	return FromNotification(&domain.Notification{
		NotificationID: 7,
		Title:          "New Visitor",
		Message:        "Visitor Courier arrived at Flat A101",
		Type:           domain.NotificationVisitor,
		Priority:       domain.NotificationNormal,
		TargetFlat:     &flat,
	}, []Recipient{
		{Name: "Ravi Kumar", Email: "ravi@example.com", Phone: "9876543210"},
		{Name: "No Contact"},
	})
}

func TestDispatcher_FailureDoesNotStopOthers(t *testing.T) {
	broken := &fakeNotifier{name: "broken", err: errors.New("unreachable")}
	ok := &fakeNotifier{name: "ok"}
	d := NewDispatcher(zap.NewNop(), broken, ok)

	n := d.Dispatch(context.Background(), visitorMessage())
	assert.Equal(t, 1, n)
	assert.Len(t, broken.got, 1)
	assert.Len(t, ok.got, 1)
	assert.Equal(t, []string{"broken", "ok"}, d.Channels())
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	assert.Equal(t, 0, d.Dispatch(context.Background(), visitorMessage()))
}

func TestForTypes(t *testing.T) {
	inner := &fakeNotifier{name: "sms"}
	n := ForTypes(inner, domain.NotificationVisitor)

	require.NoError(t, n.Notify(context.Background(), visitorMessage()))
	require.NoError(t, n.Notify(context.Background(), &Message{Type: domain.NotificationBilling}))
	assert.Len(t, inner.got, 1)
	assert.Equal(t, "sms", n.Name())
}

func TestMQTTNotifier_Topics(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMQTTNotifier(pub, "society")

	require.NoError(t, m.Notify(context.Background(), visitorMessage()))
	assert.Equal(t, "society/flats/A101", pub.topic)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.payload, &decoded))
	assert.Equal(t, "visitor", decoded["type"])
	assert.NotContains(t, decoded, "Recipients")

	require.NoError(t, m.Notify(context.Background(), &Message{Title: "AGM", Type: domain.NotificationGeneral}))
	assert.Equal(t, "society/broadcast", pub.topic)
}

func TestStreamNotifier(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewStreamNotifier(client, "society:notifications", 100)
	require.NoError(t, s.Notify(context.Background(), visitorMessage()))

	entries, err := client.XRange(context.Background(), "society:notifications", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Values["data"], `"target_flat":"A101"`)
}

func TestSMSNotifier_SkipsRecipientsWithoutPhone(t *testing.T) {
	var sent []*twilioApi.CreateMessageParams
	s := &SMSNotifier{
		send: func(p *twilioApi.CreateMessageParams) error {
			sent = append(sent, p)
			return nil
		},
		fromPhone:   "+15550001111",
		countryCode: "+91",
	}

	require.NoError(t, s.Notify(context.Background(), visitorMessage()))
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].To)
	assert.Equal(t, "+919876543210", *sent[0].To)
	assert.Contains(t, *sent[0].Body, "Courier")
}

func TestEmailNotifier_JoinsErrors(t *testing.T) {
	var subjects []string
	e := &EmailNotifier{
		send: func(m *mail.SGMailV3) error {
			subjects = append(subjects, m.Subject)
			return errors.New("quota exceeded")
		},
		fromName:  "SocietySync",
		fromEmail: "no-reply@societysync.com",
	}

	err := e.Notify(context.Background(), visitorMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ravi@example.com")
	assert.Equal(t, []string{"New Visitor"}, subjects)
}

func TestWebhookNotifier_SignsAndRetries(t *testing.T) {
	var calls int32
	var body []byte
	var signature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body, _ = io.ReadAll(r.Body)
		signature = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(srv.URL, "s3cret", 2*time.Second, 2)
	w.backoff = time.Millisecond
	require.NoError(t, w.Notify(context.Background(), visitorMessage()))

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, Sign("s3cret", body), signature)
}

func TestWebhookNotifier_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(srv.URL, "", time.Second, 2)
	err := w.Notify(context.Background(), visitorMessage())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
