package notify

import (
	"context"

	commonredis "societysync/common/redis"
)

// StreamNotifier 写入 Redis Stream，供下游消费者订阅
type StreamNotifier struct {
	client *commonredis.Client
	stream string
	maxLen int64
}

func NewStreamNotifier(client *commonredis.Client, stream string, maxLen int64) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream, maxLen: maxLen}
}

func (s *StreamNotifier) Name() string { return "redis_stream" }

func (s *StreamNotifier) Notify(ctx context.Context, msg *Message) error {
	_, err := commonredis.PublishJSONToStream(ctx, s.client, s.stream, s.maxLen, msg)
	return err
}
