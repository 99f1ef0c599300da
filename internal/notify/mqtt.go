package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher MQTT 发布接口（common/mqtt.Client 实现）
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// MQTTNotifier 按房号发布：{prefix}/flats/{flat}，广播发往 {prefix}/broadcast
type MQTTNotifier struct {
	pub    Publisher
	prefix string
}

func NewMQTTNotifier(pub Publisher, topicPrefix string) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, prefix: topicPrefix}
}

func (m *MQTTNotifier) Name() string { return "mqtt" }

// Topic 消息对应的主题
func (m *MQTTNotifier) Topic(msg *Message) string {
	if msg.TargetFlat == "" {
		return m.prefix + "/broadcast"
	}
	return fmt.Sprintf("%s/flats/%s", m.prefix, msg.TargetFlat)
}

func (m *MQTTNotifier) Notify(_ context.Context, msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return m.pub.Publish(m.Topic(msg), false, payload)
}
