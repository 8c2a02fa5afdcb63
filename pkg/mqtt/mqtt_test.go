package mqtt

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// doneToken is a token that completed immediately
type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakeBroker is an in-process client that delivers publishes to matching
// subscriptions synchronously
type fakeBroker struct {
	mu        sync.Mutex
	connected bool
	subs      map[string]mqtt.MessageHandler
	published []string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{connected: true, subs: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBroker) IsConnected() bool      { return b.connected }
func (b *fakeBroker) IsConnectionOpen() bool { return b.connected }
func (b *fakeBroker) Connect() mqtt.Token    { return doneToken{} }
func (b *fakeBroker) Disconnect(uint)        { b.connected = false }

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	b.mu.Lock()
	b.published = append(b.published, topic)
	var handlers []mqtt.MessageHandler
	for pattern, h := range b.subs {
		if TopicMatch(pattern, topic) {
			handlers = append(handlers, h)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(b, fakeMessage{topic: topic, payload: payload.([]byte)})
	}
	return doneToken{}
}

func (b *fakeBroker) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	b.subs[topic] = callback
	b.mu.Unlock()
	return doneToken{}
}

func (b *fakeBroker) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	for topic := range filters {
		b.Subscribe(topic, 0, callback)
	}
	return doneToken{}
}

func (b *fakeBroker) Unsubscribe(topics ...string) mqtt.Token {
	b.mu.Lock()
	for _, topic := range topics {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
	return doneToken{}
}

func (b *fakeBroker) AddRoute(topic string, callback mqtt.MessageHandler) {
	b.Subscribe(topic, 0, callback)
}

func (b *fakeBroker) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

func (b *fakeBroker) subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func TestTopicMatch(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"tavern/music/+/playing", "tavern/music/123/playing", true},
		{"tavern/music/+/playing", "tavern/music/123/paused", false},
		{"tavern/music/#", "tavern/music/123/playing", true},
		{"tavern/music/#", "tavern/music", true},
		{"tavern/#", "other/music", false},
		{"tavern/music", "tavern/music/123", false},
		{"tavern/music/+", "tavern/music", false},
		{"#", "anything/at/all", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.topic, func(t *testing.T) {
			if got := TopicMatch(tt.pattern, tt.topic); got != tt.want {
				t.Errorf("TopicMatch(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
			}
		})
	}
}

func TestTopicRoot(t *testing.T) {
	assert.Equal(t, "tavern", NewWithClient(newFakeBroker(), "bot", "").Root())

	mc := NewWithClient(newFakeBroker(), "bot", "/isekai/")
	assert.Equal(t, "isekai", mc.Root())
	assert.Equal(t, "isekai/music/1/playing", mc.Topic("music", "1", "playing"))
}

func TestPublishEncodesJSON(t *testing.T) {
	broker := newFakeBroker()
	mc := NewWithClient(broker, "bot", "tavern")

	var got map[string]interface{}
	require.NoError(t, mc.Subscribe("tavern/music/+/volume", func(topic string, payload []byte) {
		require.NoError(t, json.Unmarshal(payload, &got))
	}))

	require.NoError(t, mc.Publish("tavern/music/1/volume", map[string]int{"volume": 40}))
	assert.Equal(t, float64(40), got["volume"])
}

func TestPublishRequiresConnection(t *testing.T) {
	broker := newFakeBroker()
	broker.connected = false
	mc := NewWithClient(broker, "bot", "tavern")

	assert.ErrorIs(t, mc.Publish("tavern/x", 1), ErrNotConnected)

	var nilComm *MqttCommunicator
	assert.False(t, nilComm.IsConnected())
}

func TestRequestResponse(t *testing.T) {
	broker := newFakeBroker()
	mc := NewWithClient(broker, "bot", "tavern")

	mc.On("music/state", func(payload map[string]interface{}) (interface{}, error) {
		assert.Equal(t, "music/state", payload["_topic"])
		return map[string]interface{}{"guildId": payload["guildId"]}, nil
	})

	data, err := mc.Request("music/state", map[string]string{"guildId": "42"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"guildId": "42"}, data)

	assert.Equal(t, 1, broker.subscriptions(), "response subscription is removed after the reply")
}

func TestRequestHandlerError(t *testing.T) {
	mc := NewWithClient(newFakeBroker(), "bot", "tavern")
	mc.On("music/+", func(payload map[string]interface{}) (interface{}, error) {
		return nil, fmt.Errorf("unknown guild")
	})

	_, err := mc.Request("music/state", nil, time.Second)
	assert.EqualError(t, err, "unknown guild")
}

func TestRequestTimeout(t *testing.T) {
	mc := NewWithClient(newFakeBroker(), "bot", "tavern")
	_, err := mc.Request("nobody/listens", nil, 20*time.Millisecond)
	assert.Error(t, err)
}
