package fanout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sinkMock struct {
	mock.Mock
}

func (m *sinkMock) Broadcast(topic string, payload any) {
	m.Called(topic, payload)
}

type mirrorMock struct {
	mock.Mock
}

func (m *mirrorMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *mirrorMock) Close() error { return nil }

func TestMessagesTopicRoundTrip(t *testing.T) {
	topic := MessagesTopic("alice_bob")
	assert.Equal(t, "messages.alice_bob", topic)

	chatID, ok := ChatIDFromTopic(topic)
	require.True(t, ok)
	assert.Equal(t, "alice_bob", chatID)

	_, ok = ChatIDFromTopic("messages.")
	assert.False(t, ok)
	_, ok = ChatIDFromTopic(TopicChats)
	assert.False(t, ok)
}

func TestBroadcasterDeliversAndMirrors(t *testing.T) {
	sink := new(sinkMock)
	mirror := new(mirrorMock)
	payload := map[string]string{"chatId": "c1"}

	sink.On("Broadcast", TopicChats, payload).Once()
	mirror.On("Publish", mock.Anything, "fanout.chats", mock.MatchedBy(func(e Envelope) bool {
		return e.Topic == TopicChats && e.PublishedAt != ""
	})).Return(nil).Once()

	NewBroadcaster(sink, mirror).Publish(context.Background(), TopicChats, payload)

	sink.AssertExpectations(t)
	mirror.AssertExpectations(t)
}

func TestBroadcasterIgnoresMirrorErrors(t *testing.T) {
	sink := new(sinkMock)
	mirror := new(mirrorMock)
	sink.On("Broadcast", TopicUsers, mock.Anything).Once()
	mirror.On("Publish", mock.Anything, "fanout.users", mock.Anything).Return(assert.AnError).Once()

	assert.NotPanics(t, func() {
		NewBroadcaster(sink, mirror).Publish(context.Background(), TopicUsers, []string{})
	})
	sink.AssertExpectations(t)
}
