package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-sync-service/internal/rabbitmq"
	"chat-sync-service/internal/telemetry"
)

// PublisherMock stands in for the RabbitMQ publisher behind audit and fan-out mirroring.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

var (
	_ rabbitmq.Publisher  = (*PublisherMock)(nil)
	_ telemetry.Publisher = (*PublisherMock)(nil)
)
