package mq

import (
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucu-innovators/hub/internal/config"
)

func TestTableCarrier(t *testing.T) {
	c := tableCarrier{table: amqp.Table{"retries": int32(3)}}
	c.Set("traceparent", "00-abc-def-01")

	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Equal(t, "3", c.Get("retries"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"retries", "traceparent"}, c.Keys())
}

type fakeTopology struct {
	failOn   string
	prefetch int
	bound    []string
	closed   int
}

var errBroker = errors.New("broker said no")

func (f *fakeTopology) Qos(prefetchCount, _ int, _ bool) error {
	f.prefetch = prefetchCount
	if f.failOn == "qos" {
		return errBroker
	}
	return nil
}

func (f *fakeTopology) ExchangeDeclare(string, string, bool, bool, bool, bool, amqp.Table) error {
	if f.failOn == "exchange" {
		return errBroker
	}
	return nil
}

func (f *fakeTopology) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if f.failOn == "queue" {
		return amqp.Queue{}, errBroker
	}
	return amqp.Queue{Name: name}, nil
}

func (f *fakeTopology) QueueBind(_, key, _ string, _ bool, _ amqp.Table) error {
	if f.failOn == "bind:"+key {
		return errBroker
	}
	f.bound = append(f.bound, key)
	return nil
}

func (f *fakeTopology) Close() error {
	f.closed++
	return nil
}

func TestDeclareConsumerQueue(t *testing.T) {
	cfg := &config.Config{}
	cfg.RabbitMQ.ExchangeName.Project = "hub.project"
	cfg.RabbitMQ.ExchangeName.Notification = "hub.notification"
	keys := []string{"project.submitted", "project.reviewed"}

	t.Run("declares and binds", func(t *testing.T) {
		ch := &fakeTopology{}
		q, err := declareConsumerQueue(ch, "hub.worker", "hub.project", keys, 0, cfg)
		require.NoError(t, err)
		assert.Equal(t, "hub.worker", q.Name)
		assert.Equal(t, 10, ch.prefetch)
		assert.Equal(t, keys, ch.bound)
		assert.Zero(t, ch.closed)
	})

	for _, step := range []string{"qos", "exchange", "queue", "bind:project.reviewed"} {
		t.Run("closes channel when "+step+" fails", func(t *testing.T) {
			ch := &fakeTopology{failOn: step}
			_, err := declareConsumerQueue(ch, "hub.worker", "hub.project", keys, 5, cfg)
			assert.ErrorIs(t, err, errBroker)
			assert.Equal(t, 1, ch.closed)
		})
	}
}
