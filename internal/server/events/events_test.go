package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declareErr error
	publishErr error

	declared  string
	kind      string
	exchange  string
	key       string
	published []amqp.Publishing
	closed    bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared, f.kind = name, kind
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key = exchange, key
	f.published = append(f.published, msg)
	return f.publishErr
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	conn := &fakeConn{}
	p, err := newPublisher(conn, ch, "wedding.events")
	require.NoError(t, err)
	assert.Equal(t, "wedding.events", ch.declared)
	assert.Equal(t, "topic", ch.kind)

	at := time.Date(2026, 6, 20, 15, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	require.NoError(t, p.Publish(context.Background(), KeyPhotoUploaded, PhotoUploaded{MediaID: "m1", GalleryID: "g1", UserID: "u1"}))
	require.Len(t, ch.published, 1)
	assert.Equal(t, "wedding.events", ch.exchange)
	assert.Equal(t, KeyPhotoUploaded, ch.key)

	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var env struct {
		Type       string        `json:"type"`
		OccurredAt time.Time     `json:"occurredAt"`
		Data       PhotoUploaded `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Body, &env))
	assert.Equal(t, KeyPhotoUploaded, env.Type)
	assert.True(t, at.Equal(env.OccurredAt))
	assert.Equal(t, "g1", env.Data.GalleryID)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.True(t, conn.closed)
}

func TestAMQPPublisher_DeclareError(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	_, err := newPublisher(&fakeConn{}, ch, "x")
	require.Error(t, err)
	assert.True(t, ch.closed)
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := newPublisher(&fakeConn{}, ch, "x")
	require.NoError(t, err)
	assert.Error(t, p.Publish(context.Background(), KeyGuestRequested, GuestRequested{UserID: "u1"}))
}

type countingObserver struct {
	keys []string
	errs []error
}

func (c *countingObserver) ObserveEvent(key string, err error) {
	c.keys = append(c.keys, key)
	c.errs = append(c.errs, err)
}

func TestObserve(t *testing.T) {
	obs := &countingObserver{}
	p := Observe(Nop{}, obs)
	require.NoError(t, p.Publish(context.Background(), KeyGuestResolved, GuestResolved{}))
	assert.Equal(t, []string{KeyGuestResolved}, obs.keys)
	assert.Nil(t, obs.errs[0])

	assert.Equal(t, Nop{}, Observe(Nop{}, nil))
}
