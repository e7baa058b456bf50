package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postdeck/internal/metrics"
)

type fixture struct {
	mr      *miniredis.Miniredis
	broker  *Broker
	hub     *Hub
	server  *httptest.Server
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, opts ...HubOption) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	m, _ := metrics.Setup(prometheus.NewRegistry())
	broker := NewBroker(client, m)
	hub := NewHub(broker, nil, m, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return mr.PubSubNumPat() > 0 }, 2*time.Second, 5*time.Millisecond)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, _ := uuid.Parse(r.URL.Query().Get("workspace"))
		hub.ServeWS(w, r, r.URL.Query().Get("user"), ws)
	}))
	t.Cleanup(server.Close)

	return &fixture{mr: mr, broker: broker, hub: hub, server: server, metrics: m}
}

func (f *fixture) connect(t *testing.T, user string, workspace uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?user=" + user + "&workspace=" + workspace.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *fixture) dial(t *testing.T, user, topic string) *websocket.Conn {
	t.Helper()
	conn := f.connect(t, user, uuid.Nil)
	before := f.hub.Subscribers(topic)
	require.NoError(t, conn.WriteJSON(SubscriptionRequest{Type: "subscribe", Topics: []string{topic}}))
	require.Eventually(t, func() bool { return f.hub.Subscribers(topic) > before }, 2*time.Second, 5*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func publish(t *testing.T, f *fixture, typ EventType, topic, author string) Event {
	t.Helper()
	ev, err := NewEvent(typ, topic, author, nil, map[string]int{"n": 1})
	require.NoError(t, err)
	require.NoError(t, f.broker.Publish(context.Background(), ev))
	return ev
}

func TestHubDeliversToTopicSubscribers(t *testing.T) {
	f := newFixture(t)
	topic := BoardTopic(uuid.New())
	conn := f.dial(t, "ana", topic)

	sent := publish(t, f, EventRowsMoved, topic, "bo")
	got := readEvent(t, conn)

	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, EventRowsMoved, got.Type)
	assert.JSONEq(t, `{"n":1}`, string(got.Payload))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsPublished.WithLabelValues(string(EventRowsMoved))))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActiveConnections))
}

func TestHubSuppressesEchoAndDuplicates(t *testing.T) {
	f := newFixture(t)
	topic := BoardTopic(uuid.New())
	conn := f.dial(t, "ana", topic)

	publish(t, f, EventCommentCreated, topic, "ana")

	dup, err := NewEvent(EventCommentCreated, topic, "bo", nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.broker.Publish(context.Background(), dup))
	require.NoError(t, f.broker.Publish(context.Background(), dup))

	last := publish(t, f, EventStatusChanged, topic, "bo")

	assert.Equal(t, dup.ID, readEvent(t, conn).ID)
	assert.Equal(t, last.ID, readEvent(t, conn).ID, "own event and duplicate are skipped")
}

func TestHubIgnoresOtherTopics(t *testing.T) {
	f := newFixture(t)
	mine := BoardTopic(uuid.New())
	conn := f.dial(t, "ana", mine)

	publish(t, f, EventPostCreated, BoardTopic(uuid.New()), "bo")
	want := publish(t, f, EventPostCreated, mine, "bo")

	assert.Equal(t, want.ID, readEvent(t, conn).ID)
}

func TestHubUnsubscribe(t *testing.T) {
	f := newFixture(t)
	topic := FormTopic(uuid.New())
	conn := f.dial(t, "ana", topic)

	require.NoError(t, conn.WriteJSON(SubscriptionRequest{Type: "unsubscribe", Topics: []string{topic}}))
	assert.Eventually(t, func() bool { return f.hub.Subscribers(topic) == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHubDropsClosedClients(t *testing.T) {
	f := newFixture(t)
	topic := BoardTopic(uuid.New())
	conn := f.dial(t, "ana", topic)

	conn.Close()
	assert.Eventually(t, func() bool { return f.hub.Subscribers(topic) == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return testutil.ToFloat64(f.metrics.ActiveConnections) == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHubRefusesTopicsOutsideWorkspace(t *testing.T) {
	ours, theirs := uuid.New(), uuid.New()
	own, foreign := BoardTopic(uuid.New()), BoardTopic(uuid.New())
	check := func(_ context.Context, ws uuid.UUID, topic string) bool {
		owner := theirs
		if topic == own {
			owner = ours
		}
		return ws == owner
	}
	f := newFixture(t, WithTopicCheck(check))
	conn := f.connect(t, "ana", ours)

	require.NoError(t, conn.WriteJSON(SubscriptionRequest{Type: "subscribe", Topics: []string{foreign, own}}))
	require.Eventually(t, func() bool { return f.hub.Subscribers(own) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, f.hub.Subscribers(foreign))

	publish(t, f, EventPostCreated, foreign, "bo")
	want := publish(t, f, EventPostCreated, own, "bo")
	assert.Equal(t, want.ID, readEvent(t, conn).ID)
}

func TestHubCallsObservers(t *testing.T) {
	seen := make(chan Event, 1)
	f := newFixture(t, WithObserver(func(ev Event) { seen <- ev }))

	sent := publish(t, f, EventRowsFilled, BoardTopic(uuid.New()), "bo")

	select {
	case got := <-seen:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, InstanceID(), got.Origin)
	case <-time.After(2 * time.Second):
		t.Fatal("observer not called")
	}
}

func TestTopicIDs(t *testing.T) {
	id := uuid.New()

	got, ok := BoardFromTopic(BoardTopic(id))
	assert.True(t, ok)
	assert.Equal(t, id, got)

	got, ok = FormFromTopic(FormTopic(id))
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = BoardFromTopic(FormTopic(id))
	assert.False(t, ok)
	_, ok = BoardFromTopic("board:nope")
	assert.False(t, ok)
}
