package engine

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Priya8975/webhook-receiver/internal/domain"
	"github.com/Priya8975/webhook-receiver/internal/logging"
	"github.com/Priya8975/webhook-receiver/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu     sync.Mutex
	events map[string]domain.WebhookEvent
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{events: map[string]domain.WebhookEvent{}}
}

func (s *memoryStore) SaveWebhookEvent(ctx context.Context, event *domain.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.events[event.DeliveryID]; ok {
		return store.ErrDuplicateDelivery
	}
	event.ID = "evt-" + event.DeliveryID
	s.events[event.DeliveryID] = *event
	return nil
}

type memoryClaimer struct {
	claimed  map[string]bool
	released []string
}

func (c *memoryClaimer) Claim(ctx context.Context, id string) bool {
	if c.claimed[id] {
		return false
	}
	c.claimed[id] = true
	return true
}

func (c *memoryClaimer) Release(ctx context.Context, id string) {
	delete(c.claimed, id)
	c.released = append(c.released, id)
}

type sliceSubmitter struct {
	events  []domain.WebhookEvent
	ctxErrs []error
	err     error
}

func (s *sliceSubmitter) Submit(ctx context.Context, event domain.WebhookEvent) error {
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type processorFixture struct {
	processor *Processor
	store     *memoryStore
	claimer   *memoryClaimer
	submitter *sliceSubmitter
}

func newProcessorFixture(t *testing.T) processorFixture {
	t.Helper()
	v, err := NewVerifier(testSecret, time.Minute)
	require.NoError(t, err)

	f := processorFixture{
		store:     newMemoryStore(),
		claimer:   &memoryClaimer{claimed: map[string]bool{}},
		submitter: &sliceSubmitter{},
	}
	f.processor = NewProcessor(v, f.claimer, f.store, f.submitter, logging.Discard())
	return f
}

func signedRequest(t *testing.T, id string, body []byte) http.Header {
	t.Helper()
	h, err := Sign(testSecret, id, time.Now(), body)
	require.NoError(t, err)
	return h
}

func TestProcessor_Accepts(t *testing.T) {
	f := newProcessorFixture(t)
	body := []byte(`{"type":"user.created","object":"event","data":{"id":"user_1"}}`)

	outcome, err := f.processor.Process(context.Background(), signedRequest(t, "msg_1", body), body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome)

	stored := f.store.events["msg_1"]
	assert.Equal(t, "user.created", stored.EventType)
	assert.Equal(t, "event", stored.Object)
	assert.JSONEq(t, string(body), string(stored.Payload))

	require.Len(t, f.submitter.events, 1)
	assert.Equal(t, "evt-msg_1", f.submitter.events[0].ID)
}

func TestProcessor_RejectsBadSignature(t *testing.T) {
	f := newProcessorFixture(t)
	body := []byte(`{"type":"user.created","data":{}}`)
	headers := signedRequest(t, "msg_1", []byte(`{"type":"other"}`))

	_, err := f.processor.Process(context.Background(), headers, body)
	assert.True(t, IsSignatureError(err))
	assert.Empty(t, f.store.events)
	assert.Empty(t, f.claimer.claimed, "nothing is claimed before verification")
}

func TestProcessor_RejectsMalformedEvent(t *testing.T) {
	f := newProcessorFixture(t)

	for _, body := range [][]byte{[]byte(`not json`), []byte(`{"data":{}}`)} {
		_, err := f.processor.Process(context.Background(), signedRequest(t, "msg_x", body), body)
		assert.ErrorIs(t, err, ErrMalformedEvent)
	}
	assert.Empty(t, f.store.events)
}

func TestProcessor_DuplicateViaClaim(t *testing.T) {
	f := newProcessorFixture(t)
	body := []byte(`{"type":"user.updated","data":{}}`)

	_, err := f.processor.Process(context.Background(), signedRequest(t, "msg_1", body), body)
	require.NoError(t, err)

	outcome, err := f.processor.Process(context.Background(), signedRequest(t, "msg_1", body), body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Len(t, f.submitter.events, 1)
}

func TestProcessor_DuplicateViaStore(t *testing.T) {
	f := newProcessorFixture(t)
	body := []byte(`{"type":"user.updated","data":{}}`)

	_, err := f.processor.Process(context.Background(), signedRequest(t, "msg_1", body), body)
	require.NoError(t, err)

	// Simulate an expired Redis claim.
	delete(f.claimer.claimed, "msg_1")

	outcome, err := f.processor.Process(context.Background(), signedRequest(t, "msg_1", body), body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Len(t, f.submitter.events, 1)
}

func TestProcessor_StoreFailureReleasesClaim(t *testing.T) {
	f := newProcessorFixture(t)
	f.store.err = errors.New("connection reset")
	body := []byte(`{"type":"user.deleted","data":{}}`)

	_, err := f.processor.Process(context.Background(), signedRequest(t, "msg_1", body), body)
	require.Error(t, err)
	assert.False(t, IsSignatureError(err))
	assert.NotErrorIs(t, err, ErrMalformedEvent)
	assert.Equal(t, []string{"msg_1"}, f.claimer.released)
}

func TestProcessor_SubmitFailureStillAccepts(t *testing.T) {
	f := newProcessorFixture(t)
	f.submitter.err = errors.New("queue full")
	body := []byte(`{"type":"session.created","data":{}}`)

	outcome, err := f.processor.Process(context.Background(), signedRequest(t, "msg_1", body), body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome)
	assert.Contains(t, f.store.events, "msg_1")
}

// cancellingStore fails the way a dropped client connection does: the
// request context is cancelled and the write returns its error.
type cancellingStore struct {
	cancel context.CancelFunc
	calls  int
}

func (s *cancellingStore) SaveWebhookEvent(ctx context.Context, event *domain.WebhookEvent) error {
	s.calls++
	if s.calls == 1 {
		s.cancel()
		return ctx.Err()
	}
	event.ID = "evt-" + event.DeliveryID
	return nil
}

func TestProcessor_CancelledStoreReleasesRedisClaim(t *testing.T) {
	dedupe, mr := setupTestDedupe(t, time.Hour)

	v, err := NewVerifier(testSecret, time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &cancellingStore{cancel: cancel}
	p := NewProcessor(v, dedupe, s, &sliceSubmitter{}, logging.Discard())

	body := []byte(`{"type":"user.created","data":{}}`)
	headers := signedRequest(t, "msg_1", body)

	_, err = p.Process(ctx, headers, body)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, mr.Exists(dedupeKey("msg_1")), "claim must be released after a cancelled store")

	outcome, err := p.Process(context.Background(), headers, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome, "the provider retry is stored, not ignored")
}

func TestProcessor_SubmitOutlivesRequestContext(t *testing.T) {
	f := newProcessorFixture(t)
	body := []byte(`{"type":"user.updated","data":{}}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := f.processor.Process(ctx, signedRequest(t, "msg_1", body), body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, outcome)
	require.Len(t, f.submitter.ctxErrs, 1)
	assert.NoError(t, f.submitter.ctxErrs[0])
}
