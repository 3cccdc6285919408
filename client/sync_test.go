package client

import (
	"sync"
	"testing"
	"time"

	"library/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu    sync.Mutex
	notes []Notification
}

func (s *fakeSink) Notify(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

func (s *fakeSink) last() Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notes) == 0 {
		return Notification{}
	}
	return s.notes[len(s.notes)-1]
}

type fakeGateway struct {
	mu          sync.Mutex
	createCalls int
	cancelCalls int
	decideCalls int

	createResult *CreateResult
	createErr    error
	cancelResult *models.LoanRequest
	cancelErr    error
	decideErr    error

	// если не nil, каждый вызов шлюза ждет сигнала
	started chan struct{}
	release chan struct{}
}

func (g *fakeGateway) wait() {
	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
}

func (g *fakeGateway) CreateLoanRequest(bookID int64) (*CreateResult, error) {
	g.mu.Lock()
	g.createCalls++
	g.mu.Unlock()
	g.wait()
	if g.createErr != nil {
		return nil, g.createErr
	}
	return g.createResult, nil
}

func (g *fakeGateway) CancelLoanRequest(requestID int64) (*models.LoanRequest, error) {
	g.mu.Lock()
	g.cancelCalls++
	g.mu.Unlock()
	g.wait()
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	return g.cancelResult, nil
}

func (g *fakeGateway) DecideLoanRequest(requestID int64, decision string) (string, error) {
	g.mu.Lock()
	g.decideCalls++
	g.mu.Unlock()
	g.wait()
	if g.decideErr != nil {
		return "", g.decideErr
	}
	return "loan request " + decision, nil
}

func (g *fakeGateway) FetchMyRequests() ([]models.LoanRequest, error)      { return nil, nil }
func (g *fakeGateway) FetchPendingRequests() ([]models.LoanRequest, error) { return nil, nil }

func (g *fakeGateway) calls() (int, int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createCalls, g.cancelCalls, g.decideCalls
}

func pendingRequest(id, bookID int64) models.LoanRequest {
	return models.LoanRequest{
		ID:          id,
		BookID:      bookID,
		RequesterID: 1,
		Status:      models.LoanStatusPending,
		CreatedAt:   time.Now(),
	}
}

func TestRequestLoanSuccess(t *testing.T) {
	lr := pendingRequest(101, 7)
	gateway := &fakeGateway{createResult: &CreateResult{LoanRequest: &lr}}
	sink := &fakeSink{}
	c := NewSyncController(gateway, sink)

	c.RequestLoan(7)

	cached, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, int64(101), cached.ID)
	assert.Equal(t, models.LoanStatusPending, cached.Status)
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, "success", sink.last().Type)
}

func TestRequestLoanAlreadyPending(t *testing.T) {
	lr := pendingRequest(101, 7)
	gateway := &fakeGateway{createResult: &CreateResult{LoanRequest: &lr, AlreadyPending: true}}
	sink := &fakeSink{}
	c := NewSyncController(gateway, sink)

	c.RequestLoan(7)

	cached, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, int64(101), cached.ID)
	assert.Equal(t, "info", sink.last().Type)

	// Записи в БД не было, эха не будет - событие с этим id (например,
	// решение админа) должно показаться
	c.OnRealtimeEvent(Event{Kind: "book-loan-request.updated", LoanRequest: models.LoanRequest{
		ID: 101, BookID: 7, Status: models.LoanStatusApproved,
	}})
	assert.Equal(t, 2, sink.count())
}

func TestRequestLoanFailure(t *testing.T) {
	gateway := &fakeGateway{createErr: &APIError{StatusCode: 409, Message: "no available copies"}}
	sink := &fakeSink{}
	c := NewSyncController(gateway, sink)

	c.RequestLoan(7)

	_, ok := c.Get(7)
	assert.False(t, ok, "cache must stay empty after a failed create")
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, "error", sink.last().Type)
	assert.Equal(t, "no available copies", sink.last().Message)

	// Флаг in-flight снят, повторная попытка доходит до шлюза
	c.RequestLoan(7)
	creates, _, _ := gateway.calls()
	assert.Equal(t, 2, creates)
}

func TestSelfCancelEchoSuppressed(t *testing.T) {
	canceled := models.LoanRequest{
		ID: 101, BookID: 7, RequesterID: 1,
		Status: models.LoanStatusRejected, CanceledByRequester: true,
	}
	gateway := &fakeGateway{cancelResult: &canceled}
	sink := &fakeSink{}
	c := NewSyncController(gateway, sink)
	c.ApplySnapshot([]models.LoanRequest{pendingRequest(101, 7)})

	c.CancelLoan(7)
	require.Equal(t, 1, sink.count())
	assert.Equal(t, "info", sink.last().Type)

	// Эхо собственной отмены: гасится, второго уведомления нет
	c.OnRealtimeEvent(Event{Kind: "book-loan-request.updated", LoanRequest: canceled})
	assert.Equal(t, 1, sink.count())

	cached, _ := c.Get(7)
	assert.Equal(t, models.LoanStatusRejected, cached.Status)
	assert.True(t, cached.CanceledByRequester)
}

func TestCancelEchoBeforeResponse(t *testing.T) {
	canceled := models.LoanRequest{
		ID: 101, BookID: 7, RequesterID: 1,
		Status: models.LoanStatusRejected, CanceledByRequester: true,
	}
	gateway := &fakeGateway{
		cancelResult: &canceled,
		started:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
	sink := &fakeSink{}
	c := NewSyncController(gateway, sink)
	c.ApplySnapshot([]models.LoanRequest{pendingRequest(101, 7)})

	done := make(chan struct{})
	go func() {
		c.CancelLoan(7)
		close(done)
	}()
	<-gateway.started

	// Эхо обгоняет HTTP-ответ: маркер уже стоит, уведомления нет
	c.OnRealtimeEvent(Event{Kind: "book-loan-request.updated", LoanRequest: canceled})
	assert.Equal(t, 0, sink.count())

	close(gateway.release)
	<-done

	// Ответ пришел: ровно одно уведомление
	assert.Equal(t, 1, sink.count())
	cached, _ := c.Get(7)
	assert.Equal(t, models.LoanStatusRejected, cached.Status)
}

func TestOtherCausedTransitionSurfaced(t *testing.T) {
	gateway := &fakeGateway{}
	sink := &fakeSink{}
	c := NewSyncController(gateway, sink)
	c.ApplySnapshot([]models.LoanRequest{pendingRequest(101, 7)})

	// Решение админа приходит только по realtime-каналу
	c.OnRealtimeEvent(Event{Kind: "book-loan-request.updated", LoanRequest: models.LoanRequest{
		ID: 101, BookID: 7, Status: models.LoanStatusApproved,
	}})

	cached, _ := c.Get(7)
	assert.Equal(t, models.LoanStatusApproved, cached.Status)
	require.Equal(t, 1, sink.count())
	assert.Equal(t, "success", sink.last().Type)
}

func TestInFlightMutualExclusion(t *testing.T) {
	lr := pendingRequest(101, 7)
	gateway := &fakeGateway{
		createResult: &CreateResult{LoanRequest: &lr},
		started:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
	sink := &fakeSink{}
	c := NewSyncController(gateway, sink)

	done := make(chan struct{})
	go func() {
		c.RequestLoan(7)
		close(done)
	}()
	<-gateway.started

	// Пока первый вызов в полете, второй - тихий no-op
	c.RequestLoan(8)
	creates, _, _ := gateway.calls()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 0, sink.count())

	close(gateway.release)
	<-done

	creates, _, _ = gateway.calls()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, sink.count())
}

func TestCancelFailureKeepsPending(t *testing.T) {
	gateway := &fakeGateway{cancelErr: &APIError{StatusCode: 500, Message: "internal error"}}
	sink := &fakeSink{}
	c := NewSyncController(gateway, sink)
	c.ApplySnapshot([]models.LoanRequest{pendingRequest(101, 7)})

	c.CancelLoan(7)

	cached, _ := c.Get(7)
	assert.Equal(t, models.LoanStatusPending, cached.Status)
	assert.Equal(t, "error", sink.last().Type)

	// Маркер снят: последующий чужой переход по этому id показывается
	c.OnRealtimeEvent(Event{Kind: "book-loan-request.updated", LoanRequest: models.LoanRequest{
		ID: 101, BookID: 7, Status: models.LoanStatusRejected,
	}})
	assert.Equal(t, 2, sink.count())
}

func TestTerminalStateAbsorbing(t *testing.T) {
	gateway := &fakeGateway{}
	sink := &fakeSink{}
	c := NewSyncController(gateway, sink)
	approved := models.LoanRequest{ID: 101, BookID: 7, Status: models.LoanStatusApproved}
	c.ApplySnapshot([]models.LoanRequest{approved})

	c.OnRealtimeEvent(Event{Kind: "book-loan-request.updated", LoanRequest: models.LoanRequest{
		ID: 101, BookID: 7, Status: models.LoanStatusRejected,
	}})

	cached, _ := c.Get(7)
	assert.Equal(t, models.LoanStatusApproved, cached.Status)
	assert.Equal(t, 0, sink.count())
}

func TestNewRequestAfterTerminal(t *testing.T) {
	gateway := &fakeGateway{}
	sink := &fakeSink{}
	c := NewSyncController(gateway, sink)
	c.ApplySnapshot([]models.LoanRequest{{ID: 101, BookID: 7, Status: models.LoanStatusRejected}})

	// Новая заявка на ту же книгу - другой id, поглощение не применяется
	c.OnRealtimeEvent(Event{Kind: "book-loan-request.created", LoanRequest: pendingRequest(102, 7)})

	cached, _ := c.Get(7)
	assert.Equal(t, int64(102), cached.ID)
	assert.Equal(t, models.LoanStatusPending, cached.Status)
	assert.Equal(t, 1, sink.count())
}

func TestMalformedEventsIgnored(t *testing.T) {
	gateway := &fakeGateway{}
	sink := &fakeSink{}
	c := NewSyncController(gateway, sink)
	c.ApplySnapshot([]models.LoanRequest{pendingRequest(101, 7)})

	c.OnRealtimeEvent(Event{Kind: "book-loan-request.updated"})
	c.OnRealtimeEvent(Event{Kind: "book-loan-request.updated", LoanRequest: models.LoanRequest{ID: 101}})
	c.OnRealtimeEvent(Event{Kind: "book-loan-request.updated", LoanRequest: models.LoanRequest{
		ID: 101, BookID: 7, Status: "mystery",
	}})

	cached, _ := c.Get(7)
	assert.Equal(t, models.LoanStatusPending, cached.Status)
	assert.Equal(t, 0, sink.count())
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
}

func (r *fakeRefresher) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func (r *fakeRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestDecideLoanRemovesFromQueue(t *testing.T) {
	gateway := &fakeGateway{}
	sink := &fakeSink{}
	refresher := &fakeRefresher{}
	c := NewAdminSyncController(gateway, sink, refresher)
	c.ApplySnapshot([]models.LoanRequest{pendingRequest(101, 7)})

	c.DecideLoan(101, models.LoanStatusApproved)

	_, ok := c.Get(101)
	assert.False(t, ok, "decided request must leave the queue")
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, "success", sink.last().Type)
	assert.Equal(t, 1, refresher.count())

	// Эхо решения: уже убрано из очереди, без второго уведомления
	c.OnRealtimeEvent(Event{Kind: "book-loan-request.updated", LoanRequest: models.LoanRequest{
		ID: 101, BookID: 7, Status: models.LoanStatusApproved,
	}})
	assert.Equal(t, 1, sink.count())
}

func TestDecideLoanFailureKeepsQueueEntry(t *testing.T) {
	gateway := &fakeGateway{decideErr: &APIError{StatusCode: 409, Message: "loan request is not pending"}}
	sink := &fakeSink{}
	c := NewAdminSyncController(gateway, sink, nil)
	c.ApplySnapshot([]models.LoanRequest{pendingRequest(101, 7)})

	c.DecideLoan(101, models.LoanStatusRejected)

	_, ok := c.Get(101)
	assert.True(t, ok)
	assert.Equal(t, "error", sink.last().Type)
}

func TestDecideLoanSerialized(t *testing.T) {
	gateway := &fakeGateway{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	sink := &fakeSink{}
	c := NewAdminSyncController(gateway, sink, nil)
	c.ApplySnapshot([]models.LoanRequest{pendingRequest(101, 7), pendingRequest(102, 8)})

	done := make(chan struct{})
	go func() {
		c.DecideLoan(101, models.LoanStatusApproved)
		close(done)
	}()
	<-gateway.started

	c.DecideLoan(102, models.LoanStatusApproved)
	_, _, decides := gateway.calls()
	assert.Equal(t, 1, decides)

	close(gateway.release)
	<-done
}

func TestAdminQueueNewRequestEvent(t *testing.T) {
	gateway := &fakeGateway{}
	sink := &fakeSink{}
	c := NewAdminSyncController(gateway, sink, nil)

	lr := pendingRequest(101, 7)
	lr.RequesterName = "Ivan Petrov"
	c.OnRealtimeEvent(Event{Kind: "book-loan-request.created", LoanRequest: lr})

	cached, ok := c.Get(101)
	require.True(t, ok)
	assert.Equal(t, models.LoanStatusPending, cached.Status)
	assert.Contains(t, sink.last().Message, "Ivan Petrov")
}

func TestPollIntervalTracksRecency(t *testing.T) {
	gateway := &fakeGateway{}
	sink := &fakeSink{}
	c := NewSyncController(gateway, sink)

	fresh := pendingRequest(101, 7)
	fresh.CreatedAt = time.Now().Add(-10 * time.Second)
	c.ApplySnapshot([]models.LoanRequest{fresh})
	assert.Equal(t, time.Second, c.NextPollInterval(time.Now()))

	stale := pendingRequest(101, 7)
	stale.CreatedAt = time.Now().Add(-5 * time.Minute)
	c.ApplySnapshot([]models.LoanRequest{stale})
	assert.Equal(t, 30*time.Second, c.NextPollInterval(time.Now()))

	c.ApplySnapshot(nil)
	assert.Equal(t, 30*time.Second, c.NextPollInterval(time.Now()))
}
