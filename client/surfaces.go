package client

import (
	"context"
	"library/models"
)

// Поверхности - тонкие обертки над SyncController для трех мест,
// где живет состояние заявок: страница книги, каталог и админская
// очередь. Семантика сверки у всех одна, отличаются только ключ кеша,
// канал подписки и формат уведомлений. Каждая поверхность владеет
// собственным контроллером, кеш между ними не разделяется.

// BookPageSurface - страница одной книги
type BookPageSurface struct {
	Controller *SyncController
	BookID     int64

	sub    Subscription
	poller *Poller
}

func OpenBookPage(ctx context.Context, gateway ActionGateway, channel RealtimeChannel, sink NotificationSink, bookID int64, initial []models.LoanRequest) (*BookPageSurface, error) {
	s := &BookPageSurface{
		Controller: NewSyncController(gateway, sink),
		BookID:     bookID,
	}
	s.Controller.ApplySnapshot(filterByBook(initial, bookID))

	sub, err := channel.Listen(s.onEvent)
	if err != nil {
		return nil, err
	}
	s.sub = sub

	s.poller = NewPoller(s.Controller, func() error {
		requests, err := gateway.FetchMyRequests()
		if err != nil {
			return err
		}
		s.Controller.ApplySnapshot(filterByBook(requests, bookID))
		return nil
	})
	s.poller.Start(ctx)
	return s, nil
}

func (s *BookPageSurface) onEvent(ev Event) {
	// Страницу одной книги чужие книги не интересуют
	if ev.LoanRequest.BookID != s.BookID {
		return
	}
	s.Controller.OnRealtimeEvent(ev)
}

func (s *BookPageSurface) RequestLoan() { s.Controller.RequestLoan(s.BookID) }
func (s *BookPageSurface) CancelLoan()  { s.Controller.CancelLoan(s.BookID) }

func (s *BookPageSurface) Close() error {
	s.poller.Stop()
	return s.sub.Close()
}

// BookListSurface - каталог: заявки по многим книгам сразу
type BookListSurface struct {
	Controller *SyncController

	sub    Subscription
	poller *Poller
}

func OpenBookList(ctx context.Context, gateway ActionGateway, channel RealtimeChannel, sink NotificationSink, initial []models.LoanRequest) (*BookListSurface, error) {
	s := &BookListSurface{
		Controller: NewSyncController(gateway, sink),
	}
	s.Controller.ApplySnapshot(initial)

	sub, err := channel.Listen(s.Controller.OnRealtimeEvent)
	if err != nil {
		return nil, err
	}
	s.sub = sub

	s.poller = NewPoller(s.Controller, func() error {
		requests, err := gateway.FetchMyRequests()
		if err != nil {
			return err
		}
		s.Controller.ApplySnapshot(requests)
		return nil
	})
	s.poller.Start(ctx)
	return s, nil
}

func (s *BookListSurface) RequestLoan(bookID int64) { s.Controller.RequestLoan(bookID) }
func (s *BookListSurface) CancelLoan(bookID int64)  { s.Controller.CancelLoan(bookID) }

func (s *BookListSurface) Close() error {
	s.poller.Stop()
	return s.sub.Close()
}

// AdminPanelSurface - очередь pending-заявок библиотекаря
type AdminPanelSurface struct {
	Controller *SyncController

	sub    Subscription
	poller *Poller
}

func OpenAdminPanel(ctx context.Context, gateway ActionGateway, channel RealtimeChannel, sink NotificationSink, refresher PageRefresher) (*AdminPanelSurface, error) {
	s := &AdminPanelSurface{
		Controller: NewAdminSyncController(gateway, sink, refresher),
	}

	requests, err := gateway.FetchPendingRequests()
	if err != nil {
		return nil, err
	}
	s.Controller.ApplySnapshot(requests)

	sub, err := channel.Listen(s.Controller.OnRealtimeEvent)
	if err != nil {
		return nil, err
	}
	s.sub = sub

	s.poller = NewPoller(s.Controller, func() error {
		requests, err := gateway.FetchPendingRequests()
		if err != nil {
			return err
		}
		s.Controller.ApplySnapshot(requests)
		return nil
	})
	s.poller.Start(ctx)
	return s, nil
}

func (s *AdminPanelSurface) Approve(requestID int64) {
	s.Controller.DecideLoan(requestID, models.LoanStatusApproved)
}

func (s *AdminPanelSurface) Reject(requestID int64) {
	s.Controller.DecideLoan(requestID, models.LoanStatusRejected)
}

func (s *AdminPanelSurface) Queue() []models.LoanRequest {
	return s.Controller.Snapshot()
}

func (s *AdminPanelSurface) Close() error {
	s.poller.Stop()
	return s.sub.Close()
}

func filterByBook(requests []models.LoanRequest, bookID int64) []models.LoanRequest {
	out := make([]models.LoanRequest, 0, 1)
	for _, lr := range requests {
		if lr.BookID == bookID {
			out = append(out, lr)
		}
	}
	return out
}
