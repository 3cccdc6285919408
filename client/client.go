// Package client реализует клиентскую сторону жизненного цикла заявок:
// локальный кеш состояния заявок, согласованный между действиями
// пользователя, ответами сервера и push-событиями, без дублей уведомлений.
package client

import "library/models"

// Event - событие перехода заявки, доставленное realtime-каналом
type Event struct {
	Kind        string             `json:"event"`
	LoanRequest models.LoanRequest `json:"loan_request"`
}

// Valid отбрасывает битые события: без id, без книги или с неизвестным
// статусом. Такие события молча игнорируются, это не ошибка.
func (e Event) Valid() bool {
	lr := e.LoanRequest
	if lr.ID == 0 || lr.BookID == 0 {
		return false
	}
	switch lr.Status {
	case models.LoanStatusPending, models.LoanStatusApproved, models.LoanStatusRejected:
		return true
	}
	return false
}

// Notification - уведомление для пользователя (toast)
type Notification struct {
	Message string `json:"message"`
	Type    string `json:"type"` // success | error | info
}

// NotificationSink принимает уведомления; рендеринг и авто-скрытие -
// забота реализации.
type NotificationSink interface {
	Notify(n Notification)
}

// CreateResult - ответ сервера на подачу заявки
type CreateResult struct {
	Message        string              `json:"message"`
	LoanRequest    *models.LoanRequest `json:"loan_request"`
	AlreadyPending bool                `json:"already_pending"`
}

// ActionGateway выполняет HTTP-вызовы, меняющие состояние заявки.
// Транспорт, ретраи и авторизация - внутри реализации.
type ActionGateway interface {
	CreateLoanRequest(bookID int64) (*CreateResult, error)
	CancelLoanRequest(requestID int64) (*models.LoanRequest, error)
	DecideLoanRequest(requestID int64, decision string) (string, error)
	FetchMyRequests() ([]models.LoanRequest, error)
	FetchPendingRequests() ([]models.LoanRequest, error)
}

// Subscription - подписка на realtime-канал; Close обязателен при
// уходе со страницы, иначе обработчик продолжит дергаться на устаревшем
// состоянии.
type Subscription interface {
	Close() error
}

// RealtimeChannel доставляет события переходов. Подключение и
// аутентификация - внутри реализации.
type RealtimeChannel interface {
	Listen(handler func(Event)) (Subscription, error)
}

// PageRefresher перезагружает зависимые серверные агрегаты
// (счетчики, таблицы) после решения по заявке.
type PageRefresher interface {
	Refresh()
}
