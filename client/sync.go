package client

import (
	"library/models"
	"sync"
	"time"
)

// SyncController держит локальный кеш заявок одной "поверхности"
// (страница книги, каталог или админская очередь) и сводит воедино три
// источника изменений: действия пользователя, ответы сервера и события
// realtime-канала. Один и тот же переход сервер сообщает дважды - ответом
// на запрос и push-событием - уведомление должно уйти ровно один раз.
//
// Дедупликация строится на одноразовом маркере ownedID: перед мутирующим
// вызовом контроллер запоминает id заявки, и первое событие с этим id
// гасится как эхо собственного действия, после чего маркер очищается.
// Порядок прихода ответа и эха не гарантирован, логика верна в обоих.
type SyncController struct {
	mu      sync.Mutex
	gateway ActionGateway
	sink    NotificationSink

	// admin: кеш ключуется по id заявки и ведет себя как очередь -
	// терминальные заявки удаляются. Иначе ключ - id книги, терминальные
	// заявки остаются для отображения.
	admin bool

	cache map[int64]models.LoanRequest

	inFlight     bool
	inFlightBook int64 // книга, по которой сейчас создается заявка
	ownedID      int64 // одноразовый маркер "последний локально вызванный id"

	refresher PageRefresher
}

// NewSyncController - контроллер читательской поверхности (ключ - книга)
func NewSyncController(gateway ActionGateway, sink NotificationSink) *SyncController {
	return &SyncController{
		gateway: gateway,
		sink:    sink,
		cache:   make(map[int64]models.LoanRequest),
	}
}

// NewAdminSyncController - контроллер админской очереди (ключ - заявка).
// refresher дергается после успешного решения, может быть nil.
func NewAdminSyncController(gateway ActionGateway, sink NotificationSink, refresher PageRefresher) *SyncController {
	return &SyncController{
		gateway:   gateway,
		sink:      sink,
		admin:     true,
		cache:     make(map[int64]models.LoanRequest),
		refresher: refresher,
	}
}

func (c *SyncController) key(lr models.LoanRequest) int64 {
	if c.admin {
		return lr.ID
	}
	return lr.BookID
}

// RequestLoan подает заявку на книгу. Повторный вызов, пока предыдущая
// мутация не завершилась, и вызов при уже активной заявке - тихий no-op.
func (c *SyncController) RequestLoan(bookID int64) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return
	}
	if cached, ok := c.cache[bookID]; ok && cached.Active() {
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.inFlightBook = bookID
	c.mu.Unlock()

	res, err := c.gateway.CreateLoanRequest(bookID)

	c.mu.Lock()
	defer func() {
		c.inFlight = false
		c.inFlightBook = 0
		c.mu.Unlock()
	}()

	if err != nil {
		c.sink.Notify(errorNotification(err))
		return
	}
	if res.LoanRequest != nil {
		lr := *res.LoanRequest
		// Маркер ставим только если эхо еще не приехало и эхо будет:
		// already_pending записи в БД не делает
		if cached, ok := c.cache[c.key(lr)]; !res.AlreadyPending && (!ok || cached.ID != lr.ID) {
			c.ownedID = lr.ID
		}
		c.cache[c.key(lr)] = lr
	}
	if res.AlreadyPending {
		c.sink.Notify(Notification{Message: "Loan request already pending", Type: "info"})
		return
	}
	c.sink.Notify(Notification{Message: "Loan request submitted", Type: "success"})
}

// CancelLoan отменяет pending-заявку читателя по книге.
// При ошибке кеш не меняется: заявка остается pending, маркер снимается.
func (c *SyncController) CancelLoan(bookID int64) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return
	}
	cached, ok := c.cache[bookID]
	if !ok || cached.Status != models.LoanStatusPending || cached.ID == 0 {
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	// До вызова: эхо может обогнать ответ
	c.ownedID = cached.ID
	c.mu.Unlock()

	updated, err := c.gateway.CancelLoanRequest(cached.ID)

	c.mu.Lock()
	defer func() {
		c.inFlight = false
		c.mu.Unlock()
	}()

	if err != nil {
		if c.ownedID == cached.ID {
			c.ownedID = 0
		}
		c.sink.Notify(errorNotification(err))
		return
	}

	if updated != nil {
		c.cache[bookID] = *updated
	} else {
		cached.Status = models.LoanStatusRejected
		cached.CanceledByRequester = true
		c.cache[bookID] = cached
	}
	c.sink.Notify(Notification{Message: "Loan request canceled", Type: "info"})
}

// DecideLoan выносит решение по заявке (админская поверхность).
// Решения сериализованы: второй клик, пока первое решение в полете, - no-op.
func (c *SyncController) DecideLoan(requestID int64, decision string) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.ownedID = requestID
	c.mu.Unlock()

	message, err := c.gateway.DecideLoanRequest(requestID, decision)

	c.mu.Lock()
	defer func() {
		c.inFlight = false
		c.mu.Unlock()
	}()

	if err != nil {
		if c.ownedID == requestID {
			c.ownedID = 0
		}
		c.sink.Notify(errorNotification(err))
		return
	}

	delete(c.cache, requestID)
	if message == "" {
		message = "Loan request " + decision
	}
	c.sink.Notify(Notification{Message: message, Type: "success"})
	if c.refresher != nil {
		c.refresher.Refresh()
	}
}

// OnRealtimeEvent сводит push-событие с локальным состоянием.
// Эхо собственного действия гасится по маркеру, чужие переходы
// обновляют кеш и показываются пользователю ровно один раз.
func (c *SyncController) OnRealtimeEvent(ev Event) {
	if !ev.Valid() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lr := ev.LoanRequest

	if c.ownedID != 0 && lr.ID == c.ownedID {
		// Эхо только что выполненного локального действия: уведомление
		// уже было (или будет) от ответа сервера. Маркер одноразовый.
		c.ownedID = 0
		return
	}

	key := c.key(lr)

	// Эхо собственного create, обогнавшее ответ: id заявки еще неизвестен,
	// узнаем свое действие по книге в полете
	if !c.admin && c.inFlightBook != 0 && lr.BookID == c.inFlightBook && lr.Status == models.LoanStatusPending {
		c.cache[key] = lr
		return
	}

	if cached, ok := c.cache[key]; ok && cached.ID == lr.ID && cached.Terminal() {
		// Терминальные состояния поглощающие
		return
	}

	if c.admin {
		if lr.Terminal() {
			if _, ok := c.cache[key]; !ok {
				// Заявки уже нет в очереди - либо дубль, либо эхо
				// решения, убранного из очереди локально
				return
			}
			delete(c.cache, key)
		} else {
			c.cache[key] = lr
		}
	} else {
		c.cache[key] = lr
	}

	c.sink.Notify(formatTransition(lr, c.admin))
}

// ApplySnapshot перезаписывает кеш авторитетным состоянием с сервера
// без уведомлений: так строится начальное состояние страницы и так же
// работает фоновый опрос - страховка от потерянных событий.
func (c *SyncController) ApplySnapshot(requests []models.LoanRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[int64]models.LoanRequest, len(requests))
	for _, lr := range requests {
		if c.admin && lr.Terminal() {
			continue
		}
		c.cache[c.key(lr)] = lr
	}
}

// Get возвращает закешированную заявку по ключу поверхности
func (c *SyncController) Get(key int64) (models.LoanRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lr, ok := c.cache[key]
	return lr, ok
}

// Snapshot возвращает копию кеша
func (c *SyncController) Snapshot() []models.LoanRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.LoanRequest, 0, len(c.cache))
	for _, lr := range c.cache {
		out = append(out, lr)
	}
	return out
}

// Busy - есть ли мутация в полете (опрос на это время приостанавливается,
// чтобы не затереть оптимистичное обновление)
func (c *SyncController) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// NextPollInterval - частота фонового опроса: раз в секунду, пока есть
// совсем свежая pending-заявка, иначе раз в 30 секунд
func (c *SyncController) NextPollInterval(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, lr := range c.cache {
		if lr.Status == models.LoanStatusPending && now.Sub(lr.CreatedAt) < time.Minute {
			return time.Second
		}
	}
	return 30 * time.Second
}

func errorNotification(err error) Notification {
	message := "Request failed, please try again"
	if apiErr, ok := err.(*APIError); ok && apiErr.Message != "" {
		message = apiErr.Message
	}
	return Notification{Message: message, Type: "error"}
}
