package models

import "time"

// Статусы заявки на выдачу книги.
// "rejected" означает и отказ библиотекаря, и отмену самим читателем -
// различаются по флагу CanceledByRequester.
const (
	LoanStatusPending  = "pending"
	LoanStatusApproved = "approved"
	LoanStatusRejected = "rejected"
)

// LoanRequest - заявка читателя на выдачу книги.
// Активной (pending или approved) может быть только одна заявка
// на пару (книга, читатель) - следит за этим сервер.
type LoanRequest struct {
	ID                  int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	BookID              int64      `gorm:"index:loan_book_requester_idx" json:"book_id"`
	RequesterID         int64      `gorm:"index:loan_book_requester_idx" json:"requester_id"`
	Status              string     `gorm:"size:20;index" json:"status"`
	CanceledByRequester bool       `json:"canceled_by_requester"`
	ApproverID          *int64     `json:"approver_id"`
	DecidedAt           *time.Time `json:"decided_at"`
	CreatedAt           time.Time  `json:"created_at"`

	// Денормализовано для админской очереди, своей колонки не имеет -
	// заполняется join'ом в ListPending
	RequesterName string `gorm:"->;-:migration" json:"requester_name,omitempty"`
	BookTitle     string `gorm:"->;-:migration" json:"book_title,omitempty"`
}

func (LoanRequest) TableName() string {
	return "loan_requests"
}

// Active - заявка ещё не дошла до терминального состояния.
func (lr *LoanRequest) Active() bool {
	return lr.Status == LoanStatusPending || lr.Status == LoanStatusApproved
}

// Terminal - заявка решена, дальнейшие изменения статуса запрещены.
func (lr *LoanRequest) Terminal() bool {
	return lr.Status == LoanStatusApproved || lr.Status == LoanStatusRejected
}
