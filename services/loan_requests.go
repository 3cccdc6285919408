package services

import (
	"context"
	"errors"
	"fmt"
	"library/db"
	"library/models"
	"log"
	"time"

	"gorm.io/gorm"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrRequestNotFound = errors.New("loan request not found")
	ErrNotRequester    = errors.New("loan request belongs to another user")
	ErrNotPending      = errors.New("loan request is not pending")
	ErrNoCopies        = errors.New("no available copies")
	ErrBadDecision     = errors.New("decision must be approved or rejected")
)

type LoanRequestService struct{}

func NewLoanRequestService() *LoanRequestService {
	return &LoanRequestService{}
}

// Create создает заявку на выдачу книги.
// Если активная заявка на эту книгу уже есть, возвращает ее
// с флагом alreadyPending=true - клиент так восстанавливает кеш
// после пропущенного события.
func (ls *LoanRequestService) Create(ctx context.Context, requesterID, bookID int64, originSocketID string) (*models.LoanRequest, bool, error) {
	var book models.Book
	err := db.GetReadOnlyDB(ctx).First(&book, bookID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrBookNotFound
		}
		return nil, false, fmt.Errorf("error checking book: %w", err)
	}

	// Проверяем, что активной заявки еще нет
	var existing models.LoanRequest
	err = db.GetReadOnlyDB(ctx).Where(
		"book_id = ? AND requester_id = ? AND status IN (?)",
		bookID, requesterID, []string{models.LoanStatusPending, models.LoanStatusApproved},
	).First(&existing).Error
	if err == nil {
		return &existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("error checking existing request: %w", err)
	}

	request := &models.LoanRequest{
		BookID:      bookID,
		RequesterID: requesterID,
		Status:      models.LoanStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := db.GetWriteDB(ctx).Create(request).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create loan request: %w", err)
	}

	request.BookTitle = book.Title
	ls.publishTransition(LoanEventCreated, *request, originSocketID)
	return request, false, nil
}

// Cancel отменяет собственную pending-заявку читателя.
// Статус становится rejected с флагом canceled_by_requester.
func (ls *LoanRequestService) Cancel(ctx context.Context, requesterID, requestID int64, originSocketID string) (*models.LoanRequest, error) {
	var request models.LoanRequest
	err := db.GetWriteDB(ctx).First(&request, requestID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("error loading loan request: %w", err)
	}
	if request.RequesterID != requesterID {
		return nil, ErrNotRequester
	}
	if request.Status != models.LoanStatusPending {
		return nil, ErrNotPending
	}

	now := time.Now()
	request.Status = models.LoanStatusRejected
	request.CanceledByRequester = true
	request.DecidedAt = &now

	if err := db.GetWriteDB(ctx).Save(&request).Error; err != nil {
		return nil, fmt.Errorf("failed to cancel loan request: %w", err)
	}

	ls.publishTransition(LoanEventUpdated, request, originSocketID)
	return &request, nil
}

// Decide выносит решение библиотекаря по pending-заявке.
// При одобрении бумажной книги списывает доступный экземпляр.
func (ls *LoanRequestService) Decide(ctx context.Context, approverID, requestID int64, decision string, originSocketID string) (*models.LoanRequest, error) {
	if decision != models.LoanStatusApproved && decision != models.LoanStatusRejected {
		return nil, ErrBadDecision
	}

	var request models.LoanRequest
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("error loading loan request: %w", err)
		}
		if request.Status != models.LoanStatusPending {
			return ErrNotPending
		}

		if decision == models.LoanStatusApproved {
			var book models.Book
			if err := tx.First(&book, request.BookID).Error; err != nil {
				return fmt.Errorf("error loading book: %w", err)
			}
			// Электронные книги экземпляров не расходуют
			if !book.IsEbook {
				if book.AvailableCopies <= 0 {
					return ErrNoCopies
				}
				book.AvailableCopies--
				if err := tx.Save(&book).Error; err != nil {
					return fmt.Errorf("failed to update book copies: %w", err)
				}
			}
		}

		now := time.Now()
		request.Status = decision
		request.ApproverID = &approverID
		request.DecidedAt = &now
		return tx.Save(&request).Error
	})
	if err != nil {
		return nil, err
	}

	ls.publishTransition(LoanEventUpdated, request, originSocketID)
	return &request, nil
}

// ListPending возвращает очередь pending-заявок для админской панели
func (ls *LoanRequestService) ListPending(ctx context.Context) ([]models.LoanRequest, error) {
	var requests []models.LoanRequest
	err := db.GetReadOnlyDB(ctx).
		Table("loan_requests lr").
		Joins("JOIN users u ON u.id = lr.requester_id").
		Joins("JOIN books b ON b.id = lr.book_id").
		Where("lr.status = ?", models.LoanStatusPending).
		Select("lr.*, u.first_name || ' ' || u.last_name AS requester_name, b.title AS book_title").
		Order("lr.created_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	return requests, nil
}

// ListForRequester возвращает заявки читателя, новые первыми
func (ls *LoanRequestService) ListForRequester(ctx context.Context, requesterID int64) ([]models.LoanRequest, error) {
	var requests []models.LoanRequest
	err := db.GetReadOnlyDB(ctx).
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list loan requests: %w", err)
	}
	return requests, nil
}

// publishTransition публикует переход в exchange и сбрасывает кешированный
// счетчик очереди. Рассылка асинхронная: ответ HTTP не ждет брокера.
func (ls *LoanRequestService) publishTransition(kind string, request models.LoanRequest, originSocketID string) {
	InvalidatePendingCount(context.Background())
	event := LoanEvent{Kind: kind, LoanRequest: request, OriginSocketID: originSocketID}
	go func() {
		if err := PublishLoanEvent(context.Background(), event); err != nil {
			log.Printf("Failed to publish loan event for request %d: %v", request.ID, err)
		}
	}()
}
