package client

import (
	"fmt"
	"library/models"
)

// formatTransition - текст уведомления о чужом переходе, в зависимости
// от поверхности, статуса и того, кто закрыл заявку
func formatTransition(lr models.LoanRequest, admin bool) Notification {
	if admin {
		return formatAdminTransition(lr)
	}

	title := lr.BookTitle
	if title == "" {
		title = fmt.Sprintf("book #%d", lr.BookID)
	}

	switch lr.Status {
	case models.LoanStatusApproved:
		return Notification{
			Message: fmt.Sprintf("Your loan request for %s was approved", title),
			Type:    "success",
		}
	case models.LoanStatusRejected:
		if lr.CanceledByRequester {
			// Отмена из другой вкладки
			return Notification{
				Message: fmt.Sprintf("Your loan request for %s was canceled", title),
				Type:    "info",
			}
		}
		return Notification{
			Message: fmt.Sprintf("Your loan request for %s was declined", title),
			Type:    "info",
		}
	default:
		return Notification{
			Message: fmt.Sprintf("Loan request for %s is pending", title),
			Type:    "info",
		}
	}
}

func formatAdminTransition(lr models.LoanRequest) Notification {
	requester := lr.RequesterName
	if requester == "" {
		requester = fmt.Sprintf("user #%d", lr.RequesterID)
	}

	switch lr.Status {
	case models.LoanStatusPending:
		return Notification{
			Message: fmt.Sprintf("New loan request from %s", requester),
			Type:    "info",
		}
	case models.LoanStatusApproved:
		return Notification{
			Message: fmt.Sprintf("Request #%d was approved by another librarian", lr.ID),
			Type:    "info",
		}
	default:
		if lr.CanceledByRequester {
			return Notification{
				Message: fmt.Sprintf("Request #%d was canceled by %s", lr.ID, requester),
				Type:    "info",
			}
		}
		return Notification{
			Message: fmt.Sprintf("Request #%d was declined by another librarian", lr.ID),
			Type:    "info",
		}
	}
}
