package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"library/models"
	"net/http"
	"sync"
	"time"
)

// APIError - ошибка, о которой сервер сообщил явно ({"error": ...});
// текст показывается пользователю как есть.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// HTTPGateway - реализация ActionGateway поверх REST API сервера.
// Socket id живого websocket-соединения, если он известен, уходит
// в заголовке X-Socket-ID, чтобы сервер не слал вызывающему эхо.
type HTTPGateway struct {
	BaseURL string
	Token   string
	Client  *http.Client

	mu       sync.Mutex
	socketID string
}

func NewHTTPGateway(baseURL, token string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SetSocketID вызывается, когда realtime-канал сообщает свой socket id
func (g *HTTPGateway) SetSocketID(socketID string) {
	g.mu.Lock()
	g.socketID = socketID
	g.mu.Unlock()
}

func (g *HTTPGateway) do(method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, g.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.Token)
	g.mu.Lock()
	if g.socketID != "" {
		req.Header.Set("X-Socket-ID", g.socketID)
	}
	g.mu.Unlock()

	resp, err := g.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &errBody)
		message := errBody.Error
		if message == "" {
			message = errBody.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func (g *HTTPGateway) CreateLoanRequest(bookID int64) (*CreateResult, error) {
	var result CreateResult
	err := g.do("POST", "/api/v1/loans/request", map[string]int64{"book_id": bookID}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (g *HTTPGateway) CancelLoanRequest(requestID int64) (*models.LoanRequest, error) {
	var result struct {
		Message     string              `json:"message"`
		LoanRequest *models.LoanRequest `json:"loan_request"`
	}
	err := g.do("PATCH", fmt.Sprintf("/api/v1/loans/%d/cancel", requestID), nil, &result)
	if err != nil {
		return nil, err
	}
	return result.LoanRequest, nil
}

func (g *HTTPGateway) DecideLoanRequest(requestID int64, decision string) (string, error) {
	var result struct {
		Message string `json:"message"`
	}
	err := g.do("PATCH", fmt.Sprintf("/api/v1/admin/loans/%d/decide", requestID), map[string]string{"decision": decision}, &result)
	if err != nil {
		return "", err
	}
	return result.Message, nil
}

func (g *HTTPGateway) FetchMyRequests() ([]models.LoanRequest, error) {
	var result struct {
		LoanRequests []models.LoanRequest `json:"loan_requests"`
	}
	err := g.do("GET", "/api/v1/loans/mine", nil, &result)
	if err != nil {
		return nil, err
	}
	return result.LoanRequests, nil
}

func (g *HTTPGateway) FetchPendingRequests() ([]models.LoanRequest, error) {
	var result struct {
		LoanRequests []models.LoanRequest `json:"loan_requests"`
	}
	err := g.do("GET", "/api/v1/admin/loans/pending", nil, &result)
	if err != nil {
		return nil, err
	}
	return result.LoanRequests, nil
}

// FetchCatalog возвращает страницу каталога (публичный endpoint)
func (g *HTTPGateway) FetchCatalog(lastID int64, limit int) (*models.CatalogPage, error) {
	var page models.CatalogPage
	err := g.do("GET", fmt.Sprintf("/api/v1/books?last_id=%d&limit=%d", lastID, limit), nil, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}
