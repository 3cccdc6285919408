package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"library/api/handlers"
	"library/api/routes"
	"library/db"
	"library/models"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB() error {
	// Тестовая база SQLite в памяти
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		return err
	}

	err = database.AutoMigrate(&models.User{}, &models.UserTokens{}, &models.Book{}, &models.LoanRequest{})
	if err != nil {
		return err
	}

	db.ORM = database
	return nil
}

func setupRouter() *gin.Engine {
	if err := setupTestDB(); err != nil {
		panic(err)
	}

	r := gin.Default()
	routes.PublicApi(r)
	return r
}

func seedUser(nickname string, role models.Role) int64 {
	user := models.User{Nickname: nickname, FirstName: "Test", LastName: "User", Password: "x", Role: role}
	if err := db.ORM.Create(&user).Error; err != nil {
		panic(err)
	}
	return user.ID
}

func seedBook(title string, copies int) int64 {
	book := models.Book{Title: title, Author: "Author", ISBN: "isbn-" + title, TotalCopies: copies, AvailableCopies: copies}
	if err := db.ORM.Create(&book).Error; err != nil {
		panic(err)
	}
	return book.ID
}

func doJSON(r *gin.Engine, method, url string, userID int64, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-User-ID", fmt.Sprintf("%d", userID))
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCreateLoanRequestEndpoint(t *testing.T) {
	r := setupRouter()
	userID := seedUser("reader1", models.MEMBER)
	bookID := seedBook("Go in Action", 1)

	w := doJSON(r, "POST", "/api/v1/loans/request", userID, map[string]int64{"book_id": bookID})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		LoanRequest    models.LoanRequest `json:"loan_request"`
		AlreadyPending bool               `json:"already_pending"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.LoanRequest.Status != models.LoanStatusPending {
		t.Errorf("expected pending, got %s", resp.LoanRequest.Status)
	}
	if resp.AlreadyPending {
		t.Error("first request must not be already pending")
	}

	// Повторная подача - флаг already_pending
	w2 := doJSON(r, "POST", "/api/v1/loans/request", userID, map[string]int64{"book_id": bookID})
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w2.Code)
	}
	_ = json.Unmarshal(w2.Body.Bytes(), &resp)
	if !resp.AlreadyPending {
		t.Error("second request must report already_pending")
	}
}

func TestCreateLoanRequestUnknownBook(t *testing.T) {
	r := setupRouter()
	userID := seedUser("reader1", models.MEMBER)

	w := doJSON(r, "POST", "/api/v1/loans/request", userID, map[string]int64{"book_id": 42})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCreateLoanRequestUnauthorized(t *testing.T) {
	r := setupRouter()
	seedBook("Go in Action", 1)

	w := doJSON(r, "POST", "/api/v1/loans/request", 0, map[string]int64{"book_id": 1})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCancelLoanRequestEndpoint(t *testing.T) {
	r := setupRouter()
	userID := seedUser("reader1", models.MEMBER)
	otherID := seedUser("reader2", models.MEMBER)
	bookID := seedBook("Clean Code", 1)

	w := doJSON(r, "POST", "/api/v1/loans/request", userID, map[string]int64{"book_id": bookID})
	var created struct {
		LoanRequest models.LoanRequest `json:"loan_request"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	// Чужая заявка
	w2 := doJSON(r, "PATCH", fmt.Sprintf("/api/v1/loans/%d/cancel", created.LoanRequest.ID), otherID, nil)
	if w2.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w2.Code)
	}

	w3 := doJSON(r, "PATCH", fmt.Sprintf("/api/v1/loans/%d/cancel", created.LoanRequest.ID), userID, nil)
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
	var canceled struct {
		LoanRequest models.LoanRequest `json:"loan_request"`
	}
	_ = json.Unmarshal(w3.Body.Bytes(), &canceled)
	if canceled.LoanRequest.Status != models.LoanStatusRejected || !canceled.LoanRequest.CanceledByRequester {
		t.Errorf("expected rejected+canceled, got %+v", canceled.LoanRequest)
	}

	// Терминальная заявка - конфликт
	w4 := doJSON(r, "PATCH", fmt.Sprintf("/api/v1/loans/%d/cancel", created.LoanRequest.ID), userID, nil)
	if w4.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w4.Code)
	}
}

func TestDecideLoanRequestEndpoint(t *testing.T) {
	r := setupRouter()
	userID := seedUser("reader1", models.MEMBER)
	adminID := seedUser("librarian", models.ADMIN)
	bookID := seedBook("SICP", 1)

	w := doJSON(r, "POST", "/api/v1/loans/request", userID, map[string]int64{"book_id": bookID})
	var created struct {
		LoanRequest models.LoanRequest `json:"loan_request"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	// Читателю решение недоступно
	w2 := doJSON(r, "PATCH", fmt.Sprintf("/api/v1/admin/loans/%d/decide", created.LoanRequest.ID), userID, map[string]string{"decision": "approved"})
	if w2.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w2.Code)
	}

	w3 := doJSON(r, "PATCH", fmt.Sprintf("/api/v1/admin/loans/%d/decide", created.LoanRequest.ID), adminID, map[string]string{"decision": "approved"})
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w3.Code, w3.Body.String())
	}

	// Некорректное решение
	w4 := doJSON(r, "PATCH", fmt.Sprintf("/api/v1/admin/loans/%d/decide", created.LoanRequest.ID), adminID, map[string]string{"decision": "maybe"})
	if w4.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w4.Code)
	}
}

func TestPendingQueueEndpoint(t *testing.T) {
	r := setupRouter()
	userID := seedUser("reader1", models.MEMBER)
	adminID := seedUser("librarian", models.ADMIN)
	bookID := seedBook("First", 1)

	doJSON(r, "POST", "/api/v1/loans/request", userID, map[string]int64{"book_id": bookID})

	w := doJSON(r, "GET", "/api/v1/admin/loans/pending", adminID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		LoanRequests []models.LoanRequest `json:"loan_requests"`
		PendingCount int64                `json:"pending_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.LoanRequests) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(resp.LoanRequests))
	}
	if resp.PendingCount != 1 {
		t.Errorf("expected pending_count 1, got %d", resp.PendingCount)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	r := setupRouter()
	bookID := seedBook("Go in Action", 2)
	seedBook("Clean Code", 1)

	w := doJSON(r, "GET", "/api/v1/books?limit=10", 0, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var page models.CatalogPage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(page.Books) != 2 {
		t.Errorf("expected 2 books, got %d", len(page.Books))
	}

	w2 := doJSON(r, "GET", fmt.Sprintf("/api/v1/books/%d", bookID), 0, nil)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w2.Code)
	}

	w3 := doJSON(r, "GET", "/api/v1/books/9000", 0, nil)
	if w3.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w3.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "POST", "/api/v1/auth/register", 0, handlers.RegisterRequest{
		Nickname: "reader1", Password: "secret123", Firstname: "Ivan", Lastname: "Petrov",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w2 := doJSON(r, "POST", "/api/v1/auth/login", 0, handlers.LoginRequest{Nickname: "reader1", Password: "secret123"})
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &login); err != nil || login.Token == "" {
		t.Fatalf("expected session token, got %q (%v)", login.Token, err)
	}

	// Токен работает в авторизованных ручках
	bookID := seedBook("Go in Action", 1)
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]int64{"book_id": bookID})
	w3 := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/loans/request", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+login.Token)
	r.ServeHTTP(w3, req)
	if w3.Code != http.StatusOK {
		t.Errorf("expected 200 with session token, got %d: %s", w3.Code, w3.Body.String())
	}

	w4 := doJSON(r, "POST", "/api/v1/auth/login", 0, handlers.LoginRequest{Nickname: "reader1", Password: "wrong"})
	if w4.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", w4.Code)
	}
}
