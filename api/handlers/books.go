package handlers

import (
	"errors"
	"library/models"
	"library/services"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

var bookService = services.NewBookService()

// ListBooks - обработчик каталога с поиском и пагинацией
func ListBooks(c *gin.Context) {
	lastID, _ := strconv.ParseInt(c.Query("last_id"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	page, err := bookService.ListCatalog(c.Request.Context(), lastID, limit, c.Query("search"), c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetBook - обработчик страницы книги
func GetBook(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	book, err := bookService.GetBook(c.Request.Context(), bookID)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, book)
}

// CreateBook - обработчик добавления книги в каталог (админ)
func CreateBook(c *gin.Context) {
	var book models.Book
	if err := c.ShouldBindJSON(&book); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if book.Title == "" || book.Author == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and author are required"})
		return
	}

	if err := bookService.CreateBook(c.Request.Context(), &book); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, book)
}

// ReturnBook - обработчик возврата экземпляра (админ)
func ReturnBook(c *gin.Context) {
	bookID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	if err := bookService.ReturnCopy(c.Request.Context(), bookID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "copy returned"})
}
