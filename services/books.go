package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"library/db"
	"library/models"
	"time"

	"gorm.io/gorm"
)

const (
	CATALOG_CACHE_TTL    = 5 * time.Minute
	CATALOG_KEY_PREFIX   = "catalog_page:"
	MAX_CATALOG_PAGESIZE = 100
)

type BookService struct{}

func NewBookService() *BookService {
	return &BookService{}
}

// ListCatalog возвращает страницу каталога с keyset-пагинацией.
// Незафильтрованные страницы кешируются в Redis, поиск идет мимо кеша.
func (bs *BookService) ListCatalog(ctx context.Context, lastID int64, limit int, search, category string) (*models.CatalogPage, error) {
	if limit <= 0 || limit > MAX_CATALOG_PAGESIZE {
		limit = 20
	}

	filtered := search != "" || category != ""
	cacheKey := fmt.Sprintf("%s%d:%d", CATALOG_KEY_PREFIX, lastID, limit)

	if !filtered && RedisClient != nil {
		cached, err := RedisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var page models.CatalogPage
			if err := json.Unmarshal([]byte(cached), &page); err == nil {
				return &page, nil
			}
		}
	}

	query := db.GetReadOnlyDB(ctx).Model(&models.Book{})
	if lastID > 0 {
		query = query.Where("id > ?", lastID)
	}
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title ILIKE ? OR author ILIKE ? OR isbn = ?", pattern, pattern, search)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var books []models.Book
	if err := query.Order("id ASC").Limit(limit).Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	page := &models.CatalogPage{
		Books:   books,
		HasMore: len(books) == limit,
	}
	if len(books) > 0 {
		page.LastID = books[len(books)-1].ID
	}

	if !filtered && RedisClient != nil {
		if data, err := json.Marshal(page); err == nil {
			RedisClient.Set(ctx, cacheKey, data, CATALOG_CACHE_TTL)
		}
	}
	return page, nil
}

// GetBook возвращает книгу по id
func (bs *BookService) GetBook(ctx context.Context, bookID int64) (*models.Book, error) {
	var book models.Book
	err := db.GetReadOnlyDB(ctx).First(&book, bookID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to load book: %w", err)
	}
	return &book, nil
}

// CreateBook добавляет книгу в каталог (админ)
func (bs *BookService) CreateBook(ctx context.Context, book *models.Book) error {
	if book.TotalCopies < 0 {
		return fmt.Errorf("total copies cannot be negative")
	}
	if book.AvailableCopies == 0 {
		book.AvailableCopies = book.TotalCopies
	}
	book.CreatedAt = time.Now()
	book.UpdatedAt = time.Now()
	if err := db.GetWriteDB(ctx).Create(book).Error; err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	bs.invalidateCatalogCache(ctx)
	return nil
}

// ReturnCopy возвращает экземпляр бумажной книги на полку
func (bs *BookService) ReturnCopy(ctx context.Context, bookID int64) error {
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			return err
		}
		if book.IsEbook || book.AvailableCopies >= book.TotalCopies {
			return nil
		}
		book.AvailableCopies++
		return tx.Save(&book).Error
	})
	if err != nil {
		return fmt.Errorf("failed to return copy: %w", err)
	}
	bs.invalidateCatalogCache(ctx)
	return nil
}

func (bs *BookService) invalidateCatalogCache(ctx context.Context) {
	if RedisClient == nil {
		return
	}
	iter := RedisClient.Scan(ctx, 0, CATALOG_KEY_PREFIX+"*", 100).Iterator()
	for iter.Next(ctx) {
		RedisClient.Del(ctx, iter.Val())
	}
}
