package models

import "time"

// Book - книга в каталоге библиотеки
type Book struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title           string    `gorm:"size:255;index" json:"title"`
	Author          string    `gorm:"size:255;index" json:"author"`
	Category        string    `gorm:"size:100;index" json:"category"`
	ISBN            string    `gorm:"size:20;uniqueIndex" json:"isbn"`
	IsEbook         bool      `json:"is_ebook"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// CatalogPage - ответ API для страницы каталога
type CatalogPage struct {
	Books   []Book `json:"books"`
	HasMore bool   `json:"has_more"`
	LastID  int64  `json:"last_id,omitempty"`
}
