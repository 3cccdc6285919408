package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"library/config"
	"library/db"
	"library/models"
	"library/services"

	"github.com/brianvoe/gofakeit/v7"
)

// Наполняет каталог и пользователей тестовыми данными
func main() {
	var configPath string
	var books, members int
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.IntVar(&books, "books", 200, "Number of books to generate")
	flag.IntVar(&members, "members", 50, "Number of member accounts to generate")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := db.ConnectDB(); err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}

	categories := []string{"fiction", "science", "history", "mathematics", "languages", "arts"}

	for i := 0; i < books; i++ {
		totalCopies := gofakeit.Number(1, 8)
		book := models.Book{
			Title:           gofakeit.BookTitle(),
			Author:          gofakeit.BookAuthor(),
			Category:        gofakeit.RandomString(categories),
			ISBN:            gofakeit.Numerify("978-#-###-#####-#"),
			IsEbook:         gofakeit.Bool(),
			TotalCopies:     totalCopies,
			AvailableCopies: totalCopies,
			CreatedAt:       time.Now(),
			UpdatedAt:       time.Now(),
		}
		if book.IsEbook {
			book.TotalCopies = 0
			book.AvailableCopies = 0
		}
		if err := db.ORM.Create(&book).Error; err != nil {
			log.Printf("Failed to create book %d: %v", i, err)
		}
	}
	log.Printf("Created %d books", books)

	for i := 0; i < members; i++ {
		name := gofakeit.FirstName()
		nickname := fmt.Sprintf("%s_%s", strings.ToLower(name), gofakeit.Numerify("######"))
		password := gofakeit.Password(true, false, true, true, false, 10)
		user := models.User{
			Nickname:  nickname,
			FirstName: name,
			LastName:  gofakeit.LastName(),
			Password:  password,
			Role:      models.MEMBER,
		}
		handler := services.UserHandler{Nickname: &nickname, Password: &password, DbModel: &user}
		if _, err := handler.Register(); err != nil {
			log.Printf("Failed to create member %d: %v", i, err)
		}
	}
	log.Printf("Created %d members", members)

	// Один предсказуемый администратор для ручных проверок
	adminNick := "librarian"
	adminPass := "librarian"
	admin := models.User{
		Nickname:  adminNick,
		FirstName: "Head",
		LastName:  "Librarian",
		Password:  adminPass,
		Role:      models.ADMIN,
	}
	handler := services.UserHandler{Nickname: &adminNick, Password: &adminPass, DbModel: &admin}
	if _, err := handler.Register(); err != nil {
		log.Printf("Failed to create admin account: %v", err)
	} else {
		log.Println("Created admin account: librarian/librarian")
	}
}
