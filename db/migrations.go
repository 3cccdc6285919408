package db

import (
	"fmt"

	"gorm.io/gorm"
)

// CreateRoleEnum создает тип ENUM user_role, если он не существует
func CreateRoleEnum(db *gorm.DB) error {
	createEnumSQL := `
	DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'user_role') THEN
			CREATE TYPE user_role AS ENUM ('member', 'admin');
		END IF;
	END
	$$;
	`
	if err := db.Exec(createEnumSQL).Error; err != nil {
		return fmt.Errorf("failed to create enum user_role: %w", err)
	}
	return nil
}

// CreateActiveLoanIndex создает частичный уникальный индекс:
// не больше одной активной (pending/approved) заявки на пару (книга, читатель).
// Проверка в сервисе есть, но гонку двух одновременных create ловит только БД.
func CreateActiveLoanIndex(db *gorm.DB) error {
	createIndexSQL := `
		CREATE UNIQUE INDEX IF NOT EXISTS loan_requests_one_active_idx
		ON loan_requests (book_id, requester_id)
		WHERE status IN ('pending', 'approved');
	`
	if err := db.Exec(createIndexSQL).Error; err != nil {
		return fmt.Errorf("failed to create index loan_requests_one_active_idx: %w", err)
	}
	return nil
}
