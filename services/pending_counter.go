package services

import (
	"context"
	"library/db"
	"library/models"
	"strconv"
	"time"
)

const (
	PENDING_COUNT_KEY = "loan_requests:pending_count"
	PENDING_COUNT_TTL = 60 * time.Second
)

// GetPendingCount возвращает размер очереди pending-заявок.
// Значение кешируется в Redis - бейдж на админской панели опрашивает
// его раз в секунду и ходить каждый раз в Postgres незачем.
func GetPendingCount(ctx context.Context) (int64, error) {
	if RedisClient != nil {
		cached, err := RedisClient.Get(ctx, PENDING_COUNT_KEY).Result()
		if err == nil {
			if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return count, nil
			}
		}
	}

	var count int64
	err := db.GetReadOnlyDB(ctx).
		Model(&models.LoanRequest{}).
		Where("status = ?", models.LoanStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	if RedisClient != nil {
		RedisClient.Set(ctx, PENDING_COUNT_KEY, count, PENDING_COUNT_TTL)
	}
	return count, nil
}

// InvalidatePendingCount сбрасывает кеш после перехода заявки
func InvalidatePendingCount(ctx context.Context) {
	if RedisClient != nil {
		RedisClient.Del(ctx, PENDING_COUNT_KEY)
	}
}
