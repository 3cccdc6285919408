package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"library/db"
	"library/models"
	"strings"

	"golang.org/x/crypto/argon2"
)

type UserHandler struct {
	Nickname *string
	Password *string
	Token    *string

	DbModel *models.User
}

func (h *UserHandler) Register() (userId *int64, err error) {
	if h.DbModel == nil || h.DbModel.Password == "" {
		return nil, errors.New("password is empty")
	}

	// Проверяем, существует ли пользователь с таким никнеймом
	var alreadyExists int64
	err = db.ORM.Model(&models.User{}).Where("nickname = ?", *h.Nickname).Count(&alreadyExists).Error
	if err != nil {
		return nil, err
	}
	if alreadyExists > 0 {
		return nil, errors.New("user already exists")
	}

	salt := make([]byte, 16)
	if _, err = rand.Read(salt); err != nil {
		return nil, err
	}

	hash := argon2.IDKey([]byte(h.DbModel.Password), salt, 1, 64*1024, 4, 32)
	passwordHash := hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash)
	h.DbModel.Password = passwordHash
	if h.DbModel.Role == "" {
		h.DbModel.Role = models.MEMBER
	}

	trx := db.ORM.Model(&models.User{}).Create(&h.DbModel)
	if trx.Error != nil {
		return nil, trx.Error
	}
	return &h.DbModel.ID, nil
}

func (h *UserHandler) Login() (token string, err error) {
	var storedUser models.User
	err = db.ORM.Model(&models.User{}).Where("nickname = ?", *h.Nickname).First(&storedUser).Error
	if err != nil {
		return "", errors.New("invalid nickname")
	}
	// Проверяем пароль
	parts := strings.Split(storedUser.Password, "$")
	if len(parts) != 2 {
		return "", errors.New("invalid password format")
	}
	storedSalt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(*h.Password), storedSalt, 1, 64*1024, 4, 32)
	if hex.EncodeToString(hash) != parts[1] {
		return "", errors.New("invalid password")
	}

	h.DbModel = &storedUser

	// Удаляем старые токены (если они есть)
	_ = h.Logout()
	// Генерируем новый токен
	tokenBytes := make([]byte, 32)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token = hex.EncodeToString(tokenBytes)

	err = db.ORM.Create(&models.UserTokens{
		UserID: storedUser.ID,
		Token:  token,
	}).Error
	if err != nil {
		return "", err
	}
	return token, nil
}

func (h *UserHandler) Logout() (err error) {
	if h.DbModel == nil {
		return errors.New("user not found")
	}
	return db.ORM.Where("user_id = ?", h.DbModel.ID).Delete(&models.UserTokens{}).Error
}

// UserByID возвращает пользователя по id
func UserByID(userID int64) (*models.User, error) {
	var user models.User
	if err := db.ORM.First(&user, userID).Error; err != nil {
		return nil, errors.New("user not found")
	}
	return &user, nil
}

// UserByToken возвращает пользователя по токену сессии
func UserByToken(token string) (*models.User, error) {
	if token == "" {
		return nil, errors.New("token is empty")
	}
	var userToken models.UserTokens
	err := db.ORM.Model(&models.UserTokens{}).Where("token = ?", token).First(&userToken).Error
	if err != nil {
		return nil, errors.New("user not found")
	}
	var user models.User
	if err := db.ORM.First(&user, userToken.UserID).Error; err != nil {
		return nil, errors.New("user not found")
	}
	return &user, nil
}
