package service

import (
	"eco_mentor_backend/internal/config"
	"eco_mentor_backend/internal/model"
	"eco_mentor_backend/internal/repository"
	"eco_mentor_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthService(db *gorm.DB) *AuthService {
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret-0123456789abcdef", ExpireTime: time.Hour},
	}
	return NewAuthService(repository.NewUserRepository(db), cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	user := &model.User{
		Name:     "新用户",
		Email:    "new@example.com",
		Password: "password123",
		Role:     model.Student,
	}
	require.NoError(t, svc.Register(user))

	// 密码落库前已散列
	var stored model.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.NotEqual(t, "password123", stored.Password)

	token, err := svc.Login("new@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := util.ParseJWT(token, svc.Cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.Student, claims.Role)

	_, err = svc.Login("new@example.com", "wrong-password")
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	first := &model.User{Name: "甲", Email: "dup@example.com", Password: "password123"}
	require.NoError(t, svc.Register(first))

	second := &model.User{Name: "乙", Email: "dup@example.com", Password: "password456"}
	assert.ErrorIs(t, svc.Register(second), util.ErrEmailRegistered)
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	user := &model.User{Name: "停用", Email: "disabled@example.com", Password: "password123"}
	require.NoError(t, svc.Register(user))
	require.NoError(t, db.Model(user).Update("disabled", true).Error)

	_, err := svc.Login("disabled@example.com", "password123")
	assert.Error(t, err)
}
