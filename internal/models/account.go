package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleUser — роль, которую получает каждый зарегистрированный аккаунт.
const RoleUser = "user"

// Account — учётная запись пользователя.
//
// Login и Email уникальны глобально (обеспечивается хранилищем).
// PasswordHash хранит дайджест в самоописывающем формате (см. пакет hasher).
type Account struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Login        string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

// Profile — публичное представление аккаунта (без хэша пароля и служебных полей).
type Profile struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Login     string
	Email     string
	Role      string
}

// Profile возвращает публичное представление аккаунта.
func (a *Account) Profile() Profile {
	return Profile{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Login:     a.Login,
		Email:     a.Email,
		Role:      a.Role,
	}
}
