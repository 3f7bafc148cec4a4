// Package model содержит доменные сущности маркетплейса цифровых товаров.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleAdmin  Role = "ADMIN"
)

// IsValid сообщает, является ли значение допустимой ролью.
func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleAdmin
}

// User представляет зарегистрированного пользователя магазина и его кошелёк.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	Role         Role
	Balance      decimal.Decimal
	Cashback     decimal.Decimal
	CreatedAt    time.Time
}

// IsAdmin сообщает, обладает ли пользователь правами администратора.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Category описывает раздел каталога.
type Category struct {
	ID   int64
	Name string
	Slug string
}

// Product описывает товар каталога.
// Для товаров с ключами Stock является кэшем количества неиспользованных ключей.
type Product struct {
	ID          int64
	CategoryID  *int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	HasKeys     bool
	Active      bool
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductKey содержит одноразовые учётные данные, выдаваемые при продаже товара.
type ProductKey struct {
	ID        int64
	ProductID int64
	Value     string
	IsUsed    bool
	UsedAt    *time.Time
	OrderID   *int64
	CreatedAt time.Time
}

// PaymentMethod описывает способ оплаты, доступный для пополнения баланса.
type PaymentMethod struct {
	ID           int64
	Code         string
	Name         string
	Instructions string
	Active       bool
}

// Balance содержит текущий баланс пользователя и накопленный кешбэк.
type Balance struct {
	Current  decimal.Decimal
	Cashback decimal.Decimal
}
