package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType описывает вид операции по балансу.
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypePurchase TransactionType = "PURCHASE"
	TransactionTypeGiftCard TransactionType = "GIFT_CARD"
	TransactionTypeCashback TransactionType = "CASHBACK"
)

// IsValid сообщает, является ли значение допустимым типом операции.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypePurchase, TransactionTypeGiftCard, TransactionTypeCashback:
		return true
	}
	return false
}

// TransactionStatus описывает статус операции по балансу.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusRejected  TransactionStatus = "REJECTED"
)

// IsValid сообщает, является ли значение допустимым статусом операции.
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusRejected:
		return true
	}
	return false
}

// IsTerminal сообщает, что из статуса нет дальнейших переходов.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusRejected
}

// CanTransition проверяет переход статуса для операции указанного типа.
// Переходы разрешены только для пополнений из статуса PENDING.
func CanTransition(t TransactionType, from, to TransactionStatus) bool {
	if t != TransactionTypeDeposit || from != TransactionStatusPending {
		return false
	}
	return to == TransactionStatusCompleted || to == TransactionStatusRejected
}

// Transaction описывает запись истории операций по балансу пользователя.
type Transaction struct {
	ID        int64
	UserID    int64
	Type      TransactionType
	Amount    decimal.Decimal
	Status    TransactionStatus
	Method    string
	Reference string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order описывает покупку пользователя.
type Order struct {
	ID        int64
	UserID    int64
	Total     decimal.Decimal
	Status    OrderStatus
	Items     []OrderItem
	CreatedAt time.Time
}

// OrderItem описывает позицию заказа с ценой на момент покупки.
type OrderItem struct {
	ID           int64
	OrderID      int64
	ProductID    int64
	ProductName  string
	Quantity     int
	Price        decimal.Decimal
	DeliveryData []string
}

// GiftCard описывает подарочную карту, погашаемую ровно один раз.
type GiftCard struct {
	ID        int64
	Code      string
	Amount    decimal.Decimal
	Used      bool
	UsedBy    *int64
	UsedAt    *time.Time
	CreatedAt time.Time
}
