package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
)

type userResponse struct {
	ID        int64           `json:"id"`
	Login     string          `json:"login"`
	Role      model.Role      `json:"role"`
	Balance   decimal.Decimal `json:"balance"`
	Cashback  decimal.Decimal `json:"cashback"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Login:     u.Login,
		Role:      u.Role,
		Balance:   u.Balance,
		Cashback:  u.Cashback,
		CreatedAt: u.CreatedAt,
	}
}

type productResponse struct {
	ID          int64           `json:"id"`
	CategoryID  *int64          `json:"categoryId,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	HasKeys     bool            `json:"hasKeys"`
	Active      bool            `json:"active"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		HasKeys:     p.HasKeys,
		Active:      p.Active,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type transactionResponse struct {
	ID        int64                   `json:"id"`
	UserID    int64                   `json:"userId"`
	Type      model.TransactionType   `json:"type"`
	Amount    decimal.Decimal         `json:"amount"`
	Status    model.TransactionStatus `json:"status"`
	Method    string                  `json:"method,omitempty"`
	Reference string                  `json:"reference,omitempty"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

func toTransactionResponse(t model.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		UserID:    t.UserID,
		Type:      t.Type,
		Amount:    t.Amount,
		Status:    t.Status,
		Method:    t.Method,
		Reference: t.Reference,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toTransactionResponses(txs []model.Transaction) []transactionResponse {
	resp := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, toTransactionResponse(t))
	}
	return resp
}

type orderItemResponse struct {
	ProductID    int64           `json:"productId"`
	ProductName  string          `json:"productName"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	DeliveryData []string        `json:"deliveryData,omitempty"`
}

type orderResponse struct {
	ID        int64               `json:"id"`
	Total     decimal.Decimal     `json:"total"`
	Status    model.OrderStatus   `json:"status"`
	Items     []orderItemResponse `json:"items,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

func toOrderResponse(o model.Order) orderResponse {
	resp := orderResponse{
		ID:        o.ID,
		Total:     o.Total,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Quantity:     it.Quantity,
			Price:        it.Price,
			DeliveryData: it.DeliveryData,
		})
	}
	return resp
}

type giftCardResponse struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Amount    decimal.Decimal `json:"amount"`
	Used      bool            `json:"used"`
	UsedBy    *int64          `json:"usedBy,omitempty"`
	UsedAt    *time.Time      `json:"usedAt,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toGiftCardResponse(g model.GiftCard) giftCardResponse {
	return giftCardResponse{
		ID:        g.ID,
		Code:      g.Code,
		Amount:    g.Amount,
		Used:      g.Used,
		UsedBy:    g.UsedBy,
		UsedAt:    g.UsedAt,
		CreatedAt: g.CreatedAt,
	}
}

type productKeyResponse struct {
	ID        int64      `json:"id"`
	Value     string     `json:"value"`
	IsUsed    bool       `json:"isUsed"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	OrderID   *int64     `json:"orderId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type paymentMethodResponse struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Instructions string `json:"instructions,omitempty"`
	Active       bool   `json:"active"`
}

func toPaymentMethodResponse(m model.PaymentMethod) paymentMethodResponse {
	return paymentMethodResponse{
		ID:           m.ID,
		Code:         m.Code,
		Name:         m.Name,
		Instructions: m.Instructions,
		Active:       m.Active,
	}
}
