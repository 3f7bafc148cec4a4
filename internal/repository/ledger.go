package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
)

// PaymentMethodBalance обозначает метод, которым оплачиваются покупки с баланса.
const PaymentMethodBalance = "BALANCE"

var hundred = decimal.NewFromInt(100)

// PurchaseLine описывает позицию корзины.
type PurchaseLine struct {
	ProductID int64
	Quantity  int
}

// PurchaseInput описывает оформление заказа с оплатой с баланса.
type PurchaseInput struct {
	UserID          int64
	Lines           []PurchaseLine
	ExpectedTotal   decimal.Decimal
	CashbackPercent decimal.Decimal
}

// PurchaseResult содержит созданный заказ и баланс после списания.
type PurchaseResult struct {
	Order      *model.Order
	NewBalance decimal.Decimal
	Cashback   decimal.Decimal
}

type lockedProduct struct {
	id      int64
	name    string
	price   decimal.Decimal
	stock   int
	hasKeys bool
	active  bool
}

// Purchase атомарно списывает баланс, создаёт заказ с позициями, выдаёт ключи
// и записывает операцию PURCHASE. Строка пользователя блокируется до конца транзакции,
// поэтому баланс перечитывается и проверяется под блокировкой.
func (r *PostgresRepository) Purchase(ctx context.Context, in PurchaseInput) (*PurchaseResult, error) {
	lines := mergeLines(in.Lines)
	if len(lines) == 0 {
		return nil, fmt.Errorf("purchase without lines")
	}

	var res *PurchaseResult

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var balance decimal.Decimal
		err := tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, in.UserID).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock user for update: %w", err)
		}

		products, err := lockProducts(ctx, tx, lines)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, l := range lines {
			p, ok := products[l.ProductID]
			if !ok || !p.active {
				return fmt.Errorf("%w: %d", ErrProductNotFound, l.ProductID)
			}
			if p.stock < l.Quantity {
				return fmt.Errorf("%w: product %d", ErrInsufficientStock, l.ProductID)
			}
			total = total.Add(p.price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}

		if !total.Equal(in.ExpectedTotal) {
			return ErrTotalMismatch
		}
		if balance.LessThan(total) {
			return ErrInsufficientBalance
		}

		order := &model.Order{
			UserID: in.UserID,
			Total:  total,
			Status: model.OrderStatusCompleted,
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO orders (user_id, total, status) VALUES ($1, $2, $3) RETURNING id, created_at`,
			in.UserID, total, string(order.Status),
		).Scan(&order.ID, &order.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, l := range lines {
			p := products[l.ProductID]
			item, err := insertOrderItem(ctx, tx, order.ID, p, l.Quantity)
			if err != nil {
				return err
			}
			order.Items = append(order.Items, *item)
		}

		cashback := decimal.Zero
		if in.CashbackPercent.IsPositive() {
			cashback = total.Mul(in.CashbackPercent).Div(hundred).RoundFloor(3)
		}

		var newBalance decimal.Decimal
		err = tx.QueryRow(ctx,
			`UPDATE users SET balance = balance - $2, cashback = cashback + $3 WHERE id = $1 RETURNING balance`,
			in.UserID, total, cashback,
		).Scan(&newBalance)
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}

		reference := strconv.FormatInt(order.ID, 10)
		if _, err := insertTransaction(ctx, tx, in.UserID, model.TransactionTypePurchase, total,
			model.TransactionStatusCompleted, PaymentMethodBalance, reference); err != nil {
			return err
		}
		if cashback.IsPositive() {
			if _, err := insertTransaction(ctx, tx, in.UserID, model.TransactionTypeCashback, cashback,
				model.TransactionStatusCompleted, PaymentMethodBalance, reference); err != nil {
				return err
			}
		}

		res = &PurchaseResult{Order: order, NewBalance: newBalance, Cashback: cashback}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// mergeLines объединяет повторяющиеся товары и сортирует позиции по идентификатору,
// чтобы параллельные покупки блокировали строки товаров в одном порядке.
func mergeLines(lines []PurchaseLine) []PurchaseLine {
	qty := make(map[int64]int, len(lines))
	for _, l := range lines {
		qty[l.ProductID] += l.Quantity
	}

	res := make([]PurchaseLine, 0, len(qty))
	for id, q := range qty {
		res = append(res, PurchaseLine{ProductID: id, Quantity: q})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ProductID < res[j].ProductID })
	return res
}

func lockProducts(ctx context.Context, tx pgx.Tx, lines []PurchaseLine) (map[int64]lockedProduct, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	rows, err := tx.Query(ctx,
		`SELECT id, name, price, stock, has_keys, active
		 FROM products
		 WHERE id = ANY($1)
		 ORDER BY id
		 FOR UPDATE`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	res := make(map[int64]lockedProduct, len(ids))
	for rows.Next() {
		var p lockedProduct
		if err := rows.Scan(&p.id, &p.name, &p.price, &p.stock, &p.hasKeys, &p.active); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res[p.id] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func insertOrderItem(ctx context.Context, tx pgx.Tx, orderID int64, p lockedProduct, quantity int) (*model.OrderItem, error) {
	delivery := []string{}

	if p.hasKeys {
		rows, err := tx.Query(ctx,
			`UPDATE product_keys
			 SET is_used = TRUE, used_at = now(), order_id = $1
			 WHERE id IN (
			     SELECT id FROM product_keys
			     WHERE product_id = $2 AND NOT is_used
			     ORDER BY id
			     LIMIT $3
			     FOR UPDATE SKIP LOCKED
			 )
			 RETURNING value`,
			orderID, p.id, quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("claim product keys: %w", err)
		}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan product key: %w", err)
			}
			delivery = append(delivery, v)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("rows error: %w", err)
		}

		if len(delivery) < quantity {
			return nil, fmt.Errorf("%w: product %d has %d keys", ErrInsufficientStock, p.id, len(delivery))
		}

		if _, err := recountStock(ctx, tx, p.id); err != nil {
			return nil, err
		}
	} else {
		_, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1`,
			p.id, quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
	}

	item := &model.OrderItem{
		OrderID:      orderID,
		ProductID:    p.id,
		ProductName:  p.name,
		Quantity:     quantity,
		Price:        p.price,
		DeliveryData: delivery,
	}
	err := tx.QueryRow(ctx,
		`INSERT INTO order_items (order_id, product_id, product_name, quantity, price, delivery_data)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		orderID, p.id, p.name, quantity, p.price, delivery,
	).Scan(&item.ID)
	if err != nil {
		return nil, fmt.Errorf("insert order item: %w", err)
	}

	return item, nil
}

const transactionColumns = `id, user_id, type, amount, status, method, reference, created_at, updated_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		t      model.Transaction
		typ    string
		status string
	)
	err := row.Scan(&t.ID, &t.UserID, &typ, &t.Amount, &status, &t.Method, &t.Reference, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Type = model.TransactionType(typ)
	t.Status = model.TransactionStatus(status)
	return &t, nil
}

func insertTransaction(ctx context.Context, q pgx.Tx, userID int64, typ model.TransactionType, amount decimal.Decimal,
	status model.TransactionStatus, method, reference string) (*model.Transaction, error) {
	t, err := scanTransaction(q.QueryRow(ctx,
		`INSERT INTO transactions (user_id, type, amount, status, method, reference)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+transactionColumns,
		userID, string(typ), amount, string(status), method, reference,
	))
	if err != nil {
		return nil, fmt.Errorf("insert %s transaction: %w", typ, err)
	}
	return t, nil
}

// CreateDeposit создаёт заявку на пополнение в статусе PENDING. Баланс не меняется.
func (r *PostgresRepository) CreateDeposit(ctx context.Context, userID int64, amount decimal.Decimal, method, reference string) (*model.Transaction, error) {
	var res *model.Transaction
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		t, err := insertTransaction(ctx, tx, userID, model.TransactionTypeDeposit, amount,
			model.TransactionStatusPending, method, reference)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrUserNotFound
			}
			return err
		}
		res = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DepositDecision содержит решение администратора по заявке на пополнение.
type DepositDecision struct {
	TransactionID int64
	UserID        int64
	Amount        decimal.Decimal
	Approve       bool
}

// ResolveDeposit переводит заявку из PENDING в COMPLETED (с зачислением суммы на баланс)
// или в REJECTED. Строка заявки блокируется, поэтому повторное решение получает
// ErrTransactionNotPending и не меняет баланс.
func (r *PostgresRepository) ResolveDeposit(ctx context.Context, d DepositDecision) (*model.Transaction, decimal.Decimal, error) {
	var (
		res        *model.Transaction
		newBalance decimal.Decimal
	)

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		t, err := scanTransaction(tx.QueryRow(ctx,
			`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`,
			d.TransactionID,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTransactionNotFound
			}
			return fmt.Errorf("lock transaction: %w", err)
		}

		if t.Type != model.TransactionTypeDeposit || t.UserID != d.UserID || !t.Amount.Equal(d.Amount) {
			return ErrTransactionMismatch
		}

		next := model.TransactionStatusRejected
		if d.Approve {
			next = model.TransactionStatusCompleted
		}
		if !model.CanTransition(t.Type, t.Status, next) {
			return ErrTransactionNotPending
		}

		err = tx.QueryRow(ctx,
			`UPDATE transactions SET status = $2, updated_at = now()
			 WHERE id = $1 AND status = $3
			 RETURNING updated_at`,
			t.ID, string(next), string(model.TransactionStatusPending),
		).Scan(&t.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTransactionNotPending
			}
			return fmt.Errorf("update transaction status: %w", err)
		}
		t.Status = next

		if d.Approve {
			err = tx.QueryRow(ctx,
				`UPDATE users SET balance = balance + $2 WHERE id = $1 RETURNING balance`,
				t.UserID, t.Amount,
			).Scan(&newBalance)
		} else {
			err = tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, t.UserID).Scan(&newBalance)
		}
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("credit balance: %w", err)
		}

		res = t
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	return res, newBalance, nil
}

// GiftCardRedemption содержит результат погашения подарочной карты.
type GiftCardRedemption struct {
	Card        *model.GiftCard
	Transaction *model.Transaction
	NewBalance  decimal.Decimal
}

// RedeemGiftCard погашает карту и зачисляет её номинал на баланс. Условное обновление
// по used = false гарантирует, что из конкурирующих погашений одного кода успешно только одно.
func (r *PostgresRepository) RedeemGiftCard(ctx context.Context, userID int64, code string) (*GiftCardRedemption, error) {
	var res *GiftCardRedemption

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		card := &model.GiftCard{Code: code, Used: true, UsedBy: &userID}
		err := tx.QueryRow(ctx,
			`UPDATE gift_cards SET used = TRUE, used_by = $2, used_at = now()
			 WHERE code = $1 AND NOT used
			 RETURNING id, amount, used_at, created_at`,
			code, userID,
		).Scan(&card.ID, &card.Amount, &card.UsedAt, &card.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return giftCardState(ctx, tx, code)
			}
			if isForeignKeyViolation(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("mark gift card used: %w", err)
		}

		var newBalance decimal.Decimal
		err = tx.QueryRow(ctx,
			`UPDATE users SET balance = balance + $2 WHERE id = $1 RETURNING balance`,
			userID, card.Amount,
		).Scan(&newBalance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("credit balance: %w", err)
		}

		t, err := insertTransaction(ctx, tx, userID, model.TransactionTypeGiftCard, card.Amount,
			model.TransactionStatusCompleted, string(model.TransactionTypeGiftCard), code)
		if err != nil {
			return err
		}

		res = &GiftCardRedemption{Card: card, Transaction: t, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func giftCardState(ctx context.Context, tx pgx.Tx, code string) error {
	var used bool
	err := tx.QueryRow(ctx, `SELECT used FROM gift_cards WHERE code = $1`, code).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrGiftCardNotFound
		}
		return fmt.Errorf("select gift card: %w", err)
	}
	return ErrGiftCardUsed
}

// CreateGiftCard создаёт неиспользованную подарочную карту.
func (r *PostgresRepository) CreateGiftCard(ctx context.Context, code string, amount decimal.Decimal) (*model.GiftCard, error) {
	card := &model.GiftCard{Code: code, Amount: amount}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO gift_cards (code, amount) VALUES ($1, $2) RETURNING id, created_at`,
		code, amount,
	).Scan(&card.ID, &card.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrGiftCardExists, code)
		}
		return nil, fmt.Errorf("create gift card: %w", err)
	}
	return card, nil
}

// ListGiftCards возвращает подарочные карты, новые первыми.
func (r *PostgresRepository) ListGiftCards(ctx context.Context, limit, offset int) ([]model.GiftCard, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, amount, used, used_by, used_at, created_at
		 FROM gift_cards
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("select gift cards: %w", err)
	}
	defer rows.Close()

	var res []model.GiftCard
	for rows.Next() {
		var c model.GiftCard
		if err := rows.Scan(&c.ID, &c.Code, &c.Amount, &c.Used, &c.UsedBy, &c.UsedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan gift card: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// TransactionFilter ограничивает выборку истории операций.
type TransactionFilter struct {
	UserID *int64
	Status *model.TransactionStatus
	Type   *model.TransactionType
	Limit  int
	Offset int
}

// ListTransactions возвращает историю операций, новые первыми.
func (r *PostgresRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]model.Transaction, error) {
	var status, typ *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}
	if f.Type != nil {
		t := string(*f.Type)
		typ = &t
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE ($1::bigint IS NULL OR user_id = $1)
		   AND ($2::text IS NULL OR status = $2)
		   AND ($3::text IS NULL OR type = $3)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $4 OFFSET $5`,
		f.UserID, status, typ, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		res = append(res, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListOrdersByUser возвращает заказы пользователя без позиций, новые первыми.
func (r *PostgresRepository) ListOrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, total, status, created_at
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		var (
			o      model.Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = model.OrderStatus(status)
		res = append(res, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetOrder возвращает заказ вместе с позициями и выданными ключами.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	var (
		o      model.Order
		status string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, total, status, created_at FROM orders WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.UserID, &o.Total, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.Status = model.OrderStatus(status)

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, price, delivery_data
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price, &it.DeliveryData); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &o, nil
}
