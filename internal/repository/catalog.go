package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
)

const productColumns = `id, category_id, name, description, price, stock, has_keys, active, image_url, created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.HasKeys, &p.Active, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProductFilter ограничивает выборку каталога.
type ProductFilter struct {
	CategoryID    *int64
	IncludeHidden bool
	Limit         int
	Offset        int
}

// ProductInput содержит изменяемые администратором поля товара.
type ProductInput struct {
	CategoryID  *int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Active      bool
	ImageURL    string
}

// ListCategories возвращает все категории каталога.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var res []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateCategory создаёт категорию.
func (r *PostgresRepository) CreateCategory(ctx context.Context, name, slug string) (*model.Category, error) {
	c := model.Category{Name: name, Slug: slug}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id`,
		name, slug,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrCategoryExists, slug)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &c, nil
}

// ListProducts возвращает товары каталога, отфильтрованные по категории.
func (r *PostgresRepository) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE ($1::bigint IS NULL OR category_id = $1)
		   AND ($2 OR active)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3 OFFSET $4`,
		f.CategoryID, f.IncludeHidden, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// CreateProduct создаёт товар без ключей.
func (r *PostgresRepository) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`INSERT INTO products (category_id, name, description, price, stock, active, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+productColumns,
		in.CategoryID, in.Name, in.Description, in.Price, in.Stock, in.Active, in.ImageURL,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// UpdateProduct обновляет товар. Для товаров с ключами остаток не перезаписывается:
// он всегда равен количеству неиспользованных ключей.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`UPDATE products
		 SET category_id = $2, name = $3, description = $4, price = $5,
		     stock = CASE WHEN has_keys THEN stock ELSE $6 END,
		     active = $7, image_url = $8, updated_at = now()
		 WHERE id = $1
		 RETURNING `+productColumns,
		id, in.CategoryID, in.Name, in.Description, in.Price, in.Stock, in.Active, in.ImageURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if isForeignKeyViolation(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// ListProductKeys возвращает пул ключей товара.
func (r *PostgresRepository) ListProductKeys(ctx context.Context, productID int64) ([]model.ProductKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, value, is_used, used_at, order_id, created_at
		 FROM product_keys
		 WHERE product_id = $1
		 ORDER BY is_used, id`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("select product keys: %w", err)
	}
	defer rows.Close()

	var res []model.ProductKey
	for rows.Next() {
		var k model.ProductKey
		if err := rows.Scan(&k.ID, &k.ProductID, &k.Value, &k.IsUsed, &k.UsedAt, &k.OrderID, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product key: %w", err)
		}
		res = append(res, k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AddProductKeys добавляет ключи в пул товара, пропуская дубликаты,
// и пересчитывает остаток. Возвращает количество добавленных ключей и новый остаток.
func (r *PostgresRepository) AddProductKeys(ctx context.Context, productID int64, values []string) (int, int, error) {
	var inserted, stock int

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockProduct(ctx, tx, productID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`INSERT INTO product_keys (product_id, value)
			 SELECT $1, v FROM unnest($2::text[]) AS v
			 ON CONFLICT (product_id, value) DO NOTHING`,
			productID, values,
		)
		if err != nil {
			return fmt.Errorf("insert product keys: %w", err)
		}
		inserted = int(tag.RowsAffected())

		stock, err = recountStock(ctx, tx, productID)
		return err
	})
	if err != nil {
		return 0, 0, err
	}

	return inserted, stock, nil
}

// DeleteProductKey удаляет непроданный ключ и пересчитывает остаток.
func (r *PostgresRepository) DeleteProductKey(ctx context.Context, productID, keyID int64) (int, error) {
	var stock int

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockProduct(ctx, tx, productID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`DELETE FROM product_keys WHERE id = $1 AND product_id = $2 AND NOT is_used`,
			keyID, productID,
		)
		if err != nil {
			return fmt.Errorf("delete product key: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrKeyNotFound
		}

		stock, err = recountStock(ctx, tx, productID)
		return err
	})
	if err != nil {
		return 0, err
	}

	return stock, nil
}

func lockProduct(ctx context.Context, tx pgx.Tx, productID int64) error {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("lock product: %w", err)
	}
	return nil
}

// recountStock приводит кэш остатка к количеству неиспользованных ключей.
func recountStock(ctx context.Context, tx pgx.Tx, productID int64) (int, error) {
	var stock int
	err := tx.QueryRow(ctx,
		`UPDATE products
		 SET stock = (SELECT count(*) FROM product_keys WHERE product_id = $1 AND NOT is_used),
		     has_keys = TRUE,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING stock`,
		productID,
	).Scan(&stock)
	if err != nil {
		return 0, fmt.Errorf("recount stock: %w", err)
	}
	return stock, nil
}

// ListPaymentMethods возвращает способы оплаты. При activeOnly скрытые способы не возвращаются.
func (r *PostgresRepository) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]model.PaymentMethod, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, name, instructions, active
		 FROM payment_methods
		 WHERE NOT $1 OR active
		 ORDER BY id`,
		activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("select payment methods: %w", err)
	}
	defer rows.Close()

	var res []model.PaymentMethod
	for rows.Next() {
		var m model.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.Instructions, &m.Active); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreatePaymentMethod создаёт способ оплаты.
func (r *PostgresRepository) CreatePaymentMethod(ctx context.Context, m model.PaymentMethod) (*model.PaymentMethod, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO payment_methods (code, name, instructions, active) VALUES ($1, $2, $3, $4) RETURNING id`,
		m.Code, m.Name, m.Instructions, m.Active,
	).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentMethodExists, m.Code)
		}
		return nil, fmt.Errorf("create payment method: %w", err)
	}
	return &m, nil
}
