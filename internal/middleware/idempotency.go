package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/cache"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 128
)

// IdempotencyStore хранит ответы по ключу идемпотентности.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type idempotencyRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency сохраняет ответ на запрос с заголовком Idempotency-Key и возвращает его
// при повторе. Повтор с тем же ключом и другим телом, а также повтор во время обработки
// первого запроса получают 409. Ответы 5xx и паники обработчика не сохраняются. Запросы без заголовка и
// конфигурация без store проходят без изменений. Должен подключаться после аутентификации.
func Idempotency(store IdempotencyStore, ttl time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if store == nil || id == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(id) > maxIdempotencyKey {
				http.Error(w, "Idempotency-Key is too long", http.StatusBadRequest)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			hash := hashBody(body)
			key := store.IdempotencyKey(idempotencyScope(r), id)

			pending, _ := json.Marshal(idempotencyRecord{Pending: true, RequestHash: hash})
			claimed, err := store.SetNX(ctx, key, string(pending), ttl)
			if err != nil {
				logger.Warn("idempotency store unavailable", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if !claimed {
				replayStored(ctx, w, store, key, hash, logger)
				return
			}

			// Паника в обработчике освобождает ключ, как и ответ 5xx.
			defer func() {
				if p := recover(); p != nil {
					if err := store.Del(ctx, key); err != nil {
						logger.Warn("release idempotency key", zap.String("key", key), zap.Error(err))
					}
					panic(p)
				}
			}()

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.statusCode()
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil {
					logger.Warn("release idempotency key", zap.String("key", key), zap.Error(err))
				}
				return
			}

			payload, err := json.Marshal(idempotencyRecord{
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: hash,
			})
			if err != nil {
				logger.Error("marshal idempotency record", zap.Error(err))
				return
			}
			if err := store.Set(ctx, key, string(payload), ttl); err != nil {
				logger.Warn("persist idempotency record", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

func replayStored(ctx context.Context, w http.ResponseWriter, store IdempotencyStore, key, hash string, logger *zap.Logger) {
	stored, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			http.Error(w, "request with this Idempotency-Key is in progress", http.StatusConflict)
			return
		}
		logger.Error("read idempotency record", zap.String("key", key), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		logger.Error("decode idempotency record", zap.String("key", key), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	switch {
	case record.RequestHash != hash:
		http.Error(w, "Idempotency-Key reused with a different request body", http.StatusConflict)
	case record.Pending:
		http.Error(w, "request with this Idempotency-Key is in progress", http.StatusConflict)
	default:
		body, err := base64.StdEncoding.DecodeString(record.Body)
		if err != nil {
			logger.Error("decode idempotency body", zap.String("key", key), zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(body)
	}
}

func idempotencyScope(r *http.Request) string {
	userID, _ := GetUserIDFromContext(r.Context())
	return fmt.Sprintf("%d|%s|%s", userID, r.Method, r.URL.Path)
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
