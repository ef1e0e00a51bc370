package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return client
}

func TestIdempotencyRejectsReplayAfterSuccess(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	handler := Idempotency(client, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	key := uuid.New().String()

	rec := performIdempotentRequest(handler, key)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", rec.Code)
	}

	rec = performIdempotentRequest(handler, key)
	if rec.Code != http.StatusConflict {
		t.Fatalf("replay expected 409, got %d", rec.Code)
	}
}

func TestIdempotencyReleasesKeyAfterFailure(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	// first attempt fails a business rule, the corrected retry must not
	// be locked out by the spent key
	attempts := 0
	handler := Idempotency(client, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	key := uuid.New().String()

	rec := performIdempotentRequest(handler, key)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("first request expected 422, got %d", rec.Code)
	}

	rec = performIdempotentRequest(handler, key)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry after failure expected 200, got %d", rec.Code)
	}

	rec = performIdempotentRequest(handler, key)
	if rec.Code != http.StatusConflict {
		t.Fatalf("replay after success expected 409, got %d", rec.Code)
	}
}

func TestIdempotencyPassThroughWithoutKeyOrRedis(t *testing.T) {
	handler := Idempotency(nil, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := performIdempotentRequest(handler, "same-key")
		if rec.Code != http.StatusOK {
			t.Fatalf("nil client must not enforce, got %d", rec.Code)
		}
	}
}

func performIdempotentRequest(handler http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/credits/spend", nil)
	req.Header.Set("Idempotency-Key", key)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}
