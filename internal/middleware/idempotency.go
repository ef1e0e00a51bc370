package middleware

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/novamart/novamart-api/internal/pkg/response"
)

// Idempotency rejects replays of mutation requests that carry an
// Idempotency-Key header. The key is claimed with SET NX scoped to the
// authenticated user and route; a second request with the same key inside
// the window gets 409. A key whose request fails is released again, so a
// corrected retry is not locked out for the whole window. Without Redis
// the header is accepted but not enforced.
func Idempotency(client *redis.Client, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" || client == nil {
				next.ServeHTTP(w, r)
				return
			}

			userID := GetUserID(r.Context())
			redisKey := "idem:" + userID.String() + ":" + r.URL.Path + ":" + key

			ok, err := client.SetNX(r.Context(), redisKey, 1, window).Result()
			if err != nil {
				// Redis being down must not block credit operations
				log.Warn().Err(err).Msg("idempotency check unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				response.Conflict(w, "Duplicate request: idempotency key already used")
				return
			}

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			if wrapped.statusCode >= 400 {
				if err := client.Del(r.Context(), redisKey).Err(); err != nil {
					log.Warn().Err(err).Msg("failed to release idempotency key after failed request")
				}
			}
		})
	}
}
