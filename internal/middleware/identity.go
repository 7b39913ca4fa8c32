// Package middleware содержит HTTP middleware локального API мини-приложения.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mmeshcher/tavola-miniapp/internal/model"
)

type contextKey string

const userKey contextKey = "user"

// Заголовки, которыми страница мини-приложения передаёт данные пользователя платформы.
const (
	HeaderUserID    = "X-Telegram-Id"
	HeaderFirstName = "X-Telegram-First-Name"
	HeaderUsername  = "X-Telegram-Username"
)

// Identity извлекает пользователя из заголовков запроса и кладёт его в контекст.
// Идентичность носит справочный характер: доверять ей может только сервер ресторана.
type Identity struct {
	fallback model.User
}

// NewIdentity создаёт middleware. Fallback используется, если страница не передала пользователя.
func NewIdentity(fallback model.User) *Identity {
	return &Identity{fallback: fallback}
}

// Middleware определяет пользователя запроса. Запросы без пользователя не отклоняются: это гость.
func (i *Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := i.fallback

		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			id = strings.TrimSpace(r.URL.Query().Get("uid"))
		}
		if id != "" {
			user = model.User{
				ID:        id,
				FirstName: r.Header.Get(HeaderFirstName),
				Username:  r.Header.Get(HeaderUsername),
			}
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// WithUser возвращает контекст с пользователем.
func WithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUserFromContext извлекает пользователя из контекста запроса.
func GetUserFromContext(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(userKey).(model.User)
	return u, ok
}

// RequireAdmin скрывает админ-маршруты от пользователей, которых allows не признаёт.
// Это не авторизация: те же запросы сервер ресторана проверяет сам.
func RequireAdmin(allows func(model.User) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := GetUserFromContext(r.Context())
			if !allows(user) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
