package authctx

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

const (
	HeaderUserID        = "X-User-ID"
	HeaderUserEmail     = "X-User-Email"
	HeaderInternalToken = "X-Internal-Token"
)

// Middleware 从上游网关注入的请求头中解析 Actor。
// 会话校验由上游完成，这里只负责把邮箱换算成角色。
// 携带正确内部令牌的请求被视为系统调用。
func Middleware(resolver *RoleResolver, internalToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if internalToken != "" {
				got := r.Header.Get(HeaderInternalToken)
				if got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(internalToken)) == 1 {
					actor := Actor{UserID: r.Header.Get(HeaderUserID), Role: RoleSystem}
					next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
					return
				}
			}

			userID := r.Header.Get(HeaderUserID)
			if userID == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "missing " + HeaderUserID + " header"})
				return
			}

			actor := Actor{UserID: userID, Role: resolver.Resolve(r.Header.Get(HeaderUserEmail))}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
