package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/utils"
)

// Recovery 恢复中间件，处理panic并返回统一的服务器错误
func Recovery(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					// 记录panic信息
					stack := debug.Stack()
					fmt.Printf("❌ PANIC: %v\n", err)
					fmt.Printf("📍 Stack trace:\n%s\n", stack)

					utils.WriteServerError(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
