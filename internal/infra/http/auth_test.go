package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func callProtected(token, header string) int {
	handler := AdminTokenMiddleware(token)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/deals/pending", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestAdminTokenMiddleware(t *testing.T) {
	if code := callProtected("secret", "Bearer secret"); code != http.StatusNoContent {
		t.Fatalf("корректный токен должен пропускаться, получили %d", code)
	}
	if code := callProtected("secret", "Bearer wrong"); code != http.StatusUnauthorized {
		t.Fatalf("неверный токен должен отклоняться, получили %d", code)
	}
	if code := callProtected("secret", ""); code != http.StatusUnauthorized {
		t.Fatalf("запрос без заголовка должен отклоняться, получили %d", code)
	}
	if code := callProtected("secret", "secret"); code != http.StatusUnauthorized {
		t.Fatalf("токен без схемы Bearer должен отклоняться, получили %d", code)
	}
	if code := callProtected("", ""); code != http.StatusNoContent {
		t.Fatalf("пустой настроенный токен отключает проверку, получили %d", code)
	}
}
