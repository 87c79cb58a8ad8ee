package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "fundd-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuthenticator(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{
		Enabled:    true,
		HMACSecret: testSecret,
		Issuer:     "fundflow",
		Audience:   "fundd",
	}, nil)
	var subject string
	handler := auth.Middleware("fund:write")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	exp := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing token", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", want: http.StatusUnauthorized},
		{name: "wrong issuer", header: "Bearer " + signToken(t, jwt.MapClaims{"iss": "other", "aud": "fundd", "exp": exp, "scope": "fund:write"}), want: http.StatusUnauthorized},
		{name: "wrong audience", header: "Bearer " + signToken(t, jwt.MapClaims{"iss": "fundflow", "aud": []interface{}{"ui"}, "exp": exp, "scope": "fund:write"}), want: http.StatusUnauthorized},
		{name: "no expiry", header: "Bearer " + signToken(t, jwt.MapClaims{"iss": "fundflow", "aud": "fundd", "scope": "fund:write"}), want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, jwt.MapClaims{"iss": "fundflow", "aud": "fundd", "exp": time.Now().Add(-time.Hour).Unix(), "scope": "fund:write"}), want: http.StatusUnauthorized},
		{name: "missing scope", header: "Bearer " + signToken(t, jwt.MapClaims{"iss": "fundflow", "aud": "fundd", "exp": exp, "scope": "fund:read"}), want: http.StatusForbidden},
		{name: "valid", header: "Bearer " + signToken(t, jwt.MapClaims{"iss": "fundflow", "aud": "fundd", "exp": exp, "sub": "ops", "scope": "fund:read fund:write"}), want: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/ledgers", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, res.Code, res.Body.String())
			}
		})
	}
	if subject != "ops" {
		t.Fatalf("expected subject in context, got %q", subject)
	}
}

func TestAuthenticatorDisabled(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{}, nil)
	handler := auth.Middleware("fund:write")(okHandler())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/streams", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("disabled auth should pass through, got %d", res.Code)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"https://app.example"}})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/v1/ledgers", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", res.Code)
	}
	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/ledgers/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin echoed: %q", got)
	}
}
