package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

const testWallet = "0x1111111111111111111111111111111111111111"

func protected(t *testing.T, mw ...func(http.Handler) http.Handler) http.Handler {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wallet, err := GetWalletFromContext(r.Context())
		require.NoError(t, err)
		role, err := GetUserRoleFromContext(r.Context())
		require.NoError(t, err)
		w.Header().Set("X-Wallet", wallet)
		w.Header().Set("X-Role", string(role))
		w.WriteHeader(http.StatusNoContent)
	})
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

func signed(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func TestAuthenticate(t *testing.T) {
	valid, err := IssueToken(testSecret, "0x1111111111111111111111111111111111111111", models.RolePlayer, time.Hour)
	require.NoError(t, err)

	tests := map[string]struct {
		header     string
		wantStatus int
	}{
		"valid token": {
			header:     "Bearer " + valid,
			wantStatus: http.StatusNoContent,
		},
		"missing header": {
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		"wrong scheme": {
			header:     "Basic " + valid,
			wantStatus: http.StatusUnauthorized,
		},
		"wrong secret": {
			header:     "Bearer " + signed(t, []byte("other"), jwt.MapClaims{"wallet_address": testWallet, "role": "player"}),
			wantStatus: http.StatusUnauthorized,
		},
		"expired": {
			header: "Bearer " + signed(t, testSecret, jwt.MapClaims{
				"wallet_address": testWallet,
				"role":           "player",
				"exp":            time.Now().Add(-time.Minute).Unix(),
			}),
			wantStatus: http.StatusUnauthorized,
		},
		"missing wallet": {
			header:     "Bearer " + signed(t, testSecret, jwt.MapClaims{"role": "player"}),
			wantStatus: http.StatusUnauthorized,
		},
		"malformed wallet": {
			header:     "Bearer " + signed(t, testSecret, jwt.MapClaims{"wallet_address": "alice", "role": "player"}),
			wantStatus: http.StatusUnauthorized,
		},
		"unknown role": {
			header:     "Bearer " + signed(t, testSecret, jwt.MapClaims{"wallet_address": testWallet, "role": "root"}),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			protected(t, Authenticate(testSecret)).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusUnauthorized {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "UNAUTHORIZED", body["code"])
				assert.Equal(t, false, body["retryable"])
			}
		})
	}
}

func TestAuthenticateNormalizesWallet(t *testing.T) {
	token := signed(t, testSecret, jwt.MapClaims{
		"wallet_address": "0xABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD",
		"role":           "admin",
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protected(t, Authenticate(testSecret)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", rec.Header().Get("X-Wallet"))
	assert.Equal(t, "admin", rec.Header().Get("X-Role"))
}

func TestAuthorize(t *testing.T) {
	tests := map[string]struct {
		role       models.UserRole
		wantStatus int
	}{
		"admin allowed":    {role: models.RoleAdmin, wantStatus: http.StatusNoContent},
		"player forbidden": {role: models.RolePlayer, wantStatus: http.StatusForbidden},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			token, err := IssueToken(testSecret, testWallet, tc.role, time.Hour)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPatch, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			protected(t, Authenticate(testSecret), Authorize(models.RoleAdmin)).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}
