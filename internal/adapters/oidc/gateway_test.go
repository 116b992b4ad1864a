package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/exam-portal/internal/adapters/authroles"
	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/token"
)

const testClientID = "exam-portal"

type fakeIdP struct {
	srv    *httptest.Server
	key    *rsa.PrivateKey
	groups []string
}

func newFakeIdP(t *testing.T, groups ...string) *fakeIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	idp := &fakeIdP{key: key, groups: groups}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                idp.srv.URL,
			"authorization_endpoint":                idp.srv.URL + "/authorize",
			"token_endpoint":                        idp.srv.URL + "/token",
			"userinfo_endpoint":                     idp.srv.URL + "/userinfo",
			"jwks_uri":                              idp.srv.URL + "/jwks",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, _ *http.Request) {
		pub := idp.key.PublicKey
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"kid": "test",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("grant_type") != "password" || r.PostForm.Get("password") != "correct" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "opaque-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idp.idToken(r.PostForm.Get("username")),
		})
	})
	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)
	return idp
}

func (idp *fakeIdP) idToken(email string) string {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":        idp.srv.URL,
		"aud":        testClientID,
		"sub":        "u-123",
		"iat":        now.Unix(),
		"exp":        now.Add(time.Hour).Unix(),
		"email":      email,
		"name":       "Jane Smith",
		"department": "Mathematics",
		"groups":     idp.groups,
	})
	tok.Header["kid"] = "test"
	signed, err := tok.SignedString(idp.key)
	if err != nil {
		return ""
	}
	return signed
}

func newTestGateway(t *testing.T, idp *fakeIdP) (*PasswordGateway, *token.Manager) {
	t.Helper()
	mgr, err := token.NewManager(token.Options{SigningKey: []byte(strings.Repeat("o", 32))})
	require.NoError(t, err)
	gw, err := NewPasswordGateway(context.Background(), GatewayConfig{
		ClientID:     testClientID,
		ClientSecret: "secret",
		DiscoveryURL: idp.srv.URL + "/.well-known/openid-configuration",
		Roles:        authroles.StaticMapper{TeacherGroup: "faculty", AdminGroup: "it"},
		Issuer:       mgr,
	})
	require.NoError(t, err)
	return gw, mgr
}

func TestNewPasswordGateway_ValidationErrors(t *testing.T) {
	mgr, err := token.NewManager(token.Options{SigningKey: []byte(strings.Repeat("o", 32))})
	require.NoError(t, err)
	mapper := authroles.StaticMapper{}

	tests := []struct {
		name   string
		cfg    GatewayConfig
		errMsg string
	}{
		{"missing client ID", GatewayConfig{DiscoveryURL: "http://x", Roles: mapper, Issuer: mgr}, "client ID is required"},
		{"missing discovery URL", GatewayConfig{ClientID: "c", Roles: mapper, Issuer: mgr}, "discovery URL is required"},
		{"missing mapper", GatewayConfig{ClientID: "c", DiscoveryURL: "http://x", Issuer: mgr}, "role mapper is required"},
		{"missing issuer", GatewayConfig{ClientID: "c", DiscoveryURL: "http://x", Roles: mapper}, "token issuer is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPasswordGateway(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestPasswordGateway_Authenticate(t *testing.T) {
	idp := newFakeIdP(t, "faculty")
	gw, mgr := newTestGateway(t, idp)

	grant, err := gw.Authenticate(context.Background(), domainauth.Credentials{
		Email: "teacher@test.com", Password: "correct", Role: domainauth.RoleTeacher,
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", grant.User.Name)
	assert.Equal(t, "teacher@test.com", grant.User.Email)
	assert.Equal(t, "u-123", grant.User.TeacherID)
	assert.Equal(t, "Mathematics", grant.User.Department)
	assert.Positive(t, grant.User.ID)

	claims, err := mgr.Verify(context.Background(), grant.Token)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleTeacher, claims.Role)
	assert.Equal(t, grant.User.ID, claims.UserID)
}

func TestPasswordGateway_WrongPassword(t *testing.T) {
	idp := newFakeIdP(t, "faculty")
	gw, _ := newTestGateway(t, idp)

	_, err := gw.Authenticate(context.Background(), domainauth.Credentials{
		Email: "teacher@test.com", Password: "nope", Role: domainauth.RoleTeacher,
	})
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	assert.Equal(t, "Invalid credentials", err.Error())
}

func TestPasswordGateway_RoleNotGranted(t *testing.T) {
	idp := newFakeIdP(t, "faculty")
	gw, _ := newTestGateway(t, idp)

	_, err := gw.Authenticate(context.Background(), domainauth.Credentials{
		Email: "teacher@test.com", Password: "correct", Role: domainauth.RoleAdmin,
	})
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "admin")
}

func TestPasswordGateway_Unreachable(t *testing.T) {
	idp := newFakeIdP(t, "faculty")
	gw, _ := newTestGateway(t, idp)
	idp.srv.Close()

	_, err := gw.Authenticate(context.Background(), domainauth.Credentials{
		Email: "teacher@test.com", Password: "correct", Role: domainauth.RoleTeacher,
	})
	require.ErrorIs(t, err, domainauth.ErrGatewayUnreachable)
}

func TestMapClaims_Precedence(t *testing.T) {
	f := mapClaims(idTokenClaims{
		Sub:            "sub-1",
		SamAccountName: "jdoe",
		FirstName:      "John",
		LastName:       "Doe",
		Mail:           "jdoe@corp",
		MemberOf:       []string{"students"},
	})
	assert.Equal(t, "jdoe", f.subject)
	assert.Equal(t, "John Doe", f.name)
	assert.Equal(t, "jdoe@corp", f.email)
	assert.Equal(t, []string{"students"}, f.groups)

	dst := idFields{subject: "keep"}
	mergeFields(&dst, f)
	assert.Equal(t, "keep", dst.subject)
	assert.Equal(t, "jdoe@corp", dst.email)
}
