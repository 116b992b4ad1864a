package oidc

// Package oidc provides an AuthGateway backed by an OpenID Connect provider using the
// resource-owner password grant. The verified ID token's groups decide which roles the
// user may sign in as; the portal then issues its own bearer token.

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/ports"
)

// GatewayConfig holds configuration for the password-grant gateway.
type GatewayConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	Roles        ports.RoleMapper
	Issuer       ports.TokenIssuer
	HTTPClient   *http.Client // Optional, defaults to a client with a 10s timeout
}

// PasswordGateway implements ports.AuthGateway.
type PasswordGateway struct {
	config     *oauth2.Config
	httpClient *http.Client
	provider   *gooidc.Provider
	verifier   *gooidc.IDTokenVerifier
	roles      ports.RoleMapper
	issuer     ports.TokenIssuer
}

// NewPasswordGateway performs OIDC discovery and returns a gateway.
func NewPasswordGateway(ctx context.Context, cfg GatewayConfig) (*PasswordGateway, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}
	if cfg.Roles == nil {
		return nil, errors.New("role mapper is required")
	}
	if cfg.Issuer == nil {
		return nil, errors.New("token issuer is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(gooidc.ClientContext(ctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	scope := cfg.Scope
	if scope == "" {
		scope = "openid profile email"
	}
	return &PasswordGateway{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       strings.Fields(scope),
			Endpoint:     op.Endpoint(),
		},
		httpClient: httpClient,
		provider:   op,
		verifier:   op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		roles:      cfg.Roles,
		issuer:     cfg.Issuer,
	}, nil
}

// Authenticate exchanges the credentials for tokens, verifies the ID token and checks
// that the user's groups permit the requested role.
func (g *PasswordGateway) Authenticate(ctx context.Context, creds domainauth.Credentials) (domainauth.Grant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)

	tok, err := g.config.PasswordCredentialsToken(ctx, creds.Email, creds.Password)
	if err != nil {
		return domainauth.Grant{}, classifyTokenError(err)
	}

	fields, err := g.extractFromIDToken(ctx, tok)
	if err != nil {
		return domainauth.Grant{}, fmt.Errorf("extract id_token: %w", err)
	}
	if fields.email == "" || fields.subject == "" || len(fields.groups) == 0 {
		if fillErr := g.fillFromUserInfo(ctx, tok, &fields); fillErr != nil {
			return domainauth.Grant{}, fmt.Errorf("%w: get user info: %w", domainauth.ErrGatewayUnreachable, fillErr)
		}
	}

	if !creds.Role.In(g.roles.Allowed(fields.groups)) {
		return domainauth.Grant{}, domainauth.Reject("Your account cannot sign in as " + creds.Role.String())
	}

	user := fields.user(creds)
	signed, err := g.issuer.Issue(user, creds.Role)
	if err != nil {
		return domainauth.Grant{}, fmt.Errorf("issue portal token: %w", err)
	}
	return domainauth.Grant{User: user, Token: signed}, nil
}

func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		switch re.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return domainauth.Reject("Invalid credentials")
		}
	}
	return fmt.Errorf("%w: password grant: %w", domainauth.ErrGatewayUnreachable, err)
}

type idFields struct {
	subject    string
	email      string
	name       string
	department string
	groups     []string
}

// user builds the portal identity. The numeric ID is a stable hash of the subject.
func (f idFields) user(creds domainauth.Credentials) domainauth.User {
	h := fnv.New64a()
	_, _ = h.Write([]byte(f.subject))
	id := int64(h.Sum64() & 0x7fffffffffffffff)
	if id == 0 {
		id = 1
	}
	email := firstNonEmpty(f.email, creds.Email)
	u := domainauth.User{
		ID:         id,
		Name:       firstNonEmpty(f.name, email),
		Email:      email,
		Department: f.department,
	}
	switch creds.Role {
	case domainauth.RoleStudent:
		u.StudentID = f.subject
	case domainauth.RoleTeacher:
		u.TeacherID = f.subject
	case domainauth.RoleAdmin:
		u.AdminID = f.subject
	case domainauth.RoleProctor:
		u.ProctorID = f.subject
		u.AssignedExams = []int64{}
	}
	return u
}

// idTokenClaims is a superset of standard OIDC and AD/ADFS claim shapes.
type idTokenClaims struct {
	Sub            string   `json:"sub"`
	SamAccountName string   `json:"samaccountname"`
	Name           string   `json:"name"`
	FirstName      string   `json:"firstname"`
	LastName       string   `json:"lastname"`
	GivenName      string   `json:"given_name"`
	FamilyName     string   `json:"family_name"`
	Email          string   `json:"email"`
	Mail           string   `json:"mail"`
	Department     string   `json:"department"`
	Groups         []string `json:"groups"`
	MemberOf       []string `json:"memberof"`
}

func (g *PasswordGateway) extractFromIDToken(ctx context.Context, tok *oauth2.Token) (idFields, error) {
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		// Providers may omit the ID token for the password grant; userinfo fills the gap.
		return idFields{}, nil
	}
	idTok, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return idFields{}, fmt.Errorf("verify id_token: %w", err)
	}
	var c idTokenClaims
	if err := idTok.Claims(&c); err != nil {
		return idFields{}, fmt.Errorf("parse id_token claims: %w", err)
	}
	return mapClaims(c), nil
}

func (g *PasswordGateway) fillFromUserInfo(ctx context.Context, tok *oauth2.Token, f *idFields) error {
	ui, err := g.provider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}
	var c idTokenClaims
	if err := ui.Claims(&c); err != nil {
		return fmt.Errorf("decode user info: %w", err)
	}
	mergeFields(f, mapClaims(c))
	return nil
}

func mapClaims(c idTokenClaims) idFields {
	name := c.Name
	if name == "" {
		name = strings.TrimSpace(firstNonEmpty(c.GivenName, c.FirstName) + " " + firstNonEmpty(c.FamilyName, c.LastName))
	}
	groups := c.Groups
	if len(groups) == 0 {
		groups = c.MemberOf
	}
	return idFields{
		subject:    firstNonEmpty(c.SamAccountName, c.Sub),
		email:      firstNonEmpty(c.Email, c.Mail),
		name:       name,
		department: c.Department,
		groups:     groups,
	}
}

func mergeFields(dst *idFields, src idFields) {
	if dst.subject == "" {
		dst.subject = src.subject
	}
	if dst.email == "" {
		dst.email = src.email
	}
	if dst.name == "" {
		dst.name = src.name
	}
	if dst.department == "" {
		dst.department = src.department
	}
	if len(dst.groups) == 0 {
		dst.groups = src.groups
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
