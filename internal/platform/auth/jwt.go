// Pacote auth verifica o token do operador e resolve o usuário no banco.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

// CookieToken é o cookie HttpOnly gravado pelo login do painel.
const CookieToken = "authToken"

// JWT aceita tokens HS256 com a claim "id" do usuário.
// O cookie tem precedência sobre o header Authorization.
type JWT struct {
	secret   []byte
	usuarios domain.UsuarioRepository
	parser   *jwt.Parser
}

func NewJWT(secret string, usuarios domain.UsuarioRepository) *JWT {
	return &JWT{
		secret:   []byte(secret),
		usuarios: usuarios,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

func (a *JWT) Autenticar(ctx context.Context, r *http.Request) (domain.Principal, error) {
	raw := extrairToken(r)
	if raw == "" {
		return domain.Principal{}, fmt.Errorf("%w: token ausente", domain.ErrNaoAutenticado)
	}

	claims := jwt.MapClaims{}
	if _, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}); err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrNaoAutenticado, err)
	}

	id, ok := claims["id"].(float64)
	if !ok || id <= 0 {
		return domain.Principal{}, fmt.Errorf("%w: claim id invalida", domain.ErrNaoAutenticado)
	}

	usuario, err := a.usuarios.FindByID(ctx, domain.UsuarioID(id))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Principal{}, fmt.Errorf("%w: usuario do token nao existe", domain.ErrNaoAutenticado)
	}
	if err != nil {
		return domain.Principal{}, fmt.Errorf("auth: buscar usuario: %w", err)
	}

	return domain.Principal{ID: usuario.ID, Usuario: usuario.Usuario, Role: usuario.Role}, nil
}

func extrairToken(r *http.Request) string {
	if c, err := r.Cookie(CookieToken); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

var _ domain.Autenticador = (*JWT)(nil)
