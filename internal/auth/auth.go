package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ctchen222/tictactoe-solver/internal/api/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PlayerIDKey is the gin context key holding the authenticated player id.
const PlayerIDKey = "player.id"

const issuer = "tictactoe-solver"

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Issuer signs and verifies guest tokens with HS256.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// GuestToken creates a new player id and a token for it.
func (iss *Issuer) GuestToken() (playerID, token string, err error) {
	playerID = uuid.NewString()
	token, err = iss.Issue(playerID)
	return playerID, token, err
}

// Issue signs a token for playerID.
func (iss *Issuer) Issue(playerID string) (string, error) {
	now := iss.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   playerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(iss.ttl)),
	})
	signed, err := token.SignedString(iss.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenString and returns the player id it was issued for.
func (iss *Issuer) Parse(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return iss.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(iss.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// player id under PlayerIDKey.
func (iss *Issuer) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		playerID, err := iss.Parse(strings.TrimSpace(token))
		if err != nil {
			response.ErrorResponse(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}
		c.Set(PlayerIDKey, playerID)
		c.Next()
	}
}

// PlayerID returns the authenticated player id set by Middleware.
func PlayerID(c *gin.Context) string {
	return c.GetString(PlayerIDKey)
}
