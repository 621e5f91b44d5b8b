package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
)

const payloadClaim = "payload"

type PasetoToken struct {
	parser paseto.Parser
	key    paseto.V4SymmetricKey
	ttl    time.Duration
}

// New creates a PASETO v4 local token service. An empty hexKey generates a
// random key, so tokens do not survive a restart.
func New(hexKey string, ttl time.Duration) (port.TokenService, error) {
	key := paseto.NewV4SymmetricKey()
	if hexKey != "" {
		var err error
		key, err = paseto.V4SymmetricKeyFromHex(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid token key: %w", err)
		}
	}

	return &PasetoToken{
		parser: paseto.NewParserWithoutExpiryCheck(),
		key:    key,
		ttl:    ttl,
	}, nil
}

func (p *PasetoToken) CreateToken(payload *port.TokenPayload) (string, error) {
	if payload == nil || payload.UserID == "" {
		return "", domain.ErrTokenCreation
	}

	now := time.Now()
	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(p.ttl))

	err := token.Set(payloadClaim, payload)
	if err != nil {
		return "", domain.ErrTokenCreation
	}

	return token.V4Encrypt(p.key, nil), nil
}

func (p *PasetoToken) VerifyToken(token string) (*port.TokenPayload, error) {
	parsedToken, err := p.parser.ParseV4Local(p.key, token, nil)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	exp, err := parsedToken.GetExpiration()
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	if time.Now().After(exp) {
		return nil, domain.ErrExpiredToken
	}

	payload := port.TokenPayload{}
	err = parsedToken.Get(payloadClaim, &payload)
	if err != nil || payload.UserID == "" {
		return nil, domain.ErrInvalidToken
	}
	return &payload, nil
}
