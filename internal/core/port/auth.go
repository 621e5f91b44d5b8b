package port

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type TokenPayload struct {
	UserID string
	Role   string
}

func (p *TokenPayload) IsAdmin() bool {
	return p.Role == RoleAdmin
}

//go:generate mockgen -source=auth.go -destination=mock/auth.go -package=mock
type TokenService interface {
	CreateToken(payload *TokenPayload) (string, error)
	VerifyToken(token string) (*TokenPayload, error)
}
