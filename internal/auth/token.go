// Package auth はベアラートークンの発行・検証と、トークン発行時の資格情報確認を提供する。
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken はトークンの署名不正、形式不正、期限切れのいずれかを表す。
var ErrInvalidToken = errors.New("invalid token")

// generatedKeySize は設定で鍵が与えられなかった場合に生成する鍵の長さ（HS256）。
const generatedKeySize = 32

// TokenConfig はトークンサービスの設定。
type TokenConfig struct {
	Secret     []byte        // HS256の署名鍵。空の場合は起動時にランダム生成する
	Expiration time.Duration // 発行から失効までの期間
	Issuer     string        // iss クレーム。空の場合は検証しない
}

// Claims は発行するトークンのクレーム。
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService はHS256署名のJWTを発行・検証する。
// サーバー側に失効リストは持たず、有効期限のみでライフサイクルが決まる。
type TokenService struct {
	key        []byte
	expiration time.Duration
	issuer     string
	now        func() time.Time
}

// NewTokenService はTokenServiceを生成する。
// cfg.Secretが空の場合はプロセス内で1回だけ鍵を生成する。
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Expiration <= 0 {
		return nil, fmt.Errorf("token expiration must be positive: %v", cfg.Expiration)
	}

	key := cfg.Secret
	if len(key) == 0 {
		key = make([]byte, generatedKeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
	}

	return &TokenService{
		key:        key,
		expiration: cfg.Expiration,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}, nil
}

// WithClock は時刻取得関数を差し替えたコピーを返す。テスト用。
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	c := *s
	c.now = now
	return &c
}

// Issue はsubjectを主体とする署名済みトークンを発行する。
func (s *TokenService) Issue(subject string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、主体を返す。
// 主体の存在確認や権限確認は行わない。
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyClaims はVerifyと同じ検証を行い、クレーム全体を返す。
func (s *TokenService) VerifyClaims(tokenString string) (*Claims, error) {
	return s.parse(tokenString)
}

func (s *TokenService) parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
