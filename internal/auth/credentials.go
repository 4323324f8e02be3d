package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialChecker はトークン発行エンドポイントのユーザー名・パスワードを確認する。
// パスワードは起動時にbcryptでハッシュ化し、平文は保持しない。
type CredentialChecker struct {
	username     string
	passwordHash []byte
}

// NewCredentialChecker はCredentialCheckerを生成する。
// usernameまたはpasswordが空の場合は資格情報によるログインを無効としてnilを返す。
func NewCredentialChecker(username, password string) (*CredentialChecker, error) {
	if username == "" || password == "" {
		return nil, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &CredentialChecker{
		username:     username,
		passwordHash: hash,
	}, nil
}

// Check は資格情報が一致するかを返す。
// ユーザー名の一致に関わらず常にbcrypt比較を行う。
func (c *CredentialChecker) Check(username, password string) bool {
	if c == nil {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
	return userOK && passOK
}
