package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength bcrypt 只使用前 72 字节
const MaxLength = 72

var ErrTooLong = errors.New("password exceeds 72 bytes")

// Cost 哈希强度，测试中可调低
var Cost = bcrypt.DefaultCost

// Hash 生成密码哈希
func Hash(plain string) (string, error) {
	if len(plain) > MaxLength {
		return "", ErrTooLong
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify 校验密码，哈希格式无效时返回 false
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NeedsRehash 哈希强度低于当前 Cost 时返回 true
func NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < Cost
}
