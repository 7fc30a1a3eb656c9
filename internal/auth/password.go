package auth

import "unicode"

type PasswordStrength string

const (
	PasswordWeak   PasswordStrength = "weak"
	PasswordGood   PasswordStrength = "good"
	PasswordStrong PasswordStrength = "strong"

	StrongPasswordLength = 12
)

// RatePassword оценивает пароль для индикатора на форме регистрации.
// Слабый: короче 12 символов или нет заглавных, строчных или цифр.
func RatePassword(password string) PasswordStrength {
	var upper, lower, digit, special bool
	length := 0
	for _, r := range password {
		length++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	if length < StrongPasswordLength || !upper || !lower || !digit {
		return PasswordWeak
	}
	if special {
		return PasswordStrong
	}
	return PasswordGood
}
