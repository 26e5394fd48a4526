package auth

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidateLoginCredentials checks the obvious mistakes before a network
// round-trip; the server remains authoritative.
func ValidateLoginCredentials(credentials LoginCredentials) error {
	if err := validateEmail(credentials.Email); err != nil {
		return err
	}
	if credentials.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// ValidateRegisterData checks a registration form client-side.
func ValidateRegisterData(data RegisterData) error {
	if strings.TrimSpace(data.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if err := validateEmail(data.Email); err != nil {
		return err
	}
	if err := ValidatePasswordStrength(data.Password); err != nil {
		return err
	}
	if !data.AcceptTerms {
		return fmt.Errorf("terms of service must be accepted")
	}
	if !data.AcceptPrivacyPolicy {
		return fmt.Errorf("privacy policy must be accepted")
	}
	return nil
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return fmt.Errorf("email address is not valid")
	}
	return nil
}
