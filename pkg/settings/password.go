package settings

import (
	"fmt"
	"unicode"
)

// validatePassword evaluates a candidate against a password policy
func validatePassword(policy PasswordPolicy, candidate string) *PasswordValidation {
	var errs []string

	if len(candidate) < policy.MinLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", policy.MinLength))
	}

	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsNumber(r):
			hasNumber = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	if policy.RequireUppercase && !hasUpper {
		errs = append(errs, "password must contain an uppercase letter")
	}
	if policy.RequireLowercase && !hasLower {
		errs = append(errs, "password must contain a lowercase letter")
	}
	if policy.RequireNumbers && !hasNumber {
		errs = append(errs, "password must contain a number")
	}
	if policy.RequireSymbols && !hasSymbol {
		errs = append(errs, "password must contain a symbol")
	}

	return &PasswordValidation{Valid: len(errs) == 0, Errors: errs}
}
