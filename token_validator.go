package auth

import "github.com/goliatone/go-welfare-auth/middleware/jwtware"

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Verify(tokenString string) (*Claims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (*Claims, error)

// Verify satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Verify(tokenString string) (*Claims, error) {
	if f == nil {
		return nil, ErrTokenMalformed.Clone()
	}
	return f(tokenString)
}

// jwtwareValidator bridges a TokenValidator to the middleware contract.
type jwtwareValidator struct {
	validator TokenValidator
}

func (v jwtwareValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.validator.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
