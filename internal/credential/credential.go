package credential

import "errors"

// Method is a physical authentication channel.
type Method string

const (
	MethodKeypad Method = "keypad"
	MethodBadge  Method = "badge"
)

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodKeypad:
		return MethodKeypad, nil
	case MethodBadge:
		return MethodBadge, nil
	}
	return "", ErrUnknownMethod
}

// Identity is the resolved owner of a credential.
type Identity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// OwnerCredential pairs a stored hash with its owning user, the unit the
// verifier scans over.
type OwnerCredential struct {
	UserID   int64
	Name     string
	CodeHash string
}

var (
	ErrUnknownMethod = errors.New("unknown authentication method")
	ErrUserNotFound  = errors.New("user not found")
)
