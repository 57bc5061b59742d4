package domain

import "strings"

// KeyKind discriminates the resolution-key variants.
type KeyKind string

const (
	KeyEmail    KeyKind = "email"
	KeyAddress  KeyKind = "addr"
	KeyCompound KeyKind = "biz"
)

// ResolutionKey identifies the real-world entity a record belongs to. Persons
// resolve on email (chain address when no email is present); businesses resolve
// on the (email, business name) pair because several businesses can share an
// administrative contact email.
type ResolutionKey struct {
	Kind    KeyKind
	Email   string
	Address string
	Name    string
}

// IsZero reports whether no usable key could be derived.
func (k ResolutionKey) IsZero() bool {
	return k.Email == "" && k.Address == ""
}

// String renders the key in its canonical map-key form.
func (k ResolutionKey) String() string {
	switch k.Kind {
	case KeyAddress:
		return "addr:" + k.Address
	case KeyCompound:
		return "biz:" + k.Email + "|" + strings.ToLower(k.Name)
	default:
		return "email:" + k.Email
	}
}

// CanonicalEmail lowercases and trims an email. Strings without an '@' are not
// emails and are treated as absent rather than carried as literal values.
func CanonicalEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.Contains(s, "@") {
		return ""
	}
	return s
}

// CanonicalAddress lowercases and trims a chain address. Strings that do not
// start with "0x" are treated as absent.
func CanonicalAddress(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") {
		return ""
	}
	return s
}

// ParseKey canonicalizes a caller-supplied lookup key. Accepts the prefixed
// forms produced by ResolutionKey.String as well as bare emails and 0x
// addresses.
func ParseKey(s string) ResolutionKey {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "email:"):
		return ResolutionKey{Kind: KeyEmail, Email: CanonicalEmail(strings.TrimPrefix(s, "email:"))}
	case strings.HasPrefix(s, "addr:"):
		return ResolutionKey{Kind: KeyAddress, Address: CanonicalAddress(strings.TrimPrefix(s, "addr:"))}
	case strings.HasPrefix(s, "biz:"):
		rest := strings.TrimPrefix(s, "biz:")
		email, name, _ := strings.Cut(rest, "|")
		return ResolutionKey{Kind: KeyCompound, Email: CanonicalEmail(email), Name: strings.TrimSpace(name)}
	}
	if addr := CanonicalAddress(s); addr != "" {
		return ResolutionKey{Kind: KeyAddress, Address: addr}
	}
	return ResolutionKey{Kind: KeyEmail, Email: CanonicalEmail(s)}
}
