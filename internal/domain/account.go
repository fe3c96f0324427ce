package domain

import "strings"

// Account identifies a participant: a donor, a beneficiary, the fee recipient or the
// administrative authority.
type Account string

// ZeroAccount is the canonical empty account.
const ZeroAccount Account = ""

const zeroAddress = "0x0000000000000000000000000000000000000000"

// IsZero reports whether the account is unset or the all-zero address.
func (a Account) IsZero() bool {
	s := strings.TrimSpace(string(a))
	return s == "" || strings.EqualFold(s, zeroAddress)
}

// Normalize trims surrounding whitespace and lowercases hex addresses so the same
// wallet is never recorded twice under different spellings.
func (a Account) Normalize() Account {
	s := strings.TrimSpace(string(a))
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = "0x" + strings.ToLower(s[2:])
	}
	return Account(s)
}

func (a Account) String() string { return string(a) }
