package model

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomFromAlphabet returns n characters drawn uniformly from idAlphabet.
func randomFromAlphabet(n int) string {
	var sb strings.Builder
	max := big.NewInt(int64(len(idAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the system entropy source is broken
			panic(err)
		}
		sb.WriteByte(idAlphabet[idx.Int64()])
	}
	return sb.String()
}

// NewChurchID generates a church id in the format CH-XXXXXXXXX
// where X is an uppercase base-36 character.
func NewChurchID() string {
	return "CH-" + randomFromAlphabet(9)
}

// NewMemberID generates a member id in the format M-XXXXXX.
// The 36^6 space is small enough that callers must check for
// collisions before persisting.
func NewMemberID() string {
	return "M-" + randomFromAlphabet(6)
}

// NewPIN generates a 6-digit login PIN in [100000, 999999].
func NewPIN() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		panic(err)
	}
	return strconv.FormatInt(n.Int64()+100000, 10)
}

// SyntheticEmail derives a placeholder login email for members provisioned
// without one: the lower-cased member id plus the configured domain suffix.
func SyntheticEmail(memberID, domain string) string {
	return strings.ToLower(memberID) + domain
}
