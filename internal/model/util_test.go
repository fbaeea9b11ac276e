package model

import (
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChurchIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^CH-[A-Z0-9]{9}$`)
	for i := 0; i < 200; i++ {
		id := NewChurchID()
		assert.Regexp(t, pattern, id)
	}
}

func TestNewMemberIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^M-[A-Z0-9]{6}$`)
	for i := 0; i < 200; i++ {
		id := NewMemberID()
		assert.Regexp(t, pattern, id)
	}
}

func TestNewPINRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		pin := NewPIN()
		require.Len(t, pin, 6)
		n, err := strconv.Atoi(pin)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestSyntheticEmail(t *testing.T) {
	email := SyntheticEmail("M-A1B2C3", "@members.umutulo.app")
	assert.Equal(t, "m-a1b2c3@members.umutulo.app", email)
}

func TestValidTransactionType(t *testing.T) {
	assert.True(t, ValidTransactionType(TypeTithe))
	assert.True(t, ValidTransactionType(TypeOffering))
	assert.True(t, ValidTransactionType(TypePartnership))
	assert.False(t, ValidTransactionType("Donation"))
	assert.False(t, ValidTransactionType(""))
	assert.False(t, ValidTransactionType("tithe"))
}
