package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_TransactionID(t *testing.T) {
	s := &Session{ID: "cs_1", PaymentIntentID: "pi_1"}
	assert.Equal(t, "pi_1", s.TransactionID())

	s.PaymentIntentID = ""
	assert.Equal(t, "cs_1", s.TransactionID())
}

func TestSession_IsPaid(t *testing.T) {
	assert.True(t, (&Session{PaymentStatus: PaymentStatusPaid}).IsPaid())
	assert.False(t, (&Session{PaymentStatus: "unpaid"}).IsPaid())
}
