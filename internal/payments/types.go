// Package payments records confirmed payments and reconciles checkout
// sessions into them.
package payments

import "time"

// Payment is an immutable receipt for one processor transaction.
type Payment struct {
	ID            string    `json:"_id" dynamodbav:"_id"`
	Amount        float64   `json:"amount" dynamodbav:"amount"`
	Currency      string    `json:"currency" dynamodbav:"currency"`
	CustomerEmail string    `json:"customer_email" dynamodbav:"customer_email"`
	OrderID       string    `json:"orderId" dynamodbav:"orderId"`
	OrderName     string    `json:"orderName" dynamodbav:"orderName"`
	TransactionID string    `json:"transactionId" dynamodbav:"transactionId"`
	PaymentStatus string    `json:"paymentStatus" dynamodbav:"paymentStatus"`
	Status        string    `json:"status" dynamodbav:"status"`
	PaidAt        time.Time `json:"paidAt" dynamodbav:"paidAt"`
	TrackingID    string    `json:"trackingId" dynamodbav:"trackingId"`
}
