package models

// Customer is the snapshot of customer data sent to the payment processor.
// It is resolved once per deposit by merging caller input with the stored
// user profile and persisted with the transaction as is.
type Customer struct {
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Country     string `json:"country"`
}
