package domain

// SubscriptionAttempt is published when a subscription-validation charge is declined
type SubscriptionAttempt struct {
	ID                   string `json:"id,omitempty"`
	Code                 string `json:"code"`
	Message              string `json:"message"`
	Description          string `json:"description"`
	TransactionReference string `json:"transactionReference"`
	MerchantID           string `json:"merchantId"`
	SubscriptionID       string `json:"subscriptionId,omitempty"`
	PlanName             string `json:"planName,omitempty"`
	Periodicity          string `json:"periodicity,omitempty"`
	StartDate            string `json:"startDate,omitempty"`
	Created              int64  `json:"created"`
}

// DefaultAttemptMessage is used when a declined attempt carries no rule or response text
const DefaultAttemptMessage = "Transacción declinada en la validación de la suscripción."

// FailedCharge is the audit record left when a charge fails before a transaction is built
type FailedCharge struct {
	TransactionReference string `json:"transaction_reference"`
	MerchantID           string `json:"merchant_id"`
	ProcessorID          string `json:"processor_id"`
	ProcessorName        string `json:"processor_name"`
	Method               string `json:"method"`
	Code                 string `json:"code"`
	Message              string `json:"message"`
	StatusCode           int    `json:"status_code"`
	Created              int64  `json:"created"`
}
