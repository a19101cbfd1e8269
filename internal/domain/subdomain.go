package domain

import "time"

// SubdomainAssignment is the exclusive binding of one normalized label to one user.
// The label itself is the partition key, so the storage layer enforces global uniqueness.
type SubdomainAssignment struct {
	Name      string    `json:"name" dynamodbav:"name"`
	OwnerID   string    `json:"owner_id" dynamodbav:"owner_id"`
	Active    bool      `json:"active" dynamodbav:"active"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// Availability reasons reported by the registry.
const (
	ReasonOK            = "ok"
	ReasonInvalidFormat = "invalid_format"
	ReasonReserved      = "reserved"
	ReasonTaken         = "taken"
)

// SubdomainCheck is the result of an availability check or assignment attempt.
// Expected failures (bad format, reserved, taken) are reported here, never as errors.
type SubdomainCheck struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
	Name      string `json:"name"`
}
