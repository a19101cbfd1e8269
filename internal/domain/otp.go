package domain

// OneTimeCode is a single-use login credential delivered over SMS.
// CodeID is a ULID, so querying the range key descending yields codes in
// reverse issuance order. ExpiresAt/IssuedAt are Unix seconds; expires_at
// doubles as the DynamoDB TTL attribute for storage hygiene.
type OneTimeCode struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	CodeID    string `json:"code_id" dynamodbav:"code_id"`
	Code      string `json:"-" dynamodbav:"code"`
	IssuedAt  int64  `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
}
