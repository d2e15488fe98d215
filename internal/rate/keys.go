package rate

// Dimension names the identity a budget is keyed by.
const (
	DimensionEmail = "email"
	DimensionIP    = "ip"
	DimensionToken = "token"
)

// Key builds the sliding-window key for a scope and identity, for example
// ratelimit:otp_request_email:email:alice@example.com.
func Key(scope, dimension, identity string) string {
	return "ratelimit:" + scope + ":" + dimension + ":" + identity
}
