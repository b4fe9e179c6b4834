package config

// SecretsProvider resolves the shared secrets the webhook gateway verifies
// against. It is constructed once at process startup and injected into the
// gateway, so handlers never read process-wide environment state at request
// time and tests never have to mutate env vars.
//
// An empty return value means the secret is not configured; the gateway
// maps that to a configuration error (500), distinct from a bad token (401).
type SecretsProvider interface {
	// DiscountSecret is the shared secret for conversion-capture calls.
	DiscountSecret() string
	// DiscountSecretHeaders lists the accepted header names for the
	// discount secret, lowest-index name preferred.
	DiscountSecretHeaders() []string
	// TwilioToken is the bearer token for Twilio delivery webhooks.
	TwilioToken() string
	// ResendToken is the bearer token for Resend delivery webhooks.
	ResendToken() string
}

// StaticSecrets is a SecretsProvider holding values resolved at startup.
type StaticSecrets struct {
	Discount        string
	DiscountHeaders []string
	Twilio          string
	Resend          string
}

// Secrets builds a StaticSecrets from the loaded configuration.
func (c *Config) Secrets() *StaticSecrets {
	return &StaticSecrets{
		Discount:        c.Webhooks.DiscountSecret,
		DiscountHeaders: c.Webhooks.DiscountSecretHeaders,
		Twilio:          c.Webhooks.TwilioToken,
		Resend:          c.Webhooks.ResendToken,
	}
}

func (s *StaticSecrets) DiscountSecret() string          { return s.Discount }
func (s *StaticSecrets) DiscountSecretHeaders() []string { return s.DiscountHeaders }
func (s *StaticSecrets) TwilioToken() string             { return s.Twilio }
func (s *StaticSecrets) ResendToken() string             { return s.Resend }
