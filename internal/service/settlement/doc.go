// Package settlement releases the reward for a completed referral: it
// credits the ambassador balance, stamps the referral's rewarded_at,
// appends the payout event, optionally writes the credit ledger, and
// triggers the reward notification.
//
// The engine has no idempotency key of its own. Exactly-once settlement is
// guaranteed by the referral lifecycle's conditional pending→completed
// transition, which invokes the engine at most once per referral.
package settlement
