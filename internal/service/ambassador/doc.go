// Package ambassador manages ambassador profiles: quick-add creation with
// unique referral/discount code generation, lookups, and status
// progression (pending → verified on first confirmed engagement → active).
//
// Credit balances are NOT mutated here; only the settlement engine credits
// an ambassador.
package ambassador
