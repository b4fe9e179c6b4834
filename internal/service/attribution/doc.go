// Package attribution maps an inbound signal — a referral code, a discount
// code, or an explicit ambassador id — to exactly one ambassador.
//
// Resolution is a pure read: the resolver never writes. Callers decide
// whether a successful lookup warrants a link_visit event. Code lookups are
// whitespace-trimmed and case-insensitive; blank input is a validation
// error, not a miss.
package attribution
