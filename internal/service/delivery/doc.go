// Package delivery tracks outbound campaign messages and applies the
// asynchronous delivery statuses reported by messaging providers.
//
// Rows are correlated by provider message id. Status transitions are
// monotonic (sent → delivered or sent → failed); replaying a terminal
// status is a no-op, and an unknown correlation id is expected — the
// message may predate tracking or belong to another environment.
package delivery
