// Package referral implements the referral lifecycle state machine.
//
// A referral is created pending and moves to completed exactly once, via an
// atomic conditional write (UPDATE ... WHERE status = 'pending'). Completing
// an already-completed referral is a successful no-op: no second reward, no
// duplicate events. This is what makes the whole settlement pipeline safe
// under at-least-once webhook delivery.
package referral
