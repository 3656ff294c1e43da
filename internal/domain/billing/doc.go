// Package billing models deferred billing of offline actions.
//
// Every billable action costs a fixed number of credits. Online actions are
// charged immediately. Offline actions are counted, up to a hard cap, and
// charged later as one lump sum. A failed lump-sum charge blocks every
// further billable action until the debt is settled.
package billing
