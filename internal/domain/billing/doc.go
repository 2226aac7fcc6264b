// Package billing holds the invoicing and payment rules of the back office.
//
// Key pieces:
//   - Numbering: PREFIX-NNN document numbers derived from the numerically highest
//     existing number, with a timestamp fallback when the series cannot be read
//   - AggregateTrips: sums a same-client, same-date trip set into invoice totals
//   - ResolvePaymentStatus / ComputeOverdue: pure functions applied on every write
//   - Invoice, Bill, Payment aggregates and the append-only PaymentTransaction ledger
//
// Trips themselves live in the fleet package; billing sees them as TripLine values.
package billing
