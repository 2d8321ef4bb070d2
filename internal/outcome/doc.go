// Package outcome turns an upstream response body into a verdict and builds
// the enriched record that is stored for every dispatched lead.
//
// Each destination type has its own rules:
//   - fraud_score: the lead passes when the service reports success, the
//     number is valid, the fraud score is below the configured maximum and
//     there is no recent abuse. A body that cannot be parsed, or that lacks
//     these fields, fails the lead and fills the record with "N/A".
//   - lead_delivery: the lead passes when the service reports
//     outcome "success". A body that cannot be parsed passes as well.
//
// Classification never fails. Malformed input always yields a Verdict.
package outcome
