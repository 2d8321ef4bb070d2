// Package strategy implements the traffic split between the primary
// (fraud-score) and secondary (lead-delivery) destinations.
//
// The split is deterministic rather than random: a shared counter advances on
// every decision and the request that lands on a bucket boundary takes the
// less frequent route. With a 75% split every fourth request goes to the
// secondary destination; with a 25% split every fourth request goes to the
// primary one.
//
// The counter belongs to the Splitter instance, so tests and independent
// dispatchers never share state.
package strategy
