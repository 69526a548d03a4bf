// Package model defines the tick record shared across the persistence pipeline.
//
// Conventions:
//   - Timestamps: time.Time normalized to UTC; (symbol, ts) is the natural key
//   - Prices: float64 as delivered by the terminal (no internal integer encoding)
//   - Volume: int64 contract/lot count
package model
