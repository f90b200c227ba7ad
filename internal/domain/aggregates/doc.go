// Package aggregates defines the content store contract and the coded errors shared by
// every write boundary in the service.
//
// Contracts here carry no persistence details; implementations live in internal/data/aggregates.
package aggregates
