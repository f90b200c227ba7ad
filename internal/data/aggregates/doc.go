// Package aggregates implements the content store on top of the table repos in
// internal/data/repos. Each write method opens its own transaction, maps driver errors
// to coded aggregate errors and reports timing through Hooks.
package aggregates
