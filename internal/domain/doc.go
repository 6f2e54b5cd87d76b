// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (records, menu choices, limits) and contracts
// (store and registry interfaces) only.
package domain
