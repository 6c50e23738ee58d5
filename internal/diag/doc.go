// Package diag defines the diagnostic model shared by every analysis
// phase: severities, stable numeric codes, the Diagnostic value itself,
// and the Bag/Reporter plumbing that collects findings in detection order.
package diag
