// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     errors
// Description: Error codes and severities used across condparse
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package errors

// Code represents a structured error code for categorizing errors
type Code string

const (
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeCanceled     Code = "CANCELED"
	CodeUnavailable  Code = "UNAVAILABLE"
	CodeConfig       Code = "CONFIG"

	// Parser
	CodeSyntax        Code = "SYNTAX"
	CodeInputTooLarge Code = "INPUT_TOO_LARGE"
	CodeUnknownRule   Code = "UNKNOWN_RULE"
)

// String returns the code as a string
func (c Code) String() string {
	return string(c)
}

// IsClientError reports whether the code describes a problem with the caller's input
func (c Code) IsClientError() bool {
	switch c {
	case CodeInvalidInput, CodeSyntax, CodeInputTooLarge, CodeUnknownRule:
		return true
	default:
		return false
	}
}

// Severity represents the severity level of an error
type Severity int

const (
	// SeverityLow is used for invalid user input
	SeverityLow Severity = iota

	// SeverityMedium is the default for unclassified errors
	SeverityMedium

	// SeverityHigh indicates a failure of the service itself
	SeverityHigh

	// SeverityCritical makes the process unusable
	SeverityCritical
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}
