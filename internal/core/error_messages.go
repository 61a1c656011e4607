// error_messages.go maps technical errors to user-facing messages with a
// code that support staff can look up.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large        Patterns: "file too large"
//	FILE002 - Invalid CSV           Patterns: "invalid csv"
//	FILE003 - Encoding error        Patterns: "encoding error", "valid utf-8"
//	FILE004 - File not found        Patterns: "file not found", "no file provided"
//	FILE005 - Empty file            Patterns: "empty file"
//	FILE006 - Unsupported format    Patterns: "unsupported format"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL002 - Invalid number         Patterns: "invalid number"
//	VAL005 - Column not found       Patterns: "column not found"
//	VAL007 - Invalid argument       Patterns: "invalid argument"
//
// # Table and Session Errors (TBL001-TBL099, SES001-SES099)
//
//	TBL001 - No table loaded        Patterns: "no table loaded"
//	SES001 - Session not found      Patterns: "session not found"
//	SES002 - Too many sessions      Patterns: "too many sessions"
//	SES003 - System busy            Patterns: "too many concurrent loads"
//
// # Request Errors (REQ001-REQ099, RATE001)
//
//	REQ001 - Request cancelled      Patterns: "context canceled"
//	REQ002 - Request timed out      Patterns: "context deadline exceeded"
//	RATE001 - Rate limited          Patterns: "rate limit"
//
// Anything else maps to ERR000. A rule matches when errors.Is finds one of
// its sentinels or its pattern occurs in the lowercased message. Rules are
// tried in order, so loader.ErrTooLarge is caught before the
// table.ErrInvalidArgument it wraps.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dataprep/internal/loader"
	"github.com/JonMunkholm/dataprep/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorRule struct {
	sentinels []error
	patterns  []string
	msg       UserMessage
}

func (r errorRule) matches(err error, lowered string) bool {
	for _, s := range r.sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	for _, p := range r.patterns {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

// Keep the reference at the top of this file in sync.
var errorRules = []errorRule{
	{
		[]error{loader.ErrTooLarge}, []string{"file too large"},
		UserMessage{"File exceeds the maximum size limit", "Split the file into smaller chunks", "FILE001"},
	},
	{
		[]error{table.ErrParse}, []string{"invalid csv"},
		UserMessage{"File is not a valid CSV", "Check the delimiter and that no row has more fields than the header", "FILE002"},
	},
	{
		[]error{table.ErrUndetectedEncoding}, []string{"encoding error"},
		UserMessage{"The file encoding could not be determined", "Save the file as UTF-8 or name its encoding", "FILE003"},
	},
	{
		nil, []string{"valid utf-8"},
		UserMessage{"File contains invalid characters", "Save the file as UTF-8 or name its encoding", "FILE003"},
	},
	{
		[]error{table.ErrNotFound}, []string{"file not found"},
		UserMessage{"The file was not found", "Check the path and try again", "FILE004"},
	},
	{
		nil, []string{"no file provided"},
		UserMessage{"No file was provided", "Send the CSV content in the request body", "FILE004"},
	},
	{
		[]error{table.ErrEmptyData}, []string{"empty file"},
		UserMessage{"The file is empty", "Provide a CSV file with a header and data rows", "FILE005"},
	},
	{
		[]error{table.ErrUnsupportedFormat}, []string{"unsupported format"},
		UserMessage{"Unsupported file format", "Only CSV files can be loaded", "FILE006"},
	},

	{
		[]error{table.ErrCoercion}, []string{"invalid number"},
		UserMessage{"A value could not be converted to a number", "Remove thousands separators or fix the value before converting", "VAL002"},
	},
	{
		[]error{table.ErrColumnNotFound}, []string{"column not found"},
		UserMessage{"Column not found in the table", "Check the column name against the table schema", "VAL005"},
	},
	{
		[]error{table.ErrInvalidArgument}, []string{"invalid argument"},
		UserMessage{"The request is missing a value or has a malformed one", "Check the request parameters", "VAL007"},
	},

	{
		[]error{table.ErrNotLoaded}, []string{"no table loaded"},
		UserMessage{"No table is loaded", "Load a CSV file first", "TBL001"},
	},
	{
		[]error{ErrSessionNotFound}, []string{"session not found"},
		UserMessage{"Table session not found", "The session may have expired. Load the file again", "SES001"},
	},
	{
		[]error{ErrTooManySessions}, []string{"too many sessions"},
		UserMessage{"Too many tables are held", "Delete a table you no longer need and try again", "SES002"},
	},
	{
		[]error{ErrTooManyLoads}, []string{"too many concurrent loads"},
		UserMessage{"System is busy loading other files", "Please wait a moment and try again", "SES003"},
	},

	{
		[]error{context.Canceled}, []string{"context canceled"},
		UserMessage{"Request was cancelled", "Please try again", "REQ001"},
	},
	{
		[]error{context.DeadlineExceeded}, []string{"context deadline exceeded"},
		UserMessage{"Request timed out", "Try a smaller file or try again later", "REQ002"},
	},
	{
		nil, []string{"rate limit"},
		UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"},
	},
}

// defaultMessage is the ERR000 fallback. The technical error is in the logs.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message using the
// first matching rule, or the ERR000 fallback.
//
//	msg := MapError(table.ErrEmptyData)
//	// msg.Code == "FILE005"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	lowered := strings.ToLower(err.Error())
	for _, r := range errorRules {
		if r.matches(err, lowered) {
			return r.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// The CLI prints this form.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
// Use this to decide whether to show the raw error or the mapped user message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err and keeps it reachable through Unwrap.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
