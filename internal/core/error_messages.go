package core

// error_messages.go maps technical errors to messages users can act on.
//
// Every message carries a code so a user can quote it to support:
//
//	FILE001-FILE099  uploaded or referenced files
//	MAP001-MAP099    column mappings and the field catalog
//	DB001-DB099      persistence
//	JOB001-JOB099    comparisons and scheduled tasks
//	RATE001          request throttling
//	ERR000           anything unrecognized
//
// Sentinel errors are matched with errors.Is first. Errors that only carry
// text (driver errors, wrapped strings from other packages) fall back to a
// case-insensitive substring table where the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tabdiff/internal/compare"
	"github.com/JonMunkholm/tabdiff/internal/mapping"
	"github.com/JonMunkholm/tabdiff/internal/source"
	"github.com/JonMunkholm/tabdiff/internal/store"
	"github.com/JonMunkholm/tabdiff/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file or compare a smaller extract",
		Code:    "FILE001",
	}
	msgUnsupportedFormat = UserMessage{
		Message: "File type is not supported",
		Action:  "Upload a CSV, Excel (.xlsx) or JSON file",
		Code:    "FILE002",
	}
	msgMalformed = UserMessage{
		Message: "File could not be read",
		Action:  "Check that the file is not truncated and has a single header row",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "Two files are required",
		Action:  "Select both files to compare",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload a file with a header row and data",
		Code:    "FILE005",
	}
	msgSourceNotFound = UserMessage{
		Message: "Source file not found",
		Action:  "Check the path or s3:// location and try again",
		Code:    "FILE006",
	}
	msgColumnNotFound = UserMessage{
		Message: "No column matches the requested field",
		Action:  "Add the column name as a variation of the field type, or map columns manually",
		Code:    "MAP001",
	}
	msgFieldMissing = UserMessage{
		Message: "A mapped column is missing from one of the files",
		Action:  "Check the column names in your field mappings",
		Code:    "MAP002",
	}
	msgInvalidMapping = UserMessage{
		Message: "Field mappings are invalid",
		Action:  "Provide at least one pair of column names",
		Code:    "MAP003",
	}
	msgMappingNotFound = UserMessage{
		Message: "Field mapping not found",
		Action:  "Refresh the catalog and try again",
		Code:    "MAP004",
	}
	msgDuplicate = UserMessage{
		Message: "A field type with this name already exists",
		Action:  "Add variations to the existing field type instead",
		Code:    "DB001",
	}
	msgConnRefused = UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB002",
	}
	msgConnReset = UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB003",
	}
	msgTimeout = UserMessage{
		Message: "Operation timed out",
		Action:  "Try smaller files or try again later",
		Code:    "DB004",
	}
	msgJobNotFound = UserMessage{
		Message: "Comparison not found",
		Action:  "It may have been removed. Run the comparison again",
		Code:    "JOB001",
	}
	msgTaskNotFound = UserMessage{
		Message: "Scheduled task not found",
		Action:  "Verify the task ID",
		Code:    "JOB002",
	}
	msgBusy = UserMessage{
		Message: "Too many comparisons in progress",
		Action:  "Please wait a moment and try again",
		Code:    "JOB003",
	}
	msgInvalidTask = UserMessage{
		Message: "Scheduled task is invalid",
		Action:  "Check the name, paths, fields and frequency",
		Code:    "JOB004",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "JOB005",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// sentinelMessages is checked in order with errors.Is.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrFileTooLarge, msgFileTooLarge},
	{table.ErrUnsupportedFormat, msgUnsupportedFormat},
	{table.ErrMalformedInput, msgMalformed},
	{ErrNoFile, msgNoFile},
	{ErrEmptyFile, msgEmptyFile},
	{source.ErrNotFound, msgSourceNotFound},
	{source.ErrInvalidURI, msgSourceNotFound},
	{mapping.ErrColumnNotFound, msgColumnNotFound},
	{compare.ErrFieldMissing, msgFieldMissing},
	{ErrInvalidMapping, msgInvalidMapping},
	{ErrMappingNotFound, msgMappingNotFound},
	{store.ErrDuplicate, msgDuplicate},
	{ErrJobNotFound, msgJobNotFound},
	{ErrTaskNotFound, msgTaskNotFound},
	{ErrTooManyComparisons, msgBusy},
	{ErrInvalidTask, msgInvalidTask},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPattern maps a lowercase substring to a message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that arrive without a sentinel, mostly from
// the database driver and the HTTP layer. Specific patterns come first.
var errorPatterns = []errorPattern{
	{"duplicate key", msgDuplicate},
	{"violates unique", msgDuplicate},
	{"connection refused", msgConnRefused},
	{"connection reset", msgConnReset},
	{"request body too large", msgFileTooLarge},
	{"file too large", msgFileTooLarge},
	{"no such file", msgSourceNotFound},
	{"column not found", msgColumnNotFound},
	{"too many comparisons", msgBusy},
	{"rate limit", msgRateLimited},
	{"context canceled", msgCancelled},
	{"timeout", msgTimeout},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. A nil
// error yields the zero UserMessage; unknown errors yield ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message. Error returns the
// user text; Unwrap returns the original for logging and errors.Is.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
