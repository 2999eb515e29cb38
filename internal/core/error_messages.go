package core

// Error codes.
//
// This file maps technical errors to user-facing messages with codes that
// users can quote to support staff. Codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large            Patterns: "file too large"
//	FILE002 - Invalid CSV               Patterns: "parse csv"
//	FILE003 - Unreadable spreadsheet    Patterns: "parse xls" (also matches "parse xlsx")
//	FILE004 - No file                   Patterns: "no file provided"
//	FILE005 - Empty sheet               Patterns: "no data found", "empty sheet"
//
// # View Errors (VIEW001-VIEW099)
//
//	VIEW001 - Unknown column            Patterns: "column not found"
//	VIEW002 - Unknown action            Patterns: "unknown view event"
//	VIEW003 - Bad page size             Patterns: "rows per page"
//	VIEW004 - Unknown row               Patterns: "row not found"
//
// # Export and Mail Errors (EXP001, MAIL001-MAIL099)
//
//	EXP001  - Nothing to export         Patterns: "no rows to export"
//	MAIL001 - No email column           Patterns: "no \"email\" column"
//	MAIL002 - No selection              Patterns: "select at least one row"
//	MAIL003 - Batch not found           Patterns: "batch not found"
//	MAIL004 - Mail not configured       Patterns: "mail relay not configured"
//
// # Session and Request Errors (SES001, UPL001-UPL099, RATE001)
//
//	SES001  - Session expired           Patterns: "session not found"
//	UPL001  - System busy               Patterns: "too many uploads"
//	UPL004  - Request cancelled         Patterns: "context canceled"
//	UPL005  - Request timeout           Patterns: "context deadline exceeded"
//	RATE001 - Rate limited              Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check application logs for the
// original technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused rows or columns and upload again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "parse xls",
		msg: UserMessage{
			Message: "Spreadsheet could not be read",
			Action:  "Save the workbook again in Excel or export it as CSV",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a CSV or XLSX file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no data found",
		msg: UserMessage{
			Message: "No data found in sheet",
			Action:  "Upload a sheet with a header row and at least one data row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "empty sheet",
		msg: UserMessage{
			Message: "No data found in sheet",
			Action:  "Upload a sheet with a header row and at least one data row",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// View Errors
	// =========================================================================
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "That column is not in the loaded file",
			Action:  "Pick one of the table headers",
			Code:    "VIEW001",
		},
	},
	{
		pattern: "unknown view event",
		msg: UserMessage{
			Message: "Unsupported table action",
			Action:  "Reload the page and try again",
			Code:    "VIEW002",
		},
	},
	{
		pattern: "rows per page",
		msg: UserMessage{
			Message: "Rows per page must be a positive number",
			Action:  "Choose one of the listed page sizes",
			Code:    "VIEW003",
		},
	},
	{
		pattern: "row not found",
		msg: UserMessage{
			Message: "That row is not in the loaded file",
			Action:  "Reload the table and try again",
			Code:    "VIEW004",
		},
	},

	// =========================================================================
	// Export and Mail Errors
	// =========================================================================
	{
		pattern: "no rows to export",
		msg: UserMessage{
			Message: "No rows to export",
			Action:  "Clear the filters or select rows first",
			Code:    "EXP001",
		},
	},
	{
		pattern: `no "email" column`,
		msg: UserMessage{
			Message: `No "Email" column found in the file`,
			Action:  `Add a column whose name includes "email"`,
			Code:    "MAIL001",
		},
	},
	{
		pattern: "select at least one row",
		msg: UserMessage{
			Message: "Select at least one row to send emails",
			Action:  "Tick the rows you want to email",
			Code:    "MAIL002",
		},
	},
	{
		pattern: "batch not found",
		msg: UserMessage{
			Message: "Mail batch not found",
			Action:  "The batch may have expired. Send again if needed",
			Code:    "MAIL003",
		},
	},
	{
		pattern: "mail relay not configured",
		msg: UserMessage{
			Message: "Email sending is not configured",
			Action:  "Set the EmailJS service, template and key settings",
			Code:    "MAIL004",
		},
	},

	// =========================================================================
	// Session and Request Errors
	// =========================================================================
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Your session has expired",
			Action:  "Reload the page and upload the file again",
			Code:    "SES001",
		},
	},
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// The first matching pattern wins; unmatched errors get ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, strings.ToLower(ep.pattern)) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
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

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
