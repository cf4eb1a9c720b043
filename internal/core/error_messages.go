package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// Operators can quote the code when reporting a failed run.
//
// # Precondition Errors (PRE001-PRE099)
//
//	PRE001 - Missing column: An expected column is not in the input
//	         Action: Check the input header against the recipe's column list
//	PRE002 - Row out of range: A row position to drop does not exist
//	         Action: Check the input has the expected number of rows
//	PRE003 - Duplicate column: A column name appears twice
//	         Action: Rename or remove the duplicated column
//	PRE004 - Wrong column type: A column has the wrong type for the operation
//	         Action: Check the step order in the recipe
//	PRE000 - Any other precondition violation
//
// # Parse Errors (PARSE001-PARSE099)
//
//	PARSE001 - Invalid date: A date does not match the expected format
//	           Action: Fix the value so it reads day/month/year, e.g. 01/09/2000
//	PARSE002 - Invalid integer: A count is not a whole number
//	           Action: Fix the value or leave the cell empty
//	PARSE000 - Any other parse failure
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File not found
//	FILE002 - Invalid CSV: File is not a valid delimited text file
//	FILE003 - Encoding error: File contains undecodable bytes
//	FILE004 - No file: No file was provided
//	FILE005 - Empty file: The file has no header row
//	FILE006 - Invalid spreadsheet
//
// # Recipe Errors (RCP001-RCP099)
//
//	RCP001 - Unknown recipe
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timeout
//	REQ004 - Server busy: every preparation slot is in use
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Check the logs for the technical error
//
// # Matching
//
// Typed errors are matched first with errors.As/errors.Is. Remaining errors
// are matched case-insensitively against message patterns with
// strings.Contains; the first matching pattern wins, so specific patterns
// come before general ones.

import (
	"errors"
	"io/fs"
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

var (
	msgMissingColumn = UserMessage{
		Message: "An expected column is missing from the input",
		Action:  "Check the input header against the recipe's column list",
		Code:    "PRE001",
	}
	msgRowOutOfRange = UserMessage{
		Message: "A row position to drop does not exist in the input",
		Action:  "Check the input has the expected number of rows",
		Code:    "PRE002",
	}
	msgDuplicateColumn = UserMessage{
		Message: "A column name appears more than once",
		Action:  "Rename or remove the duplicated column",
		Code:    "PRE003",
	}
	msgWrongType = UserMessage{
		Message: "A column has the wrong type for this operation",
		Action:  "Check the step order in the recipe",
		Code:    "PRE004",
	}
	msgPrecondition = UserMessage{
		Message: "The input does not match what the recipe expects",
		Action:  "Check the input file and recipe configuration",
		Code:    "PRE000",
	}
	msgInvalidDate = UserMessage{
		Message: "A date does not match the expected format",
		Action:  "Fix the value so it reads day/month/year, e.g. 01/09/2000",
		Code:    "PARSE001",
	}
	msgInvalidInteger = UserMessage{
		Message: "A count is not a whole number",
		Action:  "Fix the value or leave the cell empty",
		Code:    "PARSE002",
	}
	msgParse = UserMessage{
		Message: "A value could not be converted",
		Action:  "Fix the value named in the error",
		Code:    "PARSE000",
	}
	msgFileNotFound = UserMessage{
		Message: "The file does not exist",
		Action:  "Check the path or the data directory setting",
		Code:    "FILE001",
	}
	msgEmptyFile = UserMessage{
		Message: "The file is empty",
		Action:  "Provide a file with a header row",
		Code:    "FILE005",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the file as UTF-8 or set the input encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was provided",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid spreadsheet",
		msg: UserMessage{
			Message: "File is not a valid spreadsheet",
			Action:  "Save the workbook as .xlsx",
			Code:    "FILE006",
		},
	},
	{
		pattern: "unknown recipe",
		msg: UserMessage{
			Message: "The recipe is not registered",
			Action:  "Run 'paraprep recipes' to list available recipes",
			Code:    "RCP001",
		},
	},
	{
		pattern: "too many concurrent runs",
		msg: UserMessage{
			Message: "The server is busy preparing other tables",
			Action:  "Wait a few seconds and try again",
			Code:    "REQ004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again with a smaller file",
			Code:    "REQ002",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the technical error",
	Code:    "ERR000",
}

// MapError converts a technical error into a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pre *PreconditionError
	if errors.As(err, &pre) {
		switch pre.Kind {
		case MissingColumn:
			return msgMissingColumn
		case RowOutOfRange:
			return msgRowOutOfRange
		case DuplicateColumn:
			return msgDuplicateColumn
		case WrongType:
			return msgWrongType
		}
		return msgPrecondition
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		switch {
		case strings.HasPrefix(pe.Want, "date"):
			return msgInvalidDate
		case pe.Want == "integer":
			return msgInvalidInteger
		}
		return msgParse
	}

	switch {
	case errors.Is(err, ErrPrecondition):
		return msgPrecondition
	case errors.Is(err, ErrParse):
		return msgParse
	case errors.Is(err, ErrEmptyFile):
		return msgEmptyFile
	case errors.Is(err, fs.ErrNotExist):
		return msgFileNotFound
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errStr, p.pattern) {
			return p.msg
		}
	}

	return defaultMessage
}

// FormatUserError returns a formatted string for display.
// Format: "Message. Action. (Code)"
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}
	msg := MapError(err)
	return msg.Message + ". " + msg.Action + ". (" + msg.Code + ")"
}
