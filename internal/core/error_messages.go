// Package core error codes reference.
//
// This file defines user-friendly error messages with codes for support
// reference. When users encounter errors, they can quote the error code to
// support staff for faster diagnosis.
//
// # Format Errors (FMT001-FMT099)
//
// REQ001 is checked first so a bad form field wrapping a format error maps
// to the request, not the file.
//
//	FMT001 - Unsupported file type
//	         Action: Upload a .csv, .xlsx or .xls file
//	         Matched: *UnsupportedFormatError
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File is larger than the upload limit
//	          Action: Split the file or remove unused columns before uploading
//	          Matched: ErrFileTooLarge
//
//	FILE002 - Invalid file: The file could not be read as its declared format
//	          Action: Check the file opens in a spreadsheet program
//	          Matched: *DecodeError
//
//	FILE003 - Encoding error: File contains invalid characters
//	          Action: Save file as UTF-8 encoding
//	          Matched: ErrInvalidEncoding
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a file to upload
//	          Matched: ErrNoFile
//
//	FILE005 - Empty file: The uploaded file is empty
//	          Action: Please upload a file with a header row
//	          Matched: ErrEmptyFile
//
// # Cleaning Errors (CLN001-CLN099)
//
//	CLN001 - Empty numeric column: A column has no values to average
//	         Action: Remove the column or fill it in before uploading
//	         Matched: *EmptyNumericColumnError
//
//	CLN002 - Unknown cleaning operation
//	         Action: Use remove_duplicates or fill_missing
//	         Matched: ErrUnknownCleaningOp
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Unknown column: A selected column does not exist
//	         Action: Choose columns from the file's header
//	         Matched: *UnknownColumnError
//
//	COL002 - Duplicate column: A column name appears more than once
//	         Action: Select each column once
//	         Matched: ErrDuplicateColumn
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Export failed: The file could not be written
//	         Action: Try the other export format
//	         Matched: *EncodeError
//
// # Pipeline Errors (PIPE001-PIPE099)
//
//	PIPE001 - Step out of order
//	          Action: Upload and decode the file before cleaning or exporting
//	          Matched: *InvalidTransitionError
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - Too many files in one request
//	         Action: Upload fewer files at once
//	         Matched: ErrTooManyFiles
//
//	UPL002 - System busy: Too many uploads in progress
//	         Action: Please wait a moment and try again
//	         Matched: ErrTooManyUploads
//
//	UPL004 - Request cancelled
//	         Matched: context.Canceled
//
//	UPL005 - Request timeout
//	         Matched: context.DeadlineExceeded
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Malformed request: a form field could not be read
//	         Matched: ErrBadRequest
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests from this address
//	          Matched: ErrRateLimited
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check application
// logs for the original technical error.
//
// # Matching
//
// Errors are matched with errors.As / errors.Is, so wrapped errors resolve
// to their most specific kind. Message text is never inspected.
package core

import (
	"context"
	"errors"
	"fmt"
)

// UserMessage is what a user sees for an error: what happened, what to do
// and a code to quote to support.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

// errorKind pairs a matcher with the message shown for it.
type errorKind struct {
	match func(error) bool
	msg   UserMessage
}

func isType[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

func isErr(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// errorKinds is checked in order and the first match wins. Encoding and
// empty-file causes sit inside a DecodeError, so they come before it.
var errorKinds = []errorKind{
	{
		match: isErr(ErrBadRequest),
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the form fields and try again",
			Code:    "REQ001",
		},
	},
	{
		match: isType[*UnsupportedFormatError],
		msg: UserMessage{
			Message: "Unsupported file type",
			Action:  "Upload a .csv, .xlsx or .xls file",
			Code:    "FMT001",
		},
	},
	{
		match: isErr(ErrInvalidEncoding),
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		match: isErr(ErrEmptyFile),
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with a header row",
			Code:    "FILE005",
		},
	},
	{
		match: isType[*DecodeError],
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check the file opens in a spreadsheet program and has consistent columns",
			Code:    "FILE002",
		},
	},
	{
		match: isErr(ErrNoFile),
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		match: isType[*EmptyNumericColumnError],
		msg: UserMessage{
			Message: "A numeric column has no values to compute a mean from",
			Action:  "Remove the column or fill it in before uploading",
			Code:    "CLN001",
		},
	},
	{
		match: isErr(ErrUnknownCleaningOp),
		msg: UserMessage{
			Message: "Unknown cleaning operation",
			Action:  "Use remove_duplicates or fill_missing",
			Code:    "CLN002",
		},
	},
	{
		match: isType[*UnknownColumnError],
		msg: UserMessage{
			Message: "A selected column does not exist",
			Action:  "Choose columns from the file's header",
			Code:    "COL001",
		},
	},
	{
		match: isErr(ErrDuplicateColumn),
		msg: UserMessage{
			Message: "A column was selected more than once",
			Action:  "Select each column once",
			Code:    "COL002",
		},
	},
	{
		match: isType[*EncodeError],
		msg: UserMessage{
			Message: "The file could not be exported",
			Action:  "Try the other export format",
			Code:    "EXP001",
		},
	},
	{
		match: isType[*InvalidTransitionError],
		msg: UserMessage{
			Message: "That step cannot run yet",
			Action:  "Upload and decode the file before cleaning, selecting columns or exporting",
			Code:    "PIPE001",
		},
	},
	{
		match: isErr(ErrTooManyUploads),
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		match: isErr(context.Canceled),
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		match: isErr(context.DeadlineExceeded),
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try uploading a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		match: isErr(ErrFileTooLarge),
		msg: UserMessage{
			Message: "File is larger than the upload limit",
			Action:  "Split the file or remove unused columns before uploading",
			Code:    "FILE001",
		},
	},
	{
		match: isErr(ErrTooManyFiles),
		msg: UserMessage{
			Message: "Too many files in one upload",
			Action:  "Upload fewer files at once",
			Code:    "UPL001",
		},
	},
	{
		match: isErr(ErrRateLimited),
		msg: UserMessage{
			Message: "Too many requests from this address",
			Action:  "Wait a minute before sending more files",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError returns the user message for err, or ERR000 when nothing matches.
//
// Example:
//
//	_, err := core.Project(ds, []string{"missing"})
//	msg := core.MapError(err)
//	// msg.Code == "COL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if k.match(err) {
			return k.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
