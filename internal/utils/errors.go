package utils

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorCodeClassificationMiss ErrorCode = "CLASSIFICATION_MISS"
	ErrorCodeResolutionError    ErrorCode = "RESOLUTION_ERROR"
	ErrorCodeExtractionError    ErrorCode = "EXTRACTION_ERROR"
	ErrorCodeFetchFailure       ErrorCode = "FETCH_FAILURE"
	ErrorCodeGatewaySendError   ErrorCode = "GATEWAY_SEND_ERROR"
	ErrorCodeDownloadDecode     ErrorCode = "DOWNLOAD_DECODE_ERROR"
	ErrorCodeConversionError    ErrorCode = "CONVERSION_ERROR"
	ErrorCodeCleanupError       ErrorCode = "CLEANUP_ERROR"
	ErrorCodeArchiveError       ErrorCode = "ARCHIVE_ERROR"
	ErrorCodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"
)

type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

func NewErrorWithDetails(code ErrorCode, message string, err error, details map[string]interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Err:     err,
	}
}

// CodeOf returns the ErrorCode carried anywhere in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Common error constructors
func NewClassificationMissError(text string) *AppError {
	return NewErrorWithDetails(
		ErrorCodeClassificationMiss,
		"No supported TikTok, Instagram or Spotify link found in message",
		nil,
		map[string]interface{}{
			"text": text,
		},
	)
}

func NewResolutionError(link string, err error) *AppError {
	return NewErrorWithDetails(ErrorCodeResolutionError, "Failed to resolve short URL", err, map[string]interface{}{
		"link": link,
	})
}

func NewExtractionError(link string) *AppError {
	return NewErrorWithDetails(ErrorCodeExtractionError, "Failed to extract video ID from link", nil, map[string]interface{}{
		"link": link,
	})
}

func NewFetchError(link string, err error) *AppError {
	return NewErrorWithDetails(ErrorCodeFetchFailure, "Failed to fetch media", err, map[string]interface{}{
		"link": link,
	})
}

func NewSendError(kind string, err error) *AppError {
	return NewErrorWithDetails(ErrorCodeGatewaySendError, "Failed to send message", err, map[string]interface{}{
		"kind": kind,
	})
}

func NewDownloadError(fileID string, err error) *AppError {
	return NewErrorWithDetails(ErrorCodeDownloadDecode, "Failed to download image from Telegram", err, map[string]interface{}{
		"file_id": fileID,
	})
}

func NewConversionError(err error) *AppError {
	return NewError(ErrorCodeConversionError, "Failed to convert image to animation", err)
}

func NewCleanupError(name string, err error) *AppError {
	return NewErrorWithDetails(ErrorCodeCleanupError, "Failed to delete media file", err, map[string]interface{}{
		"file_name": name,
	})
}

func NewArchiveError(key string, err error) *AppError {
	return NewErrorWithDetails(ErrorCodeArchiveError, "Failed to archive media file", err, map[string]interface{}{
		"key": key,
	})
}

func NewRateLimitError() *AppError {
	return NewError(ErrorCodeRateLimitExceeded, "Too many requests, please try again later", nil)
}
