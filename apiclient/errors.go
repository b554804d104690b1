package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/jrsteele09/go-auth-client/internal/utils"
)

const (
	unknownErrorText = "An unknown error occurred"
	networkErrorText = "Network error"
)

// Kind tags which shape an Error carries.
type Kind int

const (
	// KindNetwork means no response was received
	KindNetwork Kind = iota
	// KindFieldErrors carries per-field validation messages in Fields
	KindFieldErrors
	// KindMessage carries a single backend message in Text
	KindMessage
	// KindAuthentication is a 401, after the interceptor has cleared the session
	KindAuthentication
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindFieldErrors:
		return "field-errors"
	case KindMessage:
		return "message"
	case KindAuthentication:
		return "authentication"
	}
	return "unknown"
}

// Error is every failure the API client reports, normalized to one message.
type Error struct {
	Kind   Kind
	Status int // 0 when no response was received
	Text   string
	Fields map[string][]string
	cause  error
}

func (e *Error) Error() string {
	if e.Text == "" {
		if e.Kind == KindNetwork {
			return networkErrorText
		}
		return unknownErrorText
	}
	return e.Text
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Normalize maps any error onto *Error. Transport failures become KindNetwork.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if isTransportError(err) {
		return &Error{Kind: KindNetwork, Text: err.Error(), cause: err}
	}
	return &Error{Kind: KindMessage, Text: err.Error(), cause: err}
}

func isTransportError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// FromResponse builds the error for a non-2xx response. The message is taken
// from a string body, then detail, message, non_field_errors, and finally the
// remaining fields flattened as "field: msg" sorted by field name.
func FromResponse(status int, body []byte) *Error {
	e := &Error{Kind: KindMessage, Status: status}
	if status == http.StatusUnauthorized {
		e.Kind = KindAuthentication
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return e
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		e.Text = string(trimmed)
		return e
	}

	switch v := decoded.(type) {
	case string:
		e.Text = v
	case map[string]any:
		e.Text = messageFrom(v)
		if e.Text != "" {
			return e
		}
		e.Fields = fieldsFrom(v)
		if len(e.Fields) > 0 {
			e.Text = flattenFields(e.Fields)
			if e.Kind != KindAuthentication {
				e.Kind = KindFieldErrors
			}
		}
	}
	return e
}

func messageFrom(body map[string]any) string {
	for _, key := range []string{"detail", "message"} {
		if s := utils.ScalarString(body[key]); s != "" {
			return s
		}
	}
	switch nfe := body["non_field_errors"].(type) {
	case string:
		return nfe
	case []any:
		return strings.Join(utils.ToStringSlice(nfe), " ")
	}
	return ""
}

func fieldsFrom(body map[string]any) map[string][]string {
	fields := make(map[string][]string)
	for k, v := range body {
		switch val := v.(type) {
		case string:
			fields[k] = []string{val}
		case []any:
			if msgs := utils.ToStringSlice(val); len(msgs) > 0 {
				fields[k] = msgs
			}
		}
	}
	return fields
}

func flattenFields(fields map[string][]string) string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+": "+strings.Join(fields[k], " "))
	}
	return strings.Join(parts, ". ")
}

// IsAuthentication reports whether err is a normalized 401
func IsAuthentication(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuthentication
}
