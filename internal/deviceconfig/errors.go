package deviceconfig

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of a controller fetch error
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates a non-200 response
	ErrTypeHTTP
	// ErrTypeParse indicates a malformed document
	ErrTypeParse
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the controller refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeUnknown indicates an unexpected error
	ErrTypeUnknown
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// FetchError is a classified failure to fetch a document from the controller
type FetchError struct {
	Type           ErrorType
	Message        string
	StatusCode     int // HTTP status code, if any
	Path           string
	Err            error
	NetworkSubtype NetworkErrorSubtype
	Host           string
	Retryable      bool
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error
func ClassifyNetworkError(err error, host string) *FetchError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &FetchError{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Host:           host,
			Retryable:      true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &FetchError{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Host:           host,
			Retryable:      false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &FetchError{
				Type:           ErrTypeConnectionRefused,
				Message:        "Controller refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Host:           host,
				Retryable:      true,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &FetchError{
				Type:           ErrTypeNetwork,
				Message:        "Host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Host:           host,
				Retryable:      true,
			}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &FetchError{
				Type:           ErrTypeNetwork,
				Message:        "Network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Host:           host,
				Retryable:      true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetworkError(urlErr.Err, host)
	}

	return &FetchError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Host:           host,
		Retryable:      true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *FetchError {
	classified := ClassifyNetworkError(err, "")
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &FetchError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Retryable: true,
	}
}

// NewHTTPError creates an HTTP-level error. Server errors are retryable.
func NewHTTPError(statusCode int, path string) *FetchError {
	return &FetchError{
		Type:       ErrTypeHTTP,
		Message:    fmt.Sprintf("GET %s returned status %d", path, statusCode),
		StatusCode: statusCode,
		Path:       path,
		Retryable:  statusCode >= 500,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *FetchError {
	return &FetchError{
		Type:      ErrTypeParse,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

func asFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	ok := errors.As(err, &fe)
	return fe, ok
}

// IsNetworkError reports whether err is a transport failure
func IsNetworkError(err error) bool {
	if fe, ok := asFetchError(err); ok {
		return fe.Type == ErrTypeNetwork ||
			fe.Type == ErrTypeTimeout ||
			fe.Type == ErrTypeConnectionRefused ||
			fe.Type == ErrTypeDNS
	}
	return false
}

// IsHTTPError reports whether err is a non-200 response
func IsHTTPError(err error) bool {
	fe, ok := asFetchError(err)
	return ok && fe.Type == ErrTypeHTTP
}

// IsNotFound reports whether the controller answered 404
func IsNotFound(err error) bool {
	fe, ok := asFetchError(err)
	return ok && fe.Type == ErrTypeHTTP && fe.StatusCode == 404
}

// IsParseError reports whether err is a malformed document
func IsParseError(err error) bool {
	fe, ok := asFetchError(err)
	return ok && fe.Type == ErrTypeParse
}

// IsRetryable reports whether a fetch should be retried
func IsRetryable(err error) bool {
	if fe, ok := asFetchError(err); ok {
		return fe.Retryable
	}
	return false
}

// GetTroubleshootingHint returns user-facing advice for err
func GetTroubleshootingHint(err error) string {
	fe, ok := asFetchError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch fe.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The controller did not respond in time.",
			"Troubleshooting:",
			"  • Check that the controller is powered on",
			"  • Verify you're on the same network as the controller",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The controller refused the connection.",
			"Troubleshooting:",
			"  • Verify the port in --host (the HMI web server usually listens on 80)",
			"  • The controller's web server may not be running - try power cycling it",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the controller hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead (see 'empirlink scan')",
			"  • Check your network DNS settings",
		}, "\n")

	case ErrTypeNetwork:
		if fe.NetworkSubtype == NetworkErrorHostUnreachable && fe.Host != "" {
			return strings.Join([]string{
				"The controller is not reachable on the network.",
				"Troubleshooting:",
				"  • Verify the controller address is correct",
				"  • Try pinging the controller: ping " + fe.Host,
			}, "\n")
		}
		return strings.Join([]string{
			"Network communication failed.",
			"Troubleshooting:",
			"  • Check your network connection",
			"  • Ensure you're connected to the boat or vehicle network",
		}, "\n")

	case ErrTypeHTTP:
		if fe.StatusCode == 404 {
			return fmt.Sprintf("The controller does not serve %s. Pass a local file instead.", fe.Path)
		}
		if fe.StatusCode >= 500 {
			return fmt.Sprintf("The controller returned an error (HTTP %d). Try again shortly.", fe.StatusCode)
		}
		return fmt.Sprintf("The controller returned HTTP error %d.", fe.StatusCode)

	case ErrTypeParse:
		return "The controller returned a document that is not valid JSON."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-facing message
func GetShortErrorMessage(err error) string {
	fe, ok := asFetchError(err)
	if !ok {
		return err.Error()
	}

	switch fe.Type {
	case ErrTypeTimeout:
		return "Controller not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Controller refused connection"
	case ErrTypeDNS:
		return "Cannot resolve controller hostname"
	case ErrTypeNetwork:
		switch fe.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Controller unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check connection"
		default:
			return "Network error - check connection"
		}
	case ErrTypeHTTP:
		return fmt.Sprintf("Controller error (HTTP %d)", fe.StatusCode)
	case ErrTypeParse:
		return "Failed to parse controller response"
	default:
		return fe.Message
	}
}
