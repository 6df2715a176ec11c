package fleet

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// TransportErrorType categorizes a failure to obtain any response at all.
type TransportErrorType int

const (
	// TransportErrorUnknown indicates an unclassified failure.
	TransportErrorUnknown TransportErrorType = iota
	// TransportErrorTLS indicates a TLS/certificate verification error.
	TransportErrorTLS
	// TransportErrorNetwork indicates a failure to establish a connection.
	TransportErrorNetwork
	// TransportErrorTimeout indicates the request or connection timed out.
	TransportErrorTimeout
	// TransportErrorDNS indicates a DNS resolution failure.
	TransportErrorDNS
	// TransportErrorCanceled indicates the caller gave up.
	TransportErrorCanceled
)

// String returns a human-readable name for the error type.
func (t TransportErrorType) String() string {
	switch t {
	case TransportErrorTLS:
		return "TLS certificate error"
	case TransportErrorNetwork:
		return "network error"
	case TransportErrorTimeout:
		return "timeout"
	case TransportErrorDNS:
		return "DNS resolution error"
	case TransportErrorCanceled:
		return "canceled"
	default:
		return "transport error"
	}
}

// ClassifyTransportError determines what kind of transport failure err is.
func ClassifyTransportError(err error) TransportErrorType {
	if err == nil {
		return TransportErrorUnknown
	}
	if errors.Is(err, context.Canceled) {
		return TransportErrorCanceled
	}
	// A TLS handshake timeout is still part of connecting.
	if isTimeoutError(err) {
		return TransportErrorTimeout
	}
	if isTLSError(err) {
		return TransportErrorTLS
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return TransportErrorDNS
	}
	if isNetworkError(err) {
		return TransportErrorNetwork
	}
	return TransportErrorUnknown
}

// IsTransient reports whether err is a connection-establishment failure or a
// timeout, the only failures worth retrying. Received HTTP statuses never are.
func IsTransient(err error) bool {
	if err == nil || IsRemoteError(err) || IsUnknownProfile(err) {
		return false
	}
	switch ClassifyTransportError(err) {
	case TransportErrorNetwork, TransportErrorTimeout, TransportErrorDNS:
		return true
	default:
		return false
	}
}

func isTLSError(err error) bool {
	var certErr x509.CertificateInvalidError
	var hostErr x509.HostnameError
	var unknownAuthErr x509.UnknownAuthorityError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	return strings.Contains(err.Error(), "timeout")
}

// isNetworkError only matches failures that happen before the request is sent.
// A reset while reading or writing may follow a delivered request and is left
// unclassified so writes are never repeated.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{
		"connection refused",
		"network is unreachable",
		"no route to host",
		"dial tcp",
	} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
