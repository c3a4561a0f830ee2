package fetcher

import "fmt"

// TransportError reports that a page could not be retrieved.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotFoundError reports that the expected markup fragment is missing, which
// usually means the upstream page layout changed.
type NotFoundError struct {
	Subject  string
	URL      string
	Selector string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: selector %q not found in %s", e.Subject, e.Selector, e.URL)
}

// ParseError reports that the located fragment holds no usable number.
type ParseError struct {
	Subject string
	Text    string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: cannot parse %q: %v", e.Subject, e.Text, e.Err)
	}
	return fmt.Sprintf("%s: no numeric value in %q", e.Subject, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }
