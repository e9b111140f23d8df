package connection

import (
	"fmt"
	"net/url"
)

// StreamURL derives the stream endpoint from a page origin.
// A secure origin (https) maps to wss, a plain one (http) to ws; ws and wss
// origins are used as given. Any path, query or fragment on the origin is
// replaced by path.
func StreamURL(origin, path string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse origin: %w", err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if u.Host == "" {
		return "", fmt.Errorf("origin %q has no host", origin)
	}

	u.Path = path
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil

	return u.String(), nil
}
