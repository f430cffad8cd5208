package fetch

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// nextLink extracts the rel="next" continuation URL from a success
// response's Link header. A missing header or a header without a next
// relation means the collection is complete; a header that cannot be
// parsed on a success status is a protocol violation and fatal.
func nextLink(resp *http.Response, base *url.URL) (*url.URL, error) {
	header := resp.Header.Get("Link")
	if header == "" {
		return nil, nil
	}

	rels, err := parseLinkHeader(header)
	if err != nil {
		return nil, &Error{Kind: ErrMalformedPagination, URL: base.String(), Err: err}
	}

	raw, ok := rels["next"]
	if !ok {
		return nil, nil
	}

	next, err := url.Parse(raw)
	if err != nil {
		return nil, &Error{Kind: ErrMalformedPagination, URL: base.String(),
			Err: fmt.Errorf("next link %q: %w", raw, err)}
	}
	return base.ResolveReference(next), nil
}

// parseLinkHeader parses the subset of RFC 8288 the API emits:
// comma-separated "<uri>; rel=relation" entries. Returns a relation to
// URI mapping; later entries for the same relation win.
func parseLinkHeader(header string) (map[string]string, error) {
	rels := make(map[string]string)

	for _, entry := range strings.Split(header, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ";")
		target := strings.TrimSpace(parts[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			return nil, fmt.Errorf("link entry %q: target is not <uri>-delimited", entry)
		}
		uri := target[1 : len(target)-1]

		var rel string
		for _, param := range parts[1:] {
			key, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if !found {
				return nil, fmt.Errorf("link entry %q: parameter %q has no value", entry, param)
			}
			if strings.TrimSpace(key) == "rel" {
				rel = strings.Trim(strings.TrimSpace(value), `"`)
			}
		}
		if rel == "" {
			return nil, fmt.Errorf("link entry %q: no rel parameter", entry)
		}
		rels[rel] = uri
	}

	return rels, nil
}
