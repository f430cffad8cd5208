// Package fetch retrieves a complete model from the remote modeling
// API's cursor-paginated elements endpoint.
//
// Pagination is inherently sequential: each page's continuation URL is
// only known from the previous response's Link header, so no concurrent
// fan-out is attempted. Transient failures (network errors, 5xx) retry
// the same GET a bounded number of times with exponential backoff; 4xx
// responses, TLS validation failures, and malformed pagination headers
// abort immediately. Either the full ordered element collection is
// produced or the operation fails; no partial result is ever returned.
package fetch
