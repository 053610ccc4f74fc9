// Package wordpress is a thin client for the WordPress REST API.
//
// It pages through /wp-json/wp/v2/<rest_base> collections using the
// X-WP-TotalPages header, authenticates with application passwords, and
// retries transient failures (network errors, 429, 5xx) with exponential
// backoff bounded by the request context. Other 4xx answers surface as
// *APIError without retrying.
package wordpress
