// Package redis wraps the go-redis client used for contact form throttling
// and instruments every operation with Prometheus metrics.
package redis
