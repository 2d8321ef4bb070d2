// Package config loads the proxy configuration from config/config.yaml and
// the environment (PROXY_FRAUD_SCORE_URL overrides proxy.fraud_score.url) and
// validates it. It covers the listen address, logging, admin access, breaker
// thresholds, the two destination profiles, the data queue, Slack alerts and
// deployment labels.
package config
