// Package auth implements the webhook authentication strategy chain.
//
// A Chain holds strategies in configured order. The first strategy that is
// Applicable to a request decides the outcome alone; strategies are never
// combined and failures are never retried. Outcomes are values:
//
//   - Granted: the request carried valid credentials
//   - Denied: credentials were present but wrong or malformed
//   - NotConfigured: the strategy had nothing to compare against
//
// Denied and NotConfigured look identical to the caller (HTTP 401) but are
// logged differently so operators can tell misconfiguration from an attack.
package auth
