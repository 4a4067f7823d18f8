// Package dispatch runs an accepted deployment through one of three modes:
//
//   - sync: run r10k locally and capture its output and exit status
//   - fork: start r10k in the background and return at once; the exit
//     status is never observed and a "forked" success is always reported
//   - rpc: fan the action out to nodes through the remote execution service,
//     bounded by the discovery and execution timeouts
//
// Every mode implements Executor, so callers never branch on the mode. Each
// dispatch moves Pending -> Running -> Succeeded|Failed exactly once and is
// never retried; operators re-trigger failed deployments themselves.
package dispatch
