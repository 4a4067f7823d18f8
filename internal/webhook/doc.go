// Package webhook composes signature verification, authentication, event
// filtering, dispatch and reporting into the handling of one inbound event.
//
// Each request is processed end to end on the calling goroutine. The stages
// run strictly in order and a rejection at any stage short-circuits the rest:
//
//	verify signature -> authenticate -> filter -> dispatch -> report
//
// Handle never returns an error. Every outcome, including rejections, is a
// Response carrying the exact status code and body to send back.
package webhook
