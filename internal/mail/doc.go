// Package mail queues outbound email and delivers it on background workers.
//
// Delivery failures are logged and counted; they are never reported to the
// code path that enqueued the message.
package mail
