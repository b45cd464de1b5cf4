// Package audit carries security events off the request path.
//
// A [Relay] queues events and hands them to a [Sink] from one goroutine. When
// the queue is full it either blocks or drops and counts the event. Which
// events exist is decided by the engine; this package only moves them.
package audit
