// Package task runs fire-and-forget background work, such as outgoing e-mail,
// on a bounded in-memory queue consumed by a pool of workers.
//
// Submitting never blocks: when the queue is full the task is rejected with
// ErrQueueFull and the caller decides whether to log and move on.
package task
