// Package events provides types and interfaces for an event-driven architecture.
//
// Services emit domain events after their transaction commits, without knowing
// which handlers will process them. Handlers perform side effects that must
// never undo the committed change, such as in-app notifications and e-mail.
//
// The primary components are:
//   - Event: a typed, JSON-encoded domain event
//   - EventHandler: interface for components that can handle events
//   - EventEmitter: interface for components that can emit events
package events
