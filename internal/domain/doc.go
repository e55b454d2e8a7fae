// Package domain holds the marketplace entities (users, courses and their
// content, ledger transactions, reviews, notifications, webinars) together
// with their validation rules and value types such as RoleSet and
// RatingAggregate.
package domain
