// Package models contains GORM persistence models for the procurement tables.
// Domain types carry no ORM tags; each model converts to and from its domain
// counterpart with ToDomain and FromDomain.
package models
