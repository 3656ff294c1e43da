// Package models contains GORM persistence models that map to database tables.
// Domain types stay free of ORM tags; each model converts with ToDomain and
// FromDomain.
//
// The same models back the on-device SQLite store and the remote PostgreSQL
// store of record, so column types avoid engine-specific defaults.
package models
