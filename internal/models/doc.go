// Package models defines the CivicSync domain records shared by the store
// backends, the services and the transports: users, issues, the append-only
// update log, and the input shapes used to create them.
package models
