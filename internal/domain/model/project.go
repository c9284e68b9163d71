package model

// Project is the product's durable record of a linked external project,
// created by importing an ExternalProject. The backend owns the record; the
// engine holds an in-memory copy. For a given CredentialID at most one
// Project exists per distinct Key.
type Project struct {
	ID           int64
	Name         string
	Key          string
	Domain       string
	ServiceType  ServiceType
	CredentialID int64
	ExternalID   string
}
