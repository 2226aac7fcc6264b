// Package models contains the GORM persistence models of the back office.
// They are kept apart from the domain types so the domain stays free of ORM
// tags; each model converts with ToDomain and a ...FromDomain constructor.
//
// Calendar days (trip, invoice, bill and due dates, license expiry) are
// DATE columns via datatypes.Date and surface in the domain as midnight UTC.
package models
