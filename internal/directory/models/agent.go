// Package models defines the directory's persisted records.
package models

import (
	"strings"
	"time"
)

// Agent is a police officer in the directory, identified by NIP (personnel
// number). Only active agents may sign in.
type Agent struct {
	NIP       string
	FirstName string
	LastName1 string
	LastName2 string
	Email     string
	Phone     string
	Section   string
	Group     string
	Active    bool
	Monitor   bool
	CreatedAt time.Time
}

// DisplayName joins the agent's name parts, skipping empty ones.
func (a *Agent) DisplayName() string {
	return strings.Join(strings.Fields(a.FirstName+" "+a.LastName1+" "+a.LastName2), " ")
}
