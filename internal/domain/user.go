// Package domain contains entity without logic, just meta-data
package domain

type UserID string

// User is an identity resolved by the external directory. Accounts are
// provisioned by the surrounding service; signaling only reads them.
type User struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
}
