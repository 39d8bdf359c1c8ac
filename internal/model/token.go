// internal/model/token.go
package model

import "time"

// Token is a provider bearer credential from tokens_v8. Only the most
// recent token per empresa is active.
type Token struct {
	ID          int64     `db:"id"`
	AccessToken string    `db:"access_token"`
	ExpiresIn   int64     `db:"expires_in"`
	CreatedAt   time.Time `db:"created_at"`
	Empresa     string    `db:"empresa"`
}
