// Package users contiene DTOs de /users.
package users

// User es la vista pública de un usuario: el hash de password nunca sale.
type User struct {
	ID         string         `json:"id"`
	Username   string         `json:"username"`
	Disabled   bool           `json:"disabled"`
	Attributes map[string]any `json:"attributes"`
}

// PutUserRequest body de PUT /users/{id}. Campos vacíos conservan el valor
// actual en un update; attributes, si viene, reemplaza el mapa completo.
type PutUserRequest struct {
	Username   string         `json:"username"`
	Password   string         `json:"password"`
	Disabled   *bool          `json:"disabled,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
