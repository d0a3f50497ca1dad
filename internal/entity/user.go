package entity

type User struct {
	ID       string `json:"_id,omitempty"`
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL,omitempty"`
	Role     string `json:"role,omitempty"`
}
