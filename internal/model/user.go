package model

type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	PasswordHash  string `json:"-"`
	EmailVerified int    `json:"email_verified"`
	Ctime         int64  `json:"ctime"`
	Mtime         int64  `json:"mtime"`
}
