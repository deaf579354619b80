package model

const (
	PasscodePurposeRegister = "register"
	PasscodePurposeReset    = "reset"
)

// Passcode is a short-lived numeric code bound to an email address and a
// purpose. A code for one purpose never validates against the other.
type Passcode struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Purpose   string `json:"purpose"`
	Code      string `json:"code"`
	Used      int    `json:"used"`
	Ctime     int64  `json:"ctime"`
	ExpiresAt int64  `json:"expires_at"`
}
