package models

// Page names one section of the site.
type Page string

const (
	PageHome      Page = "home"
	PageDashboard Page = "dashboard"
	PageLogin     Page = "login"
	PageContact   Page = "contact"
)

// Known reports whether p names an existing section.
func (p Page) Known() bool {
	switch p {
	case PageHome, PageDashboard, PageLogin, PageContact:
		return true
	default:
		return false
	}
}

// SessionState is the whole navigation state of one client session.
type SessionState struct {
	CurrentPage     Page `json:"currentPage"`
	IsLoggedIn      bool `json:"isLoggedIn"`
	DeviceConnected bool `json:"deviceConnected"`
}

// FreshSessionState is the state every new session starts from.
func FreshSessionState() SessionState {
	return SessionState{CurrentPage: PageHome}
}

type NavigateRequest struct {
	Page Page `json:"page" binding:"required"`
}

type KeyRequest struct {
	Key  string `json:"key" binding:"required"`
	Ctrl bool   `json:"ctrl"`
	Meta bool   `json:"meta"`
}
