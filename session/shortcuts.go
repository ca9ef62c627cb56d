package session

import "h2oclear/api/models"

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionNavigate
	ActionLogout
)

// Action is what a key press asks for.
type Action struct {
	Kind ActionKind
	Page models.Page
}

var shortcutPages = map[string]models.Page{
	"1": models.PageHome,
	"2": models.PageDashboard,
	"3": models.PageLogin,
}

// Shortcut maps a key press to an action. Ctrl or Meta plus 1/2/3 navigates;
// Escape logs out, but only a logged-in session.
func Shortcut(key string, ctrl, meta, loggedIn bool) Action {
	if ctrl || meta {
		if p, ok := shortcutPages[key]; ok {
			return Action{Kind: ActionNavigate, Page: p}
		}
	}
	if key == "Escape" && loggedIn {
		return Action{Kind: ActionLogout}
	}
	return Action{}
}
