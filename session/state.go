package session

import (
	"h2oclear/api/models"
	"h2oclear/api/view"
)

// Notices produced by state transitions.
const (
	MsgLoginRequired  = "Please login to access the dashboard"
	MsgContact        = "Contact information available in footer"
	MsgLoggedOut      = "Logged out successfully"
	MsgFillAllFields  = "Please fill in all fields"
	MsgBadCredentials = "Invalid username or password"
	MsgLoginSuccess   = "Login successful! Redirecting to dashboard..."
	MsgConnected      = "Device connected successfully!"
	MsgDisconnected   = "Device disconnected"
	MsgExported       = "Data exported successfully!"
)

// Outcome is the result of a transition.
type Outcome struct {
	State models.SessionState `json:"state"`
	// Redirected is set when the requested page was refused.
	Redirected bool `json:"redirected"`
	// InitDashboard asks the caller to populate the table, build the charts
	// and start the telemetry feed.
	InitDashboard bool          `json:"initDashboard"`
	URL           string        `json:"url"`
	Notices       []view.Notice `json:"notices,omitempty"`
}

// Navigate moves s to target. The dashboard is only reachable when logged in;
// otherwise the session lands on the login page with a notice.
func Navigate(s models.SessionState, target models.Page) Outcome {
	if target == models.PageDashboard && !s.IsLoggedIn {
		out := Navigate(s, models.PageLogin)
		out.Redirected = true
		out.Notices = append(out.Notices, view.Notice{Message: MsgLoginRequired, Kind: view.NoticeInfo})
		return out
	}

	s.CurrentPage = target
	out := Outcome{State: s, URL: pageURL(target)}
	switch target {
	case models.PageDashboard:
		out.InitDashboard = true
	case models.PageContact:
		out.Notices = append(out.Notices, view.Notice{Message: MsgContact, Kind: view.NoticeInfo})
	}
	return out
}

// CompleteLogin marks the session as logged in. Credentials are checked by
// the caller before this runs.
func CompleteLogin(s models.SessionState) models.SessionState {
	s.IsLoggedIn = true
	return s
}

// Logout clears both flags and returns to home.
func Logout(s models.SessionState) Outcome {
	s.IsLoggedIn = false
	s.DeviceConnected = false
	out := Navigate(s, models.PageHome)
	out.Notices = append([]view.Notice{{Message: MsgLoggedOut, Kind: view.NoticeInfo}}, out.Notices...)
	return out
}

// SetDevice records the pairing result.
func SetDevice(s models.SessionState, connected bool) models.SessionState {
	s.DeviceConnected = connected
	return s
}

func pageURL(p models.Page) string {
	if p == models.PageHome {
		return "/"
	}
	return "#" + string(p)
}
