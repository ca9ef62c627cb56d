package session

import (
	"testing"

	"h2oclear/api/models"
)

func TestNavigateDashboardRequiresLogin(t *testing.T) {
	for _, start := range []models.Page{models.PageHome, models.PageLogin, models.PageContact, models.PageDashboard} {
		s := models.SessionState{CurrentPage: start}
		out := Navigate(s, models.PageDashboard)
		if out.State.CurrentPage != models.PageLogin {
			t.Fatalf("from %s: expected login, got %s", start, out.State.CurrentPage)
		}
		if !out.Redirected || out.InitDashboard {
			t.Fatalf("from %s: unexpected outcome %+v", start, out)
		}
		if len(out.Notices) != 1 || out.Notices[0].Message != MsgLoginRequired {
			t.Fatalf("from %s: expected login notice, got %+v", start, out.Notices)
		}
		if out.URL != "#login" {
			t.Fatalf("from %s: expected #login, got %s", start, out.URL)
		}
	}
}

func TestNavigateLoggedIn(t *testing.T) {
	s := CompleteLogin(models.FreshSessionState())
	out := Navigate(s, models.PageDashboard)
	if out.State.CurrentPage != models.PageDashboard || !out.InitDashboard || out.Redirected {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !out.State.IsLoggedIn {
		t.Fatal("login flag lost")
	}
}

func TestNavigatePages(t *testing.T) {
	cases := []struct {
		target  models.Page
		url     string
		notices int
	}{
		{models.PageHome, "/", 0},
		{models.PageLogin, "#login", 0},
		{models.PageContact, "#contact", 1},
		{models.Page("pricing"), "#pricing", 0},
	}
	for _, tc := range cases {
		out := Navigate(models.FreshSessionState(), tc.target)
		if out.State.CurrentPage != tc.target {
			t.Fatalf("%s: landed on %s", tc.target, out.State.CurrentPage)
		}
		if out.URL != tc.url {
			t.Fatalf("%s: expected url %s, got %s", tc.target, tc.url, out.URL)
		}
		if len(out.Notices) != tc.notices {
			t.Fatalf("%s: expected %d notices, got %+v", tc.target, tc.notices, out.Notices)
		}
		if out.InitDashboard {
			t.Fatalf("%s: dashboard initialized", tc.target)
		}
	}
}

func TestLogoutResetsEverything(t *testing.T) {
	s := models.SessionState{CurrentPage: models.PageDashboard, IsLoggedIn: true, DeviceConnected: true}
	out := Logout(s)
	want := models.FreshSessionState()
	if out.State != want {
		t.Fatalf("expected %+v, got %+v", want, out.State)
	}
	if len(out.Notices) == 0 || out.Notices[0].Message != MsgLoggedOut {
		t.Fatalf("expected logout notice, got %+v", out.Notices)
	}
}

func TestFreshStateThenLoginThenDashboard(t *testing.T) {
	s := models.FreshSessionState()
	if s.IsLoggedIn || s.DeviceConnected || s.CurrentPage != models.PageHome {
		t.Fatalf("unexpected fresh state %+v", s)
	}
	s = Navigate(s, models.PageDashboard).State
	if s.CurrentPage != models.PageLogin {
		t.Fatal("expected redirect before login")
	}
	s = CompleteLogin(s)
	if out := Navigate(s, models.PageDashboard); out.State.CurrentPage != models.PageDashboard {
		t.Fatalf("expected dashboard after login, got %s", out.State.CurrentPage)
	}
}

func TestShortcut(t *testing.T) {
	cases := []struct {
		name     string
		key      string
		ctrl     bool
		meta     bool
		loggedIn bool
		want     Action
	}{
		{"ctrl+1", "1", true, false, false, Action{Kind: ActionNavigate, Page: models.PageHome}},
		{"meta+2", "2", false, true, false, Action{Kind: ActionNavigate, Page: models.PageDashboard}},
		{"ctrl+3", "3", true, false, true, Action{Kind: ActionNavigate, Page: models.PageLogin}},
		{"bare 2", "2", false, false, true, Action{}},
		{"ctrl+4", "4", true, false, true, Action{}},
		{"escape logged in", "Escape", false, false, true, Action{Kind: ActionLogout}},
		{"escape logged out", "Escape", false, false, false, Action{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Shortcut(tc.key, tc.ctrl, tc.meta, tc.loggedIn); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}
