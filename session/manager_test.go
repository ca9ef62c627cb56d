package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"h2oclear/api/models"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(testOptions(&memArchive{}), time.Hour)
	defer m.Close()

	a := m.Create()
	b := m.Create()
	if a.ID() == b.ID() {
		t.Fatal("session IDs collide")
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", m.Len())
	}

	a.Navigate(context.Background(), models.PageContact)
	got, err := m.Get(a.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State().CurrentPage != models.PageContact {
		t.Fatal("got a different session")
	}
	if b.State() != models.FreshSessionState() {
		t.Fatal("sessions share state")
	}

	if err := m.End(a.ID()); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := m.Get(a.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := m.End(a.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on double end, got %v", err)
	}
}

func TestManagerReapsIdleSessions(t *testing.T) {
	m := NewManager(testOptions(&memArchive{}), time.Minute)
	defer m.Close()

	stale := m.Create()
	fresh := m.Create()

	if n := m.Reap(time.Now().Add(30 * time.Second)); n != 0 {
		t.Fatalf("reaped %d sessions too early", n)
	}

	later := time.Now().Add(2 * time.Minute)
	fresh.mu.Lock()
	fresh.lastSeen = later
	fresh.mu.Unlock()

	if n := m.Reap(later); n != 1 {
		t.Fatalf("expected 1 reaped session, got %d", n)
	}
	if _, err := m.Get(stale.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatal("stale session survived")
	}
	if _, err := m.Get(fresh.ID()); err != nil {
		t.Fatalf("fresh session reaped: %v", err)
	}
}
