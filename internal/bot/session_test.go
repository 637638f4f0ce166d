package bot

import "testing"

func TestSessionStore_BeginSupersedes(t *testing.T) {
	store := newSessionStore()

	first := store.Begin("u1")
	second := store.Begin("u1")

	if store.IsCurrent("u1", first.Token) {
		t.Error("superseded session still reads as current")
	}
	if !store.IsCurrent("u1", second.Token) {
		t.Error("fresh session should be current")
	}
	if store.Current("u1") != second {
		t.Error("Current returned the wrong session")
	}
}

func TestSessionStore_End(t *testing.T) {
	store := newSessionStore()
	sess := store.Begin("u1")
	store.End("u1")

	if store.IsCurrent("u1", sess.Token) {
		t.Error("ended session still reads as current")
	}
	if store.Current("u1") != nil {
		t.Error("expected nil session after End")
	}
}

func TestSessionStore_UsersIsolated(t *testing.T) {
	store := newSessionStore()
	a := store.Begin("a")
	store.Begin("b")

	if !store.IsCurrent("a", a.Token) {
		t.Error("another user's session invalidated this one")
	}
}
