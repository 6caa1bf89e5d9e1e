package core

import "testing"

func TestEventRegisterFire(t *testing.T) {
	EventSystemShutdown()
	if !EventSystemInitialize() {
		t.Fatal("initialize failed")
	}
	defer EventSystemShutdown()

	var got []uint16
	a, b := new(int), new(int)
	handler := func(handled bool) FnOnEvent {
		return func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
			got = append(got, data.Data.U16[0])
			return handled
		}
	}
	if !EventRegister(EVENT_CODE_KEY_PRESSED, a, handler(true)) {
		t.Fatal("register a")
	}
	if EventRegister(EVENT_CODE_KEY_PRESSED, a, handler(true)) {
		t.Fatal("duplicate registration accepted")
	}
	if !EventRegister(EVENT_CODE_KEY_PRESSED, b, handler(false)) {
		t.Fatal("register b")
	}

	var ctx EventContext
	ctx.Data.U16[0] = 7
	if !EventFire(EVENT_CODE_KEY_PRESSED, nil, ctx) {
		t.Fatal("event not handled")
	}
	if len(got) != 1 {
		t.Fatalf("handled event reached %d listeners", len(got))
	}

	if !EventUnregister(EVENT_CODE_KEY_PRESSED, a) {
		t.Fatal("unregister a")
	}
	if EventFire(EVENT_CODE_KEY_PRESSED, nil, ctx) {
		t.Fatal("b does not handle events")
	}
	if len(got) != 2 {
		t.Fatalf("expected b to observe the event, got %v", got)
	}
}

func TestInputProcessKeyFiresOnChange(t *testing.T) {
	EventSystemShutdown()
	EventSystemInitialize()
	defer EventSystemShutdown()
	InputInitialize()
	defer InputShutdown()

	presses := 0
	EventRegister(EVENT_CODE_KEY_PRESSED, t, func(SystemEventCode, interface{}, interface{}, EventContext) bool {
		presses++
		return true
	})

	InputProcessKey(KEY_ESCAPE, true)
	InputProcessKey(KEY_ESCAPE, true)
	if presses != 1 {
		t.Fatalf("presses = %d", presses)
	}
	if !InputIsKeyDown(KEY_ESCAPE) || InputWasKeyDown(KEY_ESCAPE) {
		t.Fatal("unexpected key state before update")
	}
	InputUpdate()
	if !InputWasKeyDown(KEY_ESCAPE) {
		t.Fatal("previous state not copied")
	}
}
