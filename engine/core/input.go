package core

// Key code definitions
type KeyCode uint16

const (
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_A         KeyCode = 0x41
	KEY_D         KeyCode = 0x44
	KEY_M         KeyCode = 0x4D
	KEY_P         KeyCode = 0x50
	KEY_R         KeyCode = 0x52
	KEY_S         KeyCode = 0x53
	KEY_W         KeyCode = 0x57
	KEY_F1        KeyCode = 0x70
	KEY_F11       KeyCode = 0x7A
	KEYS_MAX_KEYS KeyCode = 0x100
)

type KeyboardState struct {
	Keys [KEYS_MAX_KEYS]bool
}

type InputState struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
}

var inputState *InputState

func InputInitialize() error {
	inputState = &InputState{}
	LogDebug("Input subsystem initialized.")
	return nil
}

func InputShutdown() error {
	inputState = nil
	return nil
}

// InputUpdate copies the current key state into the previous one. Call it
// once at the end of every frame.
func InputUpdate() {
	if inputState == nil {
		return
	}
	inputState.KeyboardPrevious = inputState.KeyboardCurrent
}

func InputIsKeyDown(key KeyCode) bool {
	if inputState == nil || key >= KEYS_MAX_KEYS {
		return false
	}
	return inputState.KeyboardCurrent.Keys[key]
}

func InputWasKeyDown(key KeyCode) bool {
	if inputState == nil || key >= KEYS_MAX_KEYS {
		return false
	}
	return inputState.KeyboardPrevious.Keys[key]
}

// InputProcessKey updates the key state and fires a pressed/released event
// when it changed.
func InputProcessKey(key KeyCode, pressed bool) {
	if inputState == nil || key >= KEYS_MAX_KEYS {
		return
	}
	if inputState.KeyboardCurrent.Keys[key] == pressed {
		return
	}
	inputState.KeyboardCurrent.Keys[key] = pressed

	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	var ctx EventContext
	ctx.Data.U16[0] = uint16(key)
	EventFire(code, nil, ctx)
}
