package nav

// MenuState is the open/closed state of the mobile navigation menu.
type MenuState string

const (
	MenuClosed MenuState = "closed"
	MenuOpen   MenuState = "open"
)

// ParseMenuState decodes a stored state. Anything unrecognised is Closed.
func ParseMenuState(raw string) MenuState {
	if MenuState(raw) == MenuOpen {
		return MenuOpen
	}
	return MenuClosed
}

// MenuEvent is a UI event applied to a Menu.
type MenuEvent interface{ isMenuEvent() }

// Toggled reports a click on the menu button.
type Toggled struct{}

// LinkSelected reports a click on one of the menu links.
type LinkSelected struct{}

func (Toggled) isMenuEvent()      {}
func (LinkSelected) isMenuEvent() {}

// Menu is the state machine behind the mobile menu button.
// Closed is the initial state. An instance is not safe for concurrent use.
type Menu struct {
	state     MenuState
	listeners []func(MenuState)
}

// NewMenu returns a menu in state s.
func NewMenu(s MenuState) *Menu {
	if s != MenuOpen {
		s = MenuClosed
	}
	return &Menu{state: s}
}

// State returns the current state.
func (m *Menu) State() MenuState { return m.state }

// IsOpen reports whether the menu is expanded.
func (m *Menu) IsOpen() bool { return m.state == MenuOpen }

// Subscribe registers fn to be called after every transition.
func (m *Menu) Subscribe(fn func(MenuState)) {
	if fn != nil {
		m.listeners = append(m.listeners, fn)
	}
}

// Toggle flips between Closed and Open.
func (m *Menu) Toggle() MenuState {
	if m.state == MenuOpen {
		m.set(MenuClosed)
	} else {
		m.set(MenuOpen)
	}
	return m.state
}

// SelectLink closes the menu regardless of its current state.
func (m *Menu) SelectLink() MenuState {
	m.set(MenuClosed)
	return m.state
}

// Dispatch applies ev and returns the resulting state.
func (m *Menu) Dispatch(ev MenuEvent) MenuState {
	switch ev.(type) {
	case Toggled:
		return m.Toggle()
	case LinkSelected:
		return m.SelectLink()
	}
	return m.state
}

func (m *Menu) set(s MenuState) {
	m.state = s
	for _, fn := range m.listeners {
		fn(s)
	}
}
