package state

// IsOpen reports whether the cart drawer is shown. Drawer visibility is
// local to the manager and never persisted.
func (m *Manager) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open
}

// OpenCart shows the cart drawer.
func (m *Manager) OpenCart() { m.setOpen(func(bool) bool { return true }) }

// CloseCart hides the cart drawer.
func (m *Manager) CloseCart() { m.setOpen(func(bool) bool { return false }) }

// ToggleCart flips the drawer and returns the new visibility.
func (m *Manager) ToggleCart() bool {
	return m.setOpen(func(open bool) bool { return !open })
}

func (m *Manager) setOpen(fn func(bool) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = fn(m.open)
	return m.open
}
