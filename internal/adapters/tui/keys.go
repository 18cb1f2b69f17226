package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Keep       key.Binding
	Delete     key.Binding
	Skip       key.Binding
	Undo       key.Binding
	Collection key.Binding
	Retry      key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Keep:       key.NewBinding(key.WithKeys("k", "right"), key.WithHelp("k/→", "keep")),
		Delete:     key.NewBinding(key.WithKeys("d", "left"), key.WithHelp("d/←", "delete")),
		Skip:       key.NewBinding(key.WithKeys("s", "down"), key.WithHelp("s", "skip")),
		Undo:       key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		Collection: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "keep in collection")),
		Retry:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "finish")),
	}
}

func (k keyMap) help(withCollection bool) []key.Binding {
	bindings := []key.Binding{k.Keep, k.Delete, k.Skip, k.Undo}
	if withCollection {
		bindings = append(bindings, k.Collection)
	}
	return append(bindings, k.Quit)
}
