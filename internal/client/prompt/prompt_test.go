package prompt

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(m Model, s string) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: k})
}

func TestPrompt_SubmitYieldsPair(t *testing.T) {
	m := New()
	m = typeText(m, "alice")
	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "secret")

	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Equal(t, SubmitMsg{Username: "alice", Password: "secret"}, cmd())
	assert.Empty(t, m.Err())
}

func TestPrompt_EmptyFieldsStayOpen(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"both empty", "", ""},
		{"blank username", "   ", "pw"},
		{"blank password", "user", " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m = typeText(m, tt.username)
			m, _ = press(m, tea.KeyTab)
			m = typeText(m, tt.password)

			m, cmd := press(m, tea.KeyEnter)
			assert.Nil(t, cmd, "no callback may be issued")
			assert.Equal(t, MsgEmptyFields, m.Err())
			assert.Contains(t, m.View(), MsgEmptyFields)
		})
	}
}

func TestPrompt_CancelEmitsCancelMsg(t *testing.T) {
	m := New()
	m = typeText(m, "alice")

	_, cmd := press(m, tea.KeyEsc)
	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{}, cmd())
}

func TestPrompt_FocusCycles(t *testing.T) {
	m := New()
	assert.Equal(t, 0, m.Focused())

	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, 1, m.Focused())

	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, 0, m.Focused())

	m, _ = press(m, tea.KeyShiftTab)
	assert.Equal(t, 1, m.Focused())

	user, pass := m.Values()
	assert.Empty(t, user)
	assert.Empty(t, pass)
}

func TestPrompt_TypingGoesToFocusedField(t *testing.T) {
	m := New()
	m = typeText(m, "bob")
	m, _ = press(m, tea.KeyDown)
	m = typeText(m, "pw1")

	user, pass := m.Values()
	assert.Equal(t, "bob", user)
	assert.Equal(t, "pw1", pass)
	assert.NotContains(t, m.View(), "pw1", "password must be masked")
}

func TestPrompt_ResetClearsState(t *testing.T) {
	m := New()
	m = typeText(m, "bob")
	m, _ = press(m, tea.KeyTab)
	m.SetError("boom")

	m, _ = m.Reset()
	user, pass := m.Values()
	assert.Empty(t, user)
	assert.Empty(t, pass)
	assert.Empty(t, m.Err())
	assert.Equal(t, 0, m.Focused())
}
