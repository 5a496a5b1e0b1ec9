package ui

import (
	"bytes"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestSpin_NotATerminal(t *testing.T) {
	var buf bytes.Buffer
	called := false

	err := Spin(&buf, "Generating shop", func() error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "Generating shop...\n✅ Generating shop\n", buf.String())
	assert.False(t, IsTerminal(&buf))
}

func TestSpin_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")

	err := Spin(&buf, "Generating shop", func() error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "❌ Generating shop")
}

func TestProgressModel(t *testing.T) {
	m := newProgressModel("Generating")
	assert.NotNil(t, m.Init())
	assert.Contains(t, m.View(), "Generating...")

	next, cmd := m.Update(finishedMsg{err: errors.New("x")})
	assert.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, "❌ Generating\n", next.View())

	// once finished the model ignores further messages
	after, cmd := next.Update(finishedMsg{})
	assert.Nil(t, cmd)
	assert.Equal(t, "❌ Generating\n", after.View())
}
