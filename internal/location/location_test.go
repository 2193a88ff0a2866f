package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory_NavigateNotifies(t *testing.T) {
	m := NewMemory("/")

	var seen []string
	unsub := m.OnLocationChanged(func(loc string) {
		seen = append(seen, loc+"@"+m.Location())
	})

	m.Navigate("/todos")
	m.NavigateTo("/todos/1")

	assert.Equal(t, []string{"/todos@/todos", "/todos/1@/todos/1"}, seen)
	assert.Equal(t, "/todos/1", m.Location())
	assert.Equal(t, []string{"/", "/todos", "/todos/1"}, m.Stack())

	unsub()
	m.Navigate("/about")
	assert.Len(t, seen, 2)
	assert.Equal(t, 0, m.Observers())
}

func TestMemory_SameLocationIsNoOp(t *testing.T) {
	m := NewMemory("/")
	calls := 0
	m.OnLocationChanged(func(string) { calls++ })

	m.NavigateTo("/")
	assert.Equal(t, 0, calls)
	assert.Equal(t, []string{"/"}, m.Stack())
}

func TestMemory_Back(t *testing.T) {
	m := NewMemory("/")
	assert.False(t, m.Back())

	m.Navigate("/a")
	var seen []string
	m.OnLocationChanged(func(loc string) { seen = append(seen, loc) })

	assert.True(t, m.Back())
	assert.Equal(t, "/", m.Location())
	assert.Equal(t, []string{"/"}, seen)
}

func TestMemory_ImplementsNavigator(t *testing.T) {
	var _ Navigator = NewMemory("/")
}
