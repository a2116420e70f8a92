package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RotatesProxies(t *testing.T) {
	m, err := NewManager([]string{"http://p1:8000", "http://p2:8000"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "p1:8000", m.NextProxy().Host)
	assert.Equal(t, "p2:8000", m.NextProxy().Host)
	assert.Equal(t, "p1:8000", m.NextProxy().Host)
}

func TestManager_NoProxies(t *testing.T) {
	m, err := NewManager(nil, nil)
	require.NoError(t, err)

	p, err := m.Proxy(nil)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Contains(t, DefaultUserAgents, m.UserAgent())
}

func TestManager_CustomUserAgents(t *testing.T) {
	m, err := NewManager(nil, []string{"only-agent"})
	require.NoError(t, err)
	assert.Equal(t, "only-agent", m.UserAgent())
}

func TestManager_InvalidProxy(t *testing.T) {
	_, err := NewManager([]string{"::bad"}, nil)
	assert.Error(t, err)
}
