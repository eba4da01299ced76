package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmail-project/dmail-backend/internal/models"
)

type capturePusher struct {
	cmds []models.ServerCommand
	full bool
}

func (p *capturePusher) Push(cmd models.ServerCommand) bool {
	if p.full {
		return false
	}
	p.cmds = append(p.cmds, cmd)
	return true
}

func TestPresenceSendToOnlineUser(t *testing.T) {
	hub := NewPresenceHub()
	endpoint := &capturePusher{}
	hub.Register(1, endpoint)

	hub.Send(1, models.ServerCommand{Command: models.SrvPing})
	require.Len(t, endpoint.cmds, 1)
	assert.Equal(t, models.SrvPing, endpoint.cmds[0].Command)
}

func TestPresenceDropsOfflineUser(t *testing.T) {
	hub := NewPresenceHub()
	hub.Send(42, models.ServerCommand{Command: models.SrvPing})

	endpoint := &capturePusher{}
	hub.Register(42, endpoint)
	hub.Deregister(42)
	hub.Send(42, models.ServerCommand{Command: models.SrvPing})
	assert.Empty(t, endpoint.cmds)
}

func TestPresenceIsOnline(t *testing.T) {
	hub := NewPresenceHub()
	assert.False(t, hub.IsOnline(5))
	hub.Register(5, &capturePusher{})
	assert.True(t, hub.IsOnline(5))
	hub.Deregister(5)
	assert.False(t, hub.IsOnline(5))
}

func TestPresenceSendManyExcept(t *testing.T) {
	hub := NewPresenceHub()
	endpoints := map[models.UserID]*capturePusher{}
	for _, id := range []models.UserID{1, 2, 3} {
		endpoints[id] = &capturePusher{}
		hub.Register(id, endpoints[id])
	}

	hub.SendManyExcept([]models.UserID{1, 2, 3}, models.ServerCommand{Command: models.SrvPing}, 2)
	assert.Len(t, endpoints[1].cmds, 1)
	assert.Empty(t, endpoints[2].cmds)
	assert.Len(t, endpoints[3].cmds, 1)
}

func TestPresenceFullQueueDoesNotPanic(t *testing.T) {
	hub := NewPresenceHub()
	hub.Register(1, &capturePusher{full: true})
	hub.Send(1, models.ServerCommand{Command: models.SrvPing})
}
