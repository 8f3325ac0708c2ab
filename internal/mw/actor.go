package mw

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Capabilities granted by the upstream gateway.
const (
	CapSessions    = "sessions:manage"
	CapConsumables = "consumables:manage"
	CapBilling     = "billing:manage"
)

const (
	HeaderActorID      = "X-Actor-ID"
	HeaderCapabilities = "X-Capabilities"

	actorKey = "actor"
)

// Actor is the caller identity forwarded by the gateway.
type Actor struct {
	ID           int64
	Capabilities map[string]bool
}

// Can reports whether the actor holds capability c.
func (a Actor) Can(c string) bool {
	return a.Capabilities[c]
}

// Identify parses the actor headers once per request. Requests without a valid
// actor id are rejected.
func Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderActorID))
		id, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid actor", "code": "unauthenticated"})
			return
		}

		caps := make(map[string]bool)
		for _, name := range strings.Split(c.GetHeader(HeaderCapabilities), ",") {
			if name = strings.TrimSpace(name); name != "" {
				caps[name] = true
			}
		}
		c.Set(actorKey, Actor{ID: id, Capabilities: caps})
		c.Next()
	}
}

// ActorFrom returns the actor stored by Identify.
func ActorFrom(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, false
	}
	a, ok := v.(Actor)
	return a, ok
}

// Require rejects actors lacking capability.
func Require(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing actor", "code": "unauthenticated"})
			return
		}
		if !actor.Can(capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing capability " + capability, "code": "forbidden"})
			return
		}
		c.Next()
	}
}
