package replication

import (
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/coinsync/internal/app/nodectx"
)

// Serializer es el contexto serializado compartido con multiplier.Manager.
type Serializer = nodectx.Serializer

// RemoteDeletePolicy decide si un MULTIPLIER_DISABLE remoto borra también
// del storage local.
type RemoteDeletePolicy string

const (
	// RemoteDeletesAuto borra solo si el storage no es compartido entre
	// nodos: en un store compartido el único que escribe es el origen.
	RemoteDeletesAuto   RemoteDeletePolicy = "auto"
	RemoteDeletesAlways RemoteDeletePolicy = "always"
	RemoteDeletesNever  RemoteDeletePolicy = "never"
)

// ParseRemoteDeletePolicy acepta "", auto, always, never.
func ParseRemoteDeletePolicy(s string) (RemoteDeletePolicy, error) {
	switch p := RemoteDeletePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RemoteDeletesAuto, nil
	case RemoteDeletesAuto, RemoteDeletesAlways, RemoteDeletesNever:
		return p, nil
	}
	return "", fmt.Errorf("replication: unknown remote delete policy %q", s)
}

// Options parámetros del Service. Los ceros toman defaults.
type Options struct {
	RemoteDeletes RemoteDeletePolicy
	InflightMax   int
	InflightTTL   time.Duration
	OutboxSize    int
}

const (
	defaultInflightMax = 4096
	defaultInflightTTL = 2 * time.Minute
	defaultOutboxSize  = 1024
)

func (o Options) withDefaults() Options {
	if o.RemoteDeletes == "" {
		o.RemoteDeletes = RemoteDeletesAuto
	}
	if o.InflightMax <= 0 {
		o.InflightMax = defaultInflightMax
	}
	if o.InflightTTL <= 0 {
		o.InflightTTL = defaultInflightTTL
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = defaultOutboxSize
	}
	return o
}
