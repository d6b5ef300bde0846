package health

import "context"

// StorePinger checks quota store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ChatPinger checks chat transport availability.
type ChatPinger interface {
	Ping(ctx context.Context) error
}
