package quota

import "github.com/kailas-cloud/limitwatch/internal/domain/project"

// Flat key set shared by the one project that predates per-project namespacing.
const (
	LegacyLimitKey   = "chat_limit"
	LegacyUsedKey    = "chat_count"
	LegacyWarningKey = "limit_warning_sent"
)

// Keys are the store keys holding one project's quota.
type Keys struct {
	Limit   string
	Used    string
	Warning string
}

// KeysFor returns the keys of a project.
func KeysFor(p project.Project) Keys {
	if p.LegacyKeys() {
		return Keys{
			Limit:   LegacyLimitKey,
			Used:    LegacyUsedKey,
			Warning: LegacyWarningKey,
		}
	}
	prefix := "project:" + p.ID() + ":"
	return Keys{
		Limit:   prefix + "limit",
		Used:    prefix + "count",
		Warning: prefix + "warning_sent",
	}
}
