package vulkan

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/vkbind/engine/core"
)

// trackID identifies a wrapper in its parent's registry of live children.
type trackID = uuid.UUID

func track(r *core.Registry, owner interface{}) trackID {
	return r.Acquire(owner)
}

func untrack(r *core.Registry, id trackID) {
	if err := r.Release(id); err != nil {
		core.LogWarn("resource tracker: %v", err)
	}
}
