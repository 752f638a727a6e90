package feed

import (
	"hash/fnv"
	"sort"

	"notefeed-desktop/internal/api"
	"notefeed-desktop/internal/models"
)

// Merge combines the live task list, one accumulated server feed page list
// and the optimistic like overrides into the single list the screen
// renders. Pure: identical inputs always produce the identical ordered
// output, and no input is mutated.
//
// Task-derived entries come first, newest task first, and are never
// interleaved into the server list; publish-in-progress items stay pinned
// to the top. Server entries whose id matches an already-succeeded task are
// dropped, which closes the duplicate window between "task just succeeded
// locally" and the next full server refresh. Like deltas are applied last,
// after identity resolution and dedup, so a delta keyed on a now-resolved
// server id reattaches even if the entity crossed from task-derived to
// server-derived between refreshes.
func Merge(tasks []models.PublishTask, serverPage []api.PostInfo, deltas map[int64]LikeState, self Identity) []Entry {
	ordered := make([]models.PublishTask, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreateTime > ordered[j].CreateTime
	})

	entries := make([]Entry, 0, len(ordered)+len(serverPage))
	succeeded := make(map[int64]bool)

	for _, task := range ordered {
		if task.Status == models.StatusSucceeded && task.ServerID != nil {
			succeeded[*task.ServerID] = true
		}
		entries = append(entries, taskEntry(&task, self))
	}

	for _, post := range serverPage {
		if succeeded[post.ID] {
			continue
		}
		entries = append(entries, serverEntry(&post))
	}

	for i := range entries {
		if delta, ok := deltas[entries[i].ResolvedID]; ok {
			entries[i].IsLiked = delta.IsLiked
			entries[i].LikeCount = delta.Count
		}
	}

	return entries
}

// ResolveID maps a task to its feed identity: the server id once the
// upload is confirmed, a synthetic negative id until then
func ResolveID(task *models.PublishTask) int64 {
	if task.ServerID != nil && *task.ServerID > 0 {
		return *task.ServerID
	}
	return syntheticID(task.LocalID)
}

// syntheticID derives a deterministic negative id from a local id
func syntheticID(localID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(localID))
	v := int64(h.Sum64() & (1<<63 - 1))
	if v == 0 {
		v = 1
	}
	return -v
}

func taskEntry(task *models.PublishTask, self Identity) Entry {
	state := StateUploading
	switch task.Status {
	case models.StatusFailed:
		state = StateFailed
	case models.StatusSucceeded:
		state = StateNormal
	}

	var mediaRef *string
	if media := task.Media(); len(media) > 0 {
		mediaRef = &media[0]
	}

	var failMsg string
	if task.ErrorMsg != nil {
		failMsg = *task.ErrorMsg
	}

	return Entry{
		ResolvedID:    ResolveID(task),
		Title:         task.Title,
		Author:        self.Nickname,
		AvatarRef:     self.AvatarRef,
		MediaRef:      mediaRef,
		State:         state,
		FailMessage:   failMsg,
		OriginLocalID: task.LocalID,
	}
}

func serverEntry(post *api.PostInfo) Entry {
	return Entry{
		ResolvedID: post.ID,
		Title:      post.Title,
		Author:     post.Author,
		AvatarRef:  post.AvatarURL,
		LikeCount:  post.LikeCount,
		IsLiked:    post.IsLiked,
		MediaRef:   post.ImageURL,
		Width:      post.Width,
		Height:     post.Height,
		State:      StateNormal,
	}
}
