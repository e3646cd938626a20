// Package namer builds output file names for resolved submissions.
package namer

import (
	"strconv"
	"strings"

	"subgrab/internal/consts"
	"subgrab/internal/entity"
	"subgrab/pkg/ptr"
	"subgrab/pkg/urls"
)

// Resolved pairs a submission with its resolution.
type Resolved struct {
	Submission entity.Submission
	Resolution entity.Resolution
}

// Name builds the tasks for one submission as [score,]id[-i].ext.
// Unresolved links produce a single task with the "None" extension and no URL.
func Name(sub entity.Submission, res entity.Resolution, withScore bool) []entity.Task {
	prefix := sub.ID
	if withScore {
		prefix = strconv.Itoa(ptr.Or(sub.Score, 0)) + "," + prefix
	}

	if !res.OK() {
		return []entity.Task{{
			FileName:     prefix + "." + consts.UnresolvedExt,
			SubmissionID: sub.ID,
		}}
	}

	if !res.Multi {
		return []entity.Task{{
			FileName:     prefix + "." + ext(res.URLs[0]),
			URL:          res.URLs[0],
			SubmissionID: sub.ID,
		}}
	}

	tasks := make([]entity.Task, 0, len(res.URLs))
	for i, u := range res.URLs {
		tasks = append(tasks, entity.Task{
			FileName:     prefix + "-" + strconv.Itoa(i) + "." + ext(u),
			URL:          u,
			SubmissionID: sub.ID,
		})
	}

	return tasks
}

// NameAll names a batch in order and makes every file name unique within it.
// A repeated name gets "_<n>" inserted before its extension.
func NameAll(batch []Resolved, withScore bool) []entity.Task {
	var tasks []entity.Task

	used := make(map[string]int)

	for _, item := range batch {
		for _, task := range Name(item.Submission, item.Resolution, withScore) {
			task.FileName = unique(task.FileName, used)
			tasks = append(tasks, task)
		}
	}

	return tasks
}

func unique(name string, used map[string]int) string {
	if _, taken := used[name]; !taken {
		used[name] = 0

		return name
	}

	dot := strings.LastIndexByte(name, '.')
	base, extension := name[:dot], name[dot:]

	for {
		used[name]++

		candidate := base + "_" + strconv.Itoa(used[name]) + extension
		if _, taken := used[candidate]; !taken {
			used[candidate] = 0

			return candidate
		}
	}
}

func ext(u string) string {
	e := urls.Ext(u)
	if e == "" || strings.ContainsRune(e, '\\') {
		return consts.FallbackExt
	}

	return e
}
