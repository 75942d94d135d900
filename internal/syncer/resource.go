// Gói syncer chạy một chuỗi đồng bộ cho từng cặp (repo, resource): load
// watermark, đi qua các trang, lọc theo cursor và window, ghi item mới
// vào sink rồi commit watermark.

package syncer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/deadbird/kpi-crawler/internal/githubapi"
	"github.com/deadbird/kpi-crawler/internal/sink"
	"github.com/deadbird/kpi-crawler/internal/watermark"
)

// Entity là một repository cần đồng bộ cùng window thời gian của nó.
// Start/End là zero time khi không được cấu hình.
type Entity struct {
	Owner string
	Repo  string
	Start time.Time
	End   time.Time
}

func (e Entity) Key() string {
	return e.Owner + "/" + e.Repo
}

// Resource mô tả một loại activity: endpoint, cách phân trang, loại
// cursor và cách parse body thành item. DependsOn khác rỗng nghĩa là
// endpoint được gọi cho từng primary key của resource cha (ví dụ
// comments gọi theo từng issue number).
type Resource struct {
	Name       string
	Style      githubapi.Style
	CursorKind string
	DependsOn  string
	Accept     string
	UsesETag   bool
	// Sorted: endpoint trả item tăng dần theo cursor, cho phép dừng sớm
	// khi vượt upper bound.
	Sorted bool

	Suffix func(target string) string
	Params func(e Entity, lower watermark.Mark) map[string]string
	Parse  func(body []byte) (items []githubapi.Item, dropped int, err error)
}

// All trả về các resource theo thứ tự phụ thuộc: issues đứng trước các
// resource cần danh sách issue number.
func All() []Resource {
	return []Resource{
		{
			Name:       sink.ResourceStars,
			Style:      githubapi.StyleOffset,
			CursorKind: watermark.KindTime,
			Accept:     "application/vnd.github.star+json",
			Sorted:     true,
			Suffix:     func(string) string { return "/stargazers" },
			Parse:      parseStars,
		},
		{
			Name:       sink.ResourceForks,
			Style:      githubapi.StyleOffset,
			CursorKind: watermark.KindTime,
			Sorted:     true,
			Suffix:     func(string) string { return "/forks" },
			Params: func(Entity, watermark.Mark) map[string]string {
				return map[string]string{"sort": "oldest"}
			},
			Parse: parseForks,
		},
		{
			Name:       sink.ResourceWatchers,
			Style:      githubapi.StyleOffset,
			CursorKind: watermark.KindNone,
			Suffix:     func(string) string { return "/subscribers" },
			Parse:      parseWatchers,
		},
		{
			Name:       sink.ResourceIssues,
			Style:      githubapi.StyleOffset,
			CursorKind: watermark.KindTime,
			UsesETag:   true,
			Sorted:     true,
			Suffix:     func(string) string { return "/issues" },
			Params:     issueListParams,
			Parse:      parseIssues,
		},
		{
			Name:       sink.ResourcePulls,
			Style:      githubapi.StyleOffset,
			CursorKind: watermark.KindTime,
			Sorted:     true,
			Suffix:     func(string) string { return "/pulls" },
			Params: func(Entity, watermark.Mark) map[string]string {
				return map[string]string{"state": "all", "sort": "updated", "direction": "asc"}
			},
			Parse: parsePulls,
		},
		// Các resource theo từng issue không mang cursor: một issue mới
		// xuất hiện ở lần chạy sau vẫn phải được quét lại từ đầu, nên mỗi
		// lần chạy re-list mọi issue đã biết và dựa vào dedup của sink.
		{
			Name:       sink.ResourceIssueComments,
			Style:      githubapi.StyleOffset,
			CursorKind: watermark.KindNone,
			DependsOn:  sink.ResourceIssues,
			Sorted:     true,
			Suffix: func(target string) string {
				return "/issues/" + target + "/comments"
			},
			Parse: parseComments,
		},
		{
			Name:       sink.ResourceIssueEvents,
			Style:      githubapi.StyleOffset,
			CursorKind: watermark.KindNone,
			DependsOn:  sink.ResourceIssues,
			Sorted:     true,
			Suffix: func(target string) string {
				return "/issues/" + target + "/events"
			},
			Parse: parseEvents,
		},
		{
			Name:       sink.ResourceIssueReactions,
			Style:      githubapi.StyleOffset,
			CursorKind: watermark.KindNone,
			DependsOn:  sink.ResourceIssues,
			Sorted:     true,
			Suffix: func(target string) string {
				return "/issues/" + target + "/reactions"
			},
			Parse: parseReactions,
		},
		{
			Name:       sink.ResourceReleases,
			Style:      githubapi.StyleOffset,
			CursorKind: watermark.KindID,
			Suffix:     func(string) string { return "/releases" },
			Parse:      parseReleases,
		},
		{
			Name:       sink.ResourceCommits,
			Style:      githubapi.StyleCursor,
			CursorKind: watermark.KindTime,
			Suffix:     func(string) string { return "/commits" },
			Params:     commitListParams,
			Parse:      parseCommits,
		},
	}
}

// issueListParams xây query cho issues: đồng bộ tăng dần theo updated và
// chỉ lấy phần thay đổi sau cursor qua tham số since.
func issueListParams(e Entity, lower watermark.Mark) map[string]string {
	params := map[string]string{
		"state":     "all",
		"sort":      "updated",
		"direction": "asc",
	}
	if since := sinceOf(e, lower); !since.IsZero() {
		params["since"] = since.UTC().Format(time.RFC3339)
	}
	return params
}

func commitListParams(e Entity, lower watermark.Mark) map[string]string {
	params := map[string]string{}
	if since := sinceOf(e, lower); !since.IsZero() {
		params["since"] = since.UTC().Format(time.RFC3339)
	}
	if !e.End.IsZero() {
		params["until"] = e.End.UTC().Format(time.RFC3339)
	}
	return params
}

// sinceOf chọn lower bound thời gian: cursor đã commit nếu có, ngược lại
// start date của window.
func sinceOf(e Entity, lower watermark.Mark) time.Time {
	if lower.Kind == watermark.KindTime && !lower.At.IsZero() {
		return lower.At
	}
	return e.Start
}

func splitElements(body []byte) ([]json.RawMessage, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode page body: %w", err)
	}
	return raws, nil
}

func parseStars(body []byte) ([]githubapi.Item, int, error) {
	raws, err := splitElements(body)
	if err != nil {
		return nil, 0, err
	}
	items := make([]githubapi.Item, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		var rec githubapi.StarRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.User.Login == "" || rec.StarredAt.IsZero() {
			dropped++
			continue
		}
		items = append(items, githubapi.Item{
			Key: rec.User.Login,
			ID:  rec.User.ID,
			At:  rec.StarredAt,
			Raw: raw,
		})
	}
	return items, dropped, nil
}

func parseForks(body []byte) ([]githubapi.Item, int, error) {
	raws, err := splitElements(body)
	if err != nil {
		return nil, 0, err
	}
	items := make([]githubapi.Item, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		var rec githubapi.ForkRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == 0 || rec.CreatedAt.IsZero() {
			dropped++
			continue
		}
		items = append(items, githubapi.Item{
			Key: strconv.FormatInt(rec.ID, 10),
			ID:  rec.ID,
			At:  rec.CreatedAt,
			Raw: raw,
		})
	}
	return items, dropped, nil
}

func parseWatchers(body []byte) ([]githubapi.Item, int, error) {
	raws, err := splitElements(body)
	if err != nil {
		return nil, 0, err
	}
	items := make([]githubapi.Item, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		var rec githubapi.UserRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.Login == "" {
			dropped++
			continue
		}
		items = append(items, githubapi.Item{
			Key: rec.Login,
			ID:  rec.ID,
			Raw: raw,
		})
	}
	return items, dropped, nil
}

// parseIssues bỏ qua các bản ghi mang trường pull_request: endpoint
// issues của GitHub trộn lẫn pull request, còn pull được đồng bộ riêng.
func parseIssues(body []byte) ([]githubapi.Item, int, error) {
	raws, err := splitElements(body)
	if err != nil {
		return nil, 0, err
	}
	items := make([]githubapi.Item, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		var rec githubapi.IssueRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.Number == 0 || rec.UpdatedAt.IsZero() {
			dropped++
			continue
		}
		if rec.PullRequest != nil {
			continue
		}
		items = append(items, githubapi.Item{
			Key: strconv.FormatInt(rec.Number, 10),
			ID:  rec.Number,
			At:  rec.UpdatedAt,
			Raw: raw,
		})
	}
	return items, dropped, nil
}

func parsePulls(body []byte) ([]githubapi.Item, int, error) {
	raws, err := splitElements(body)
	if err != nil {
		return nil, 0, err
	}
	items := make([]githubapi.Item, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		var rec githubapi.PullRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.Number == 0 || rec.UpdatedAt.IsZero() {
			dropped++
			continue
		}
		items = append(items, githubapi.Item{
			Key: strconv.FormatInt(rec.Number, 10),
			ID:  rec.Number,
			At:  rec.UpdatedAt,
			Raw: raw,
		})
	}
	return items, dropped, nil
}

func parseComments(body []byte) ([]githubapi.Item, int, error) {
	raws, err := splitElements(body)
	if err != nil {
		return nil, 0, err
	}
	items := make([]githubapi.Item, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		var rec githubapi.CommentRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == 0 {
			dropped++
			continue
		}
		items = append(items, githubapi.Item{
			Key: strconv.FormatInt(rec.ID, 10),
			ID:  rec.ID,
			At:  rec.CreatedAt,
			Raw: raw,
		})
	}
	return items, dropped, nil
}

func parseEvents(body []byte) ([]githubapi.Item, int, error) {
	raws, err := splitElements(body)
	if err != nil {
		return nil, 0, err
	}
	items := make([]githubapi.Item, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		var rec githubapi.EventRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == 0 {
			dropped++
			continue
		}
		items = append(items, githubapi.Item{
			Key: strconv.FormatInt(rec.ID, 10),
			ID:  rec.ID,
			At:  rec.CreatedAt,
			Raw: raw,
		})
	}
	return items, dropped, nil
}

func parseReactions(body []byte) ([]githubapi.Item, int, error) {
	raws, err := splitElements(body)
	if err != nil {
		return nil, 0, err
	}
	items := make([]githubapi.Item, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		var rec githubapi.ReactionRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == 0 {
			dropped++
			continue
		}
		items = append(items, githubapi.Item{
			Key: strconv.FormatInt(rec.ID, 10),
			ID:  rec.ID,
			At:  rec.CreatedAt,
			Raw: raw,
		})
	}
	return items, dropped, nil
}

func parseReleases(body []byte) ([]githubapi.Item, int, error) {
	raws, err := splitElements(body)
	if err != nil {
		return nil, 0, err
	}
	items := make([]githubapi.Item, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		var rec githubapi.ReleaseRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == 0 {
			dropped++
			continue
		}
		at := rec.PublishedAt
		if at.IsZero() {
			at = rec.CreatedAt
		}
		items = append(items, githubapi.Item{
			Key: strconv.FormatInt(rec.ID, 10),
			ID:  rec.ID,
			At:  at,
			Raw: raw,
		})
	}
	return items, dropped, nil
}

func parseCommits(body []byte) ([]githubapi.Item, int, error) {
	raws, err := splitElements(body)
	if err != nil {
		return nil, 0, err
	}
	items := make([]githubapi.Item, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		var rec githubapi.CommitRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.SHA == "" || rec.Commit.Author.Date.IsZero() {
			dropped++
			continue
		}
		items = append(items, githubapi.Item{
			Key: rec.SHA,
			At:  rec.Commit.Author.Date,
			Raw: raw,
		})
	}
	return items, dropped, nil
}
