package githubapi

import (
	"context"
	"fmt"
	"strconv"
)

// Style chọn cách đi qua các trang: offset tăng page=N, cursor đi theo
// URL rel="next" do server trả về.
type Style int

const (
	StyleOffset Style = iota
	StyleCursor
)

// Lý do kết thúc một chuỗi trang.
type StopReason int

const (
	StopNone StopReason = iota
	StopEmptyPage
	StopShortPage
	StopEarlyExit
	StopUnchanged
	StopCutoff
	StopDisabled
)

func (r StopReason) String() string {
	switch r {
	case StopEmptyPage:
		return "empty page"
	case StopShortPage:
		return "short page"
	case StopEarlyExit:
		return "early exit, no new items"
	case StopUnchanged:
		return "unchanged since cached etag"
	case StopCutoff:
		return "cutoff reached"
	case StopDisabled:
		return "repo disabled"
	}
	return "not stopped"
}

// Paginator lái Caller qua từng trang của một endpoint. Caller của
// paginator (ResourceSyncer) parse body và báo lại số item của trang
// qua Advance; paginator chỉ giữ trạng thái duyệt trang và các điều
// kiện dừng.
type Paginator struct {
	caller   *Caller
	style    Style
	baseURL  string
	params   map[string]string
	accept   string
	etag     string
	pageSize int

	page         int
	nextURL      string
	lastPage     int
	zeroRun      int
	earlyExitRun int

	stopped StopReason
}

func NewPaginator(caller *Caller, style Style, baseURL string, params map[string]string, accept, etag string) *Paginator {
	pageSize := caller.Config.GithubApi.PageSize
	earlyExit := caller.Config.GithubApi.EarlyExitRunLength
	return &Paginator{
		caller:       caller,
		style:        style,
		baseURL:      baseURL,
		params:       params,
		accept:       accept,
		etag:         etag,
		pageSize:     pageSize,
		page:         1,
		earlyExitRun: earlyExit,
	}
}

// Done báo chuỗi trang đã kết thúc chưa và vì sao.
func (p *Paginator) Done() bool         { return p.stopped != StopNone }
func (p *Paginator) Reason() StopReason { return p.stopped }
func (p *Paginator) Page() int          { return p.page }
func (p *Paginator) ETag() string       { return p.etag }

// Stop đánh dấu kết thúc từ phía ngoài (cutoff theo upper bound).
func (p *Paginator) Stop(reason StopReason) {
	if p.stopped == StopNone {
		p.stopped = reason
	}
}

// Progress mô tả tiến độ cho log; ước lượng tổng số trang chỉ phục vụ
// hiển thị, thiếu nó không ảnh hưởng đến tính đúng.
func (p *Paginator) Progress() string {
	if p.lastPage > 0 {
		return fmt.Sprintf("page %d/%d", p.page, p.lastPage)
	}
	return fmt.Sprintf("page %d", p.page)
}

// Next fetch trang hiện tại. Chỉ được gọi khi Done() == false.
func (p *Paginator) Next(ctx context.Context) (*PageResponse, Outcome, error) {
	req := Request{
		Accept: p.accept,
		ETag:   p.etag,
	}

	switch p.style {
	case StyleCursor:
		if p.nextURL != "" {
			req.URL = p.nextURL
		} else {
			req.URL = p.baseURL
			req.Params = p.withPaging(p.params)
		}
	default:
		req.URL = p.baseURL
		req.Params = p.withPaging(p.params)
	}

	resp, outcome, err := p.caller.Fetch(ctx, req)
	switch outcome {
	case OutcomeNotModified:
		p.Stop(StopUnchanged)
	case OutcomeSuccess:
		if resp.LastPage > 0 && p.lastPage == 0 {
			p.lastPage = resp.LastPage
		}
		if resp.ETag != "" {
			p.etag = resp.ETag
		}
		p.nextURL = resp.NextURL
	}
	return resp, outcome, err
}

// Advance ghi nhận kết quả parse của trang vừa fetch: tổng số item và
// số item mới được chấp nhận. Thiết lập điều kiện dừng: trang rỗng,
// trang ngắn, hoặc đủ N trang liên tiếp không có item mới.
func (p *Paginator) Advance(itemCount, accepted int) {
	if itemCount == 0 {
		p.Stop(StopEmptyPage)
		return
	}
	if accepted == 0 {
		p.zeroRun++
		if p.zeroRun >= p.earlyExitRun {
			p.Stop(StopEarlyExit)
			return
		}
	} else {
		p.zeroRun = 0
	}
	if itemCount < p.pageSize {
		p.Stop(StopShortPage)
		return
	}
	if p.style == StyleCursor && p.nextURL == "" {
		p.Stop(StopShortPage)
		return
	}
	p.page++
}

func (p *Paginator) withPaging(params map[string]string) map[string]string {
	out := make(map[string]string, len(params)+2)
	for k, v := range params {
		out[k] = v
	}
	out["per_page"] = strconv.Itoa(p.pageSize)
	out["page"] = strconv.Itoa(p.page)
	return out
}
