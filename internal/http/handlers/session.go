package handlers

import (
	"context"
	"encoding/gob"
	"net/url"
	"strings"

	"github.com/threatdesk/threatdesk/internal/view"
)

const sessionKeyView = "findings_view"

func init() {
	gob.Register(view.State{})
}

// filterParams maps query parameters onto filter fields.
var filterParams = map[string]func(*view.Filter, string){
	"q":        func(f *view.Filter, v string) { f.Search = v },
	"category": func(f *view.Filter, v string) { f.Category = v },
	"severity": func(f *view.Filter, v string) { f.Severity = v },
	"status":   func(f *view.Filter, v string) { f.Status = v },
	"type":     func(f *view.Filter, v string) { f.Type = v },
	"ait":      func(f *view.Filter, v string) { f.OwnerTag = v },
	"spk":      func(f *view.Filter, v string) { f.ProductKey = v },
	"repo":     func(f *view.Filter, v string) { f.Repo = v },
}

// loadViewState returns the session's view state, or a fresh one.
func (h *Handlers) loadViewState(ctx context.Context) view.State {
	fresh := view.NewState(h.DefaultPageSize)
	if h.Sessions == nil {
		return fresh
	}
	st, ok := h.Sessions.Get(ctx, sessionKeyView).(view.State)
	if !ok || st.PageSize < 1 {
		return fresh
	}
	return st
}

func (h *Handlers) saveViewState(ctx context.Context, st view.State) {
	if h.Sessions == nil {
		return
	}
	h.Sessions.Put(ctx, sessionKeyView, st)
}

// applyViewParams folds the request's query into st. A request that changes
// the remembered filter, sort or page size lands on the first page even if it
// also names a page. Without sessions nothing is remembered, so an explicit
// page always applies.
func (h *Handlers) applyViewParams(st view.State, query url.Values) (view.State, error) {
	reset := ParseBoolForm(query.Get("reset"))
	if reset {
		st = view.NewState(h.DefaultPageSize)
	}
	before := st

	filter := st.Filter
	changed := false
	for name, set := range filterParams {
		if query.Has(name) {
			set(&filter, query.Get(name))
			changed = true
		}
	}
	if changed {
		st = st.WithFilter(filter)
	}

	if raw := strings.TrimSpace(query.Get("sort")); raw != "" {
		key, err := view.ParseSortKey(raw)
		if err != nil {
			return st, err
		}
		st = st.ToggleSort(key)
	}

	size, ok, err := parsePageSizeParam(query)
	if err != nil {
		return st, err
	}
	if ok {
		st = st.WithPageSize(size)
	}

	moved := reset || st.Filter != before.Filter || st.Sort != before.Sort || st.PageSize != before.PageSize
	if moved && h.Sessions != nil {
		return st, nil
	}
	if page, ok := parsePageParam(query); ok {
		st = st.WithPage(page)
	}
	return st, nil
}
