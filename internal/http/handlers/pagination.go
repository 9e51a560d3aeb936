package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/threatdesk/threatdesk/internal/view"
)

// parsePageParam returns the requested page. Malformed values select page 1.
func parsePageParam(query url.Values) (int, bool) {
	if !query.Has("page") {
		return 0, false
	}
	page := 1
	if rawPage := strings.TrimSpace(query.Get("page")); rawPage != "" {
		if parsed, err := strconv.Atoi(rawPage); err == nil && parsed > 0 {
			page = parsed
		}
	}
	return page, true
}

// parsePageSizeParam rejects sizes below one rather than clamping them.
func parsePageSizeParam(query url.Values) (int, bool, error) {
	raw := strings.TrimSpace(query.Get("page_size"))
	if raw == "" {
		return 0, false, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < 1 {
		return 0, false, fmt.Errorf("%w: %q", view.ErrInvalidPageSize, raw)
	}
	return size, true, nil
}
