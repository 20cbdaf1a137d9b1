package gitlabapi

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
)

// PageFunc fetches one page of a paginated endpoint. Pages are 1-based.
type PageFunc func(ctx context.Context, page int) (*Response, error)

// CollectAll drives fetch across pages sequentially — each page's existence
// is only known once the previous one came back full — and accumulates the
// decoded items. It stops on a short page (fewer than perPage items), or once
// max items have been gathered (max <= 0 means unbounded).
//
// A first-page failure is fatal: it usually means bad input such as an
// unreachable or misnamed project. A later-page failure is treated as the end
// of results and the items collected so far are returned. Cancellation is
// neither: fetch returns it as an error and it propagates immediately,
// without a partial result.
func CollectAll[T any](ctx context.Context, perPage, max int, fetch PageFunc) ([]T, error) {
	var items []T
	for page := 1; ; page++ {
		resp, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		if !resp.OK {
			if page == 1 {
				return nil, resp.Err()
			}
			return items, nil
		}
		var batch []T
		if err := json.Unmarshal([]byte(resp.Body), &batch); err != nil {
			if page == 1 {
				return nil, errors.Wrap(err, "decode page")
			}
			return items, nil
		}
		items = append(items, batch...)
		if max > 0 && len(items) >= max {
			return items[:max], nil
		}
		if len(batch) < perPage {
			return items, nil
		}
	}
}
