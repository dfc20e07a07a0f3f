package pagination

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"
)

type row struct {
	id string
	at time.Time
}

// sliceSource orders rows by (at DESC, id ASC) the way the timeline queries do
func sliceSource(rows []row) Source[TimelineKey, row] {
	sorted := append([]row(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].at.Equal(sorted[j].at) {
			return sorted[i].at.After(sorted[j].at)
		}
		return sorted[i].id < sorted[j].id
	})

	return SourceFuncs[TimelineKey, row]{
		FetchFunc: func(ctx context.Context, after *TimelineKey, n int) ([]row, error) {
			var out []row
			for _, r := range sorted {
				if after != nil {
					older := r.at.Before(after.At)
					tieAfter := r.at.Equal(after.At) && r.id > after.ID
					if !older && !tieAfter {
						continue
					}
				}
				out = append(out, r)
				if len(out) == n {
					break
				}
			}
			return out, nil
		},
		CountFunc: func(ctx context.Context) (int64, error) {
			return int64(len(sorted)), nil
		},
		KeyFunc: func(r row) TimelineKey {
			return TimelineKey{At: r.at, ID: r.id}
		},
	}
}

func identity(r row) string { return r.id }

func TestPaginate_InvalidPageSize(t *testing.T) {
	src := sliceSource(nil)
	for _, limit := range []int{0, -1} {
		_, err := Paginate(context.Background(), Request{Limit: limit}, src, identity)
		if !errors.Is(err, ErrInvalidPageSize) {
			t.Errorf("Paginate(limit=%d) error = %v, want ErrInvalidPageSize", limit, err)
		}
	}
}

func TestPaginate_MalformedCursor(t *testing.T) {
	_, err := Paginate(context.Background(), Request{Cursor: "garbage!", Limit: 5}, sliceSource(nil), identity)
	if !errors.Is(err, ErrMalformedCursor) {
		t.Errorf("Paginate() error = %v, want ErrMalformedCursor", err)
	}
}

func TestPaginate_FirstAndLastPage(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := sliceSource([]row{
		{id: "a", at: base.Add(3 * time.Second)},
		{id: "b", at: base.Add(2 * time.Second)},
		{id: "c", at: base.Add(1 * time.Second)},
	})
	ctx := context.Background()

	first, err := Paginate(ctx, Request{Limit: 2}, src, identity)
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}
	if fmt.Sprint(first.Results) != "[a b]" {
		t.Errorf("first page = %v, want [a b]", first.Results)
	}
	if !first.HasNext || first.NextCursor == nil {
		t.Fatal("first page should have a next cursor")
	}
	if first.HasPrev || first.PreviousCursor != nil {
		t.Error("first page should not have a previous cursor")
	}
	if first.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", first.TotalCount)
	}

	second, err := Paginate(ctx, Request{Cursor: *first.NextCursor, Limit: 2}, src, identity)
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}
	if fmt.Sprint(second.Results) != "[c]" {
		t.Errorf("second page = %v, want [c]", second.Results)
	}
	if second.HasNext || second.NextCursor != nil {
		t.Error("last page should not have a next cursor")
	}
	if !second.HasPrev || second.PreviousCursor == nil || *second.PreviousCursor != *first.NextCursor {
		t.Error("previous cursor should echo the input cursor")
	}
	if second.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", second.TotalCount)
	}
}

func TestPaginate_CompleteWithTies(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var rows []row
	// Groups of rows share a timestamp so page boundaries land inside ties.
	for i := 0; i < 23; i++ {
		rows = append(rows, row{id: fmt.Sprintf("r%02d", i), at: base.Add(time.Duration(i/4) * time.Minute)})
	}
	src := sliceSource(rows)
	want, _ := src.Fetch(context.Background(), nil, len(rows))

	for _, limit := range []int{1, 2, 3, 4, 5, 7, 23, 50} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			var got []string
			cursor := ""
			for pages := 0; ; pages++ {
				if pages > len(rows)+1 {
					t.Fatal("pagination did not terminate")
				}
				page, err := Paginate(context.Background(), Request{Cursor: cursor, Limit: limit}, src, identity)
				if err != nil {
					t.Fatalf("Paginate() error = %v", err)
				}
				got = append(got, page.Results...)
				if !page.HasNext {
					break
				}
				cursor = *page.NextCursor
			}

			if len(got) != len(want) {
				t.Fatalf("collected %d rows, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i].id {
					t.Errorf("row %d = %s, want %s", i, got[i], want[i].id)
				}
			}
		})
	}
}

func TestPaginate_ClampsLimit(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var rows []row
	for i := 0; i < MaxLimit+5; i++ {
		rows = append(rows, row{id: fmt.Sprintf("r%03d", i), at: base})
	}

	page, err := Paginate(context.Background(), Request{Limit: MaxLimit * 10}, sliceSource(rows), identity)
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}
	if len(page.Results) != MaxLimit {
		t.Errorf("len(Results) = %d, want %d", len(page.Results), MaxLimit)
	}
	if !page.HasNext {
		t.Error("HasNext should be true")
	}
}

func TestPaginate_EmptyResultsIsNotNil(t *testing.T) {
	page, err := Paginate(context.Background(), Request{Limit: 10}, sliceSource(nil), identity)
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}
	if page.Results == nil {
		t.Error("Results should be an empty slice, not nil")
	}
}
