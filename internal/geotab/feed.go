package geotab

import (
	"context"

	"github.com/ANIKETSHETTY47/geotab-fault-sync/internal/domain"
)

// Pager yields an entity type one page at a time. It is finite and cannot be
// rewound; Version identifies where a new pager could resume.
type Pager interface {
	Next(ctx context.Context) bool
	Page() []domain.Record
	Err() error
	Version() string
}

// FeedIterator pages through GetFeed using fromVersion/toVersion. A page
// shorter than the page size ends the iteration.
type FeedIterator struct {
	client   *Client
	session  *Session
	typeName string
	pageSize int

	version string
	page    []domain.Record
	err     error
	done    bool
}

// Feed starts a pager at the beginning of typeName's feed.
func (c *Client) Feed(s *Session, typeName string, pageSize int) Pager {
	return c.FeedFrom(s, typeName, "", pageSize)
}

// FeedFrom resumes a pager from a version returned by an earlier one.
func (c *Client) FeedFrom(s *Session, typeName, fromVersion string, pageSize int) *FeedIterator {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &FeedIterator{
		client:   c,
		session:  s,
		typeName: typeName,
		pageSize: pageSize,
		version:  fromVersion,
	}
}

// Next fetches the next page. It returns false when the feed is drained or failed.
func (it *FeedIterator) Next(ctx context.Context) bool {
	if it.done || it.err != nil {
		return false
	}

	res, err := it.client.getFeed(ctx, it.session, it.typeName, it.version, it.pageSize)
	if err != nil {
		it.err = err
		it.page = nil
		return false
	}
	if res.ToVersion != "" {
		it.version = res.ToVersion
	}
	if len(res.Data) < it.pageSize {
		it.done = true
	}
	if len(res.Data) == 0 {
		it.page = nil
		return false
	}

	it.page = res.Data
	return true
}

func (it *FeedIterator) Page() []domain.Record { return it.page }

func (it *FeedIterator) Err() error { return it.err }

func (it *FeedIterator) Version() string { return it.version }
