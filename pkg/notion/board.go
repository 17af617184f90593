// Package notion mirrors the verification queue onto a Notion database
// that reviewers work from.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Board is the part of a Notion database the review sync reads and writes.
type Board interface {
	// Rows returns one page of database rows starting after cursor. An
	// empty cursor starts from the top.
	Rows(ctx context.Context, dbID string, cursor notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error)
	AddRow(ctx context.Context, dbID string, props notionapi.Properties) error
}

// NewBoard returns a Board backed by the Notion API. Calls are paced to rps
// per second; rps <= 0 leaves them unpaced.
func NewBoard(token string, rps float64, opts ...notionapi.ClientOption) Board {
	opts = append([]notionapi.ClientOption{notionapi.WithRetry(3)}, opts...)
	b := &apiBoard{api: notionapi.NewClient(notionapi.Token(token), opts...)}
	if rps > 0 {
		b.pace = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return b
}

type apiBoard struct {
	api  *notionapi.Client
	pace *rate.Limiter
}

func (b *apiBoard) Rows(ctx context.Context, dbID string, cursor notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := b.api.Database.Query(ctx, notionapi.DatabaseID(dbID), &notionapi.DatabaseQueryRequest{StartCursor: cursor})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: rows of %s", dbID)
	}
	return resp, nil
}

func (b *apiBoard) AddRow(ctx context.Context, dbID string, props notionapi.Properties) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	_, err := b.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	})
	return eris.Wrapf(err, "notion: add row to %s", dbID)
}

func (b *apiBoard) wait(ctx context.Context) error {
	if b.pace == nil {
		return nil
	}
	return eris.Wrap(b.pace.Wait(ctx), "notion: pace")
}
