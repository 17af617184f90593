package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Review board property names.
const (
	PropCompany  = "Company"
	PropQueueID  = "Queue ID"
	PropType     = "Type"
	PropPriority = "Priority"
	PropReason   = "Reason"
	PropLinkedIn = "LinkedIn"
	PropQueuedAt = "Queued At"
)

// ReviewTask is one verification task to mirror onto the review board.
type ReviewTask struct {
	ID          string
	CompanyName string
	Type        string
	Priority    string
	Reason      string
	LinkedInURL string
	CreatedAt   time.Time
}

// AllRows reads every row of the board, following cursors.
func AllRows(ctx context.Context, b Board, dbID string) ([]notionapi.Page, error) {
	var rows []notionapi.Page
	var cursor notionapi.Cursor
	for {
		resp, err := b.Rows(ctx, dbID, cursor)
		if err != nil {
			return nil, err
		}
		rows = append(rows, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return rows, nil
		}
		cursor = resp.NextCursor
	}
}

// queuedIDs returns the queue ids already on the board.
func queuedIDs(ctx context.Context, b Board, dbID string) (map[string]bool, error) {
	rows, err := AllRows(ctx, b, dbID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(rows))
	for _, row := range rows {
		if id := richTextValue(row.Properties[PropQueueID]); id != "" {
			ids[id] = true
		}
	}
	return ids, nil
}

// PushReviewTasks adds a row per task not yet on the board and returns how
// many were added. Tasks are matched on queue id, so reruns are safe.
func PushReviewTasks(ctx context.Context, b Board, dbID string, tasks []ReviewTask) (int, error) {
	onBoard, err := queuedIDs(ctx, b, dbID)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, task := range tasks {
		if onBoard[task.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return added, eris.Wrap(err, "notion: push cancelled")
		}
		if err := b.AddRow(ctx, dbID, ReviewProperties(task)); err != nil {
			return added, eris.Wrapf(err, "notion: create review page %s", task.ID)
		}
		onBoard[task.ID] = true
		added++
	}
	return added, nil
}

// ReviewProperties builds the page properties for a task.
func ReviewProperties(task ReviewTask) notionapi.Properties {
	props := notionapi.Properties{
		PropCompany: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{textBlock(task.CompanyName)},
		},
		PropQueueID: richText(task.ID),
		PropReason:  richText(task.Reason),
		PropType: notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: task.Type},
		},
		PropPriority: notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: task.Priority},
		},
	}
	if task.LinkedInURL != "" {
		props[PropLinkedIn] = notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: task.LinkedInURL}
	}
	if !task.CreatedAt.IsZero() {
		d := notionapi.Date(task.CreatedAt)
		props[PropQueuedAt] = notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &d},
		}
	}
	return props
}

func textBlock(s string) notionapi.RichText {
	return notionapi.RichText{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}}
}

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{textBlock(s)},
	}
}

func richTextValue(p notionapi.Property) string {
	var parts []notionapi.RichText
	switch v := p.(type) {
	case *notionapi.RichTextProperty:
		parts = v.RichText
	case notionapi.RichTextProperty:
		parts = v.RichText
	default:
		return ""
	}
	out := ""
	for _, rt := range parts {
		if rt.Text != nil {
			out += rt.Text.Content
		} else {
			out += rt.PlainText
		}
	}
	return out
}
