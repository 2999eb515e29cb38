// Package mail builds and runs templated email batches for selected rows.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/roster/internal/core"
)

var (
	// ErrNoEmailColumn is returned when no header contains "email".
	ErrNoEmailColumn = errors.New(`no "email" column found in the file`)
	// ErrNoSelection is returned for a batch with no rows.
	ErrNoSelection = errors.New("select at least one row to send emails")
)

// DefaultConcurrency bounds in-flight sends when a batch sets none.
const DefaultConcurrency = 5

// Status is the outcome of one row's send.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Message is one row's send request.
type Message struct {
	RowID core.RowID
	To    string
	Vars  map[string]string
}

// Outcome records what happened to one Message.
type Outcome struct {
	RowID  core.RowID `json:"row_id"`
	Email  string     `json:"email"`
	Status Status     `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// Result is the aggregate of a finished batch.
type Result struct {
	ID        string        `json:"batch_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Sent      int           `json:"sent"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Outcomes  []Outcome     `json:"outcomes"`
}

// Summary formats the completion line shown to the user.
func (r Result) Summary() string {
	return fmt.Sprintf("Done: sent %d, skipped %d, failed %d", r.Sent, r.Skipped, r.Failed)
}

// Batch is a set of messages sent with one service and template.
type Batch struct {
	ID          string
	ServiceID   string
	TemplateID  string
	Concurrency int
	Messages    []Message
}

// EmailColumn returns the first header containing "email", ignoring case.
func EmailColumn(headers []string) (string, bool) {
	for _, h := range headers {
		if strings.Contains(strings.ToLower(h), "email") {
			return h, true
		}
	}
	return "", false
}

// BuildBatch turns the selected rows into messages. Rows are kept in the
// order given; a row with a blank address still gets a Message so its
// outcome can be reported as skipped.
func BuildBatch(headers []string, rows []core.Row, tmpl Template) (*Batch, error) {
	col, ok := EmailColumn(headers)
	if !ok {
		return nil, ErrNoEmailColumn
	}
	if len(rows) == 0 {
		return nil, ErrNoSelection
	}

	msgs := make([]Message, len(rows))
	for i, row := range rows {
		to := strings.TrimSpace(row.Get(col).String())
		name := row.Get(core.ColumnName).String()
		branch := row.Get(core.ColumnBranch).String()
		year := row.Get(core.ColumnYear).String()
		subject, message := tmpl.render(name, branch, year)

		msgs[i] = Message{
			RowID: row.ID,
			To:    to,
			Vars: map[string]string{
				"to_email": to,
				"subject":  subject,
				"message":  message,
				"name":     name,
				"branch":   branch,
				"year":     year,
			},
		}
	}
	return &Batch{Messages: msgs}, nil
}

// Run sends every message and returns once all sends have resolved. A
// failed send never stops the others; blank recipients are skipped
// without calling the relay.
func (b *Batch) Run(ctx context.Context, relay Relay) Result {
	start := time.Now()
	outcomes := make([]Outcome, len(b.Messages))

	limit := b.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, m := range b.Messages {
		if m.To == "" {
			outcomes[i] = Outcome{RowID: m.RowID, Status: StatusSkipped}
			continue
		}
		g.Go(func() error {
			out := Outcome{RowID: m.RowID, Email: m.To, Status: StatusSent}
			if err := relay.Send(ctx, b.ServiceID, b.TemplateID, m.Vars); err != nil {
				out.Status = StatusFailed
				out.Error = err.Error()
				slog.Warn("mail send failed", "batch_id", b.ID, "row_id", m.RowID, "error", err)
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		ID:        b.ID,
		StartedAt: start,
		Duration:  time.Since(start),
		Outcomes:  outcomes,
	}
	for _, o := range outcomes {
		switch o.Status {
		case StatusSent:
			res.Sent++
		case StatusSkipped:
			res.Skipped++
		case StatusFailed:
			res.Failed++
		}
	}
	return res
}
