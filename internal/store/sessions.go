// ABOUTME: SessionStore implements the Sessions lifecycle on top of a Gateway
// ABOUTME: Owns the merge-on-write protocol of Set and the soft-delete visibility rule

package store

import (
	"context"
	"log/slog"
)

// Options configures a SessionStore
type Options struct {
	Table   string       // Defaults to DefaultTable
	Dialect Dialect      // Defaults to DialectPostgres
	Logger  *slog.Logger // Defaults to slog.Default()
}

// SessionStore implements Sessions using a Gateway
type SessionStore struct {
	gw      Gateway
	queries queries
	logger  *slog.Logger
}

var _ Sessions = (*SessionStore)(nil)

// NewSessionStore creates a session store over the given gateway.
// The statements are rendered for the configured table and dialect here, once.
func NewSessionStore(gw Gateway, opts Options) (*SessionStore, error) {
	if gw == nil {
		return nil, ErrNoGateway
	}

	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if opts.Dialect == "" {
		opts.Dialect = DialectPostgres
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	q, err := buildQueries(opts.Table, opts.Dialect)
	if err != nil {
		return nil, err
	}

	return &SessionStore{
		gw:      gw,
		queries: q,
		logger:  logger.With("component", "store", "table", opts.Table),
	}, nil
}

// Add inserts a new session row. There is no existence check; the input
// documents are echoed back as given, not re-read from storage.
func (s *SessionStore) Add(ctx context.Context, uid string, meta, data Document) (Document, Document, error) {
	metaText, err := encodeDocument(meta)
	if err != nil {
		return nil, nil, err
	}
	dataText, err := encodeDocument(data)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.gw.Query(ctx, s.queries.add, uid, metaText, dataText); err != nil {
		return nil, nil, err
	}

	s.logger.Debug("added session", "uid", uid)
	return meta, data, nil
}

// UIDs returns the uids of all live sessions, in the order the backend returned them.
func (s *SessionStore) UIDs(ctx context.Context) ([]string, error) {
	rows, err := s.gw.Query(ctx, s.queries.uids)
	if err != nil {
		return nil, err
	}

	uids := make([]string, 0, len(rows))
	for _, row := range rows {
		uids = append(uids, row.Text("uid"))
	}
	return uids, nil
}

// Set merges metaPatch into the stored meta document and dataPatch into the
// stored data document. When the gateway supports transactions the read and
// the write run in one transaction holding a row lock, so concurrent Sets on
// the same uid do not lose each other's keys. Otherwise the read-modify-write
// is not atomic and the last write wins.
func (s *SessionStore) Set(ctx context.Context, uid string, metaPatch, dataPatch Document) error {
	if tx, ok := s.gw.(Transactor); ok {
		return tx.InTx(ctx, func(gw Gateway) error {
			return s.mergeUpdate(ctx, gw, s.queries.setSelectLocked, uid, metaPatch, dataPatch)
		})
	}
	return s.mergeUpdate(ctx, s.gw, s.queries.setSelect, uid, metaPatch, dataPatch)
}

func (s *SessionStore) mergeUpdate(ctx context.Context, gw Gateway, selectQuery, uid string, metaPatch, dataPatch Document) error {
	rows, err := gw.Query(ctx, selectQuery, uid)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}

	meta := Merge(s.decode(uid, "meta", rows[0].Text("meta")), metaPatch)
	data := Merge(s.decode(uid, "data", rows[0].Text("data")), dataPatch)

	metaText, err := encodeDocument(meta)
	if err != nil {
		return err
	}
	dataText, err := encodeDocument(data)
	if err != nil {
		return err
	}

	if _, err := gw.Query(ctx, s.queries.setUpdate, dataText, metaText, uid); err != nil {
		return err
	}

	s.logger.Debug("updated session", "uid", uid, "meta_keys", len(metaPatch), "data_keys", len(dataPatch))
	return nil
}

// Get returns the stored meta and data documents of the live session.
// Malformed stored documents come back empty rather than as an error.
func (s *SessionStore) Get(ctx context.Context, uid string) (Document, Document, error) {
	rows, err := s.gw.Query(ctx, s.queries.getSelect, uid)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, ErrNotFound
	}

	meta := s.decode(uid, "meta", rows[0].Text("meta"))
	data := s.decode(uid, "data", rows[0].Text("data"))
	return meta, data, nil
}

// Remove soft-deletes the live session: meta and data are cleared and
// deleted_at is stamped. Matching no row is not an error.
func (s *SessionStore) Remove(ctx context.Context, uid string) error {
	if _, err := s.gw.Query(ctx, s.queries.removeUpdate, uid); err != nil {
		return err
	}

	s.logger.Debug("removed session", "uid", uid)
	return nil
}

// decode applies the ParseOrDefault policy and logs when a non-empty stored
// document was replaced.
func (s *SessionStore) decode(uid, column, text string) Document {
	doc, err := parseOrDefault(text)
	if err != nil && text != "" {
		s.logger.Warn("stored document is not a JSON object, using empty document",
			"uid", uid,
			"column", column,
			"error", err,
		)
	}
	return doc
}
