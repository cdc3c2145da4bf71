// Package eventstore is a SQLite-backed reference implementation of the
// mutation transport and snapshot loader. It is what the engine's tests run
// against, and it doubles as executable documentation of operation
// semantics: cascading deletes are foreign keys, style upserts are INSERT
// OR IGNORE, and every dispatched operation lands in a journal table.
package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mbracket"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mcard"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mevent"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mperson"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/msection"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mstyle"
	"github.com/BenTheChi/dance-chives-sub002/pkg/mutation"
	"github.com/BenTheChi/dance-chives-sub002/pkg/transport"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	date TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	cost TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	promo_video_url TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS sections (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	ord INTEGER NOT NULL DEFAULT 0,
	format TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS brackets (
	id TEXT PRIMARY KEY,
	section_id TEXT NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
	label TEXT NOT NULL DEFAULT '',
	ord INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS cards (
	id TEXT PRIMARY KEY,
	section_id TEXT REFERENCES sections(id) ON DELETE CASCADE,
	bracket_id TEXT REFERENCES brackets(id) ON DELETE CASCADE,
	title TEXT NOT NULL DEFAULT '',
	ord INTEGER NOT NULL DEFAULT 0,
	video_src TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT '',
	date TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	cost TEXT NOT NULL DEFAULT '',
	recap_src TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS people (
	username TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS role_edges (
	owner_id TEXT NOT NULL,
	role TEXT NOT NULL,
	username TEXT NOT NULL REFERENCES people(username),
	PRIMARY KEY (owner_id, role, username)
);
CREATE TABLE IF NOT EXISTS styles (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS style_edges (
	owner_id TEXT NOT NULL,
	style_name TEXT NOT NULL REFERENCES styles(name),
	PRIMARY KEY (owner_id, style_name)
);
CREATE TABLE IF NOT EXISTS journal (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	at TEXT NOT NULL,
	kind TEXT NOT NULL,
	payload BLOB NOT NULL
);
`

var tables = map[mutation.EntityType]string{
	mutation.EntityEvent:   "events",
	mutation.EntitySection: "sections",
	mutation.EntityBracket: "brackets",
	mutation.EntityCard:    "cards",
}

// columns maps transport field keys to schema columns per entity.
var columns = map[mutation.EntityType]map[string]string{
	mutation.EntityEvent: {
		"title": "title", "date": "date", "address": "address", "cost": "cost",
		"description": "description", "imageUrl": "image_url", "promoVideoUrl": "promo_video_url",
	},
	mutation.EntitySection: {
		"kind": "kind", "order": "ord", "format": "format",
	},
	mutation.EntityBracket: {
		"label": "label", "order": "ord",
	},
	mutation.EntityCard: {
		"title": "title", "order": "ord", "videoSrc": "video_src", "image": "image",
		"date": "date", "address": "address", "cost": "cost", "recapSrc": "recap_src",
	},
}

// Store owns one SQLite handle and implements transport.Sender and
// snapshot.Loader against it.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

type Option func(*Store)

func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// a throwaway store.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("eventstore: open %s: %w", path, err)
	}
	// modernc's driver is single-writer; serialize through one conn to
	// avoid SQLITE_BUSY under the coordinator's parallel dispatch.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventstore: apply schema: %w", err)
	}
	s := &Store{db: db, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Send implements transport.Sender. Every operation runs in its own
// transaction and is journaled before execution.
func (s *Store) Send(ctx context.Context, op mutation.Op) (*mutation.Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, transport.NewOp(transport.CodeTransport, op, err)
	}
	defer tx.Rollback()

	if err := s.journal(ctx, tx, op); err != nil {
		return nil, transport.NewOp(transport.CodeTransport, op, err)
	}

	var res mutation.Result
	switch op.Kind {
	case mutation.OpCreateWithNested:
		created, err := s.create(ctx, tx, op)
		if err != nil {
			return nil, err
		}
		res.Created = created
	case mutation.OpUpdateScalarFields:
		err = s.update(ctx, tx, op)
	case mutation.OpDeleteCascading:
		err = s.deleteCascading(ctx, tx, op)
	case mutation.OpConnectExisting:
		err = s.connectRole(ctx, tx, op)
	case mutation.OpDisconnectAll:
		err = s.disconnectRole(ctx, tx, op)
	case mutation.OpConnectOrCreate:
		err = s.connectStyles(ctx, tx, op)
	case mutation.OpDisconnectByKey:
		err = s.disconnectStyles(ctx, tx, op)
	default:
		err = transport.NewOp(transport.CodeValidation, op, fmt.Errorf("unknown op kind %q", op.Kind))
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, transport.NewOp(transport.CodeTransport, op, err)
	}
	return &res, nil
}

func (s *Store) journal(ctx context.Context, tx *sql.Tx, op mutation.Op) error {
	payload, err := mutation.EncodeOp(op)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO journal (at, kind, payload) VALUES (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), string(op.Kind), payload)
	return err
}

func (s *Store) create(ctx context.Context, tx *sql.Tx, op mutation.Op) (*mutation.CreatedNode, error) {
	if op.Create == nil {
		return nil, transport.NewOp(transport.CodeValidation, op, fmt.Errorf("create op carries no node"))
	}
	var parentID idwrap.ID
	var parentEntity mutation.EntityType
	if op.Parent != nil {
		parentID = op.Parent.ID
		parentEntity = op.ParentEntity
		if err := s.mustExist(ctx, tx, parentEntity, parentID); err != nil {
			return nil, transport.NewOp(transport.CodeNotFound, op, err)
		}
	}
	created, err := s.insertNode(ctx, tx, op.Create, parentEntity, parentID)
	if err != nil {
		return nil, transport.NewOp(transport.CodeTransport, op, err)
	}
	return created, nil
}

func (s *Store) insertNode(ctx context.Context, tx *sql.Tx, node *mutation.CreateNode, parentEntity mutation.EntityType, parentID idwrap.ID) (*mutation.CreatedNode, error) {
	table, ok := tables[node.Entity]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", node.Entity)
	}
	id := idwrap.NewNow()

	cols := []string{"id"}
	vals := []any{id}
	switch node.Entity {
	case mutation.EntitySection:
		cols, vals = append(cols, "event_id"), append(vals, parentID)
	case mutation.EntityBracket:
		cols, vals = append(cols, "section_id"), append(vals, parentID)
	case mutation.EntityCard:
		switch parentEntity {
		case mutation.EntityBracket:
			cols, vals = append(cols, "bracket_id"), append(vals, parentID)
		default:
			cols, vals = append(cols, "section_id"), append(vals, parentID)
		}
	}

	keys := make([]string, 0, len(node.Fields))
	for k := range node.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		col, ok := columns[node.Entity][k]
		if !ok {
			return nil, fmt.Errorf("entity %s has no field %q", node.Entity, k)
		}
		cols, vals = append(cols, col), append(vals, node.Fields[k])
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err := tx.ExecContext(ctx, q, vals...); err != nil {
		return nil, err
	}

	for _, rc := range node.Roles {
		if err := s.insertRoleEdges(ctx, tx, id, rc.Role, rc.Usernames); err != nil {
			return nil, err
		}
	}
	if err := s.insertStyleEdges(ctx, tx, id, node.Styles); err != nil {
		return nil, err
	}

	created := &mutation.CreatedNode{Ref: node.Ref, ID: id}
	for i := range node.Children {
		child, err := s.insertNode(ctx, tx, &node.Children[i], node.Entity, id)
		if err != nil {
			return nil, err
		}
		created.Children = append(created.Children, *child)
	}
	return created, nil
}

func (s *Store) update(ctx context.Context, tx *sql.Tx, op mutation.Op) error {
	table, ok := tables[op.Entity]
	if !ok {
		return transport.NewOp(transport.CodeValidation, op, fmt.Errorf("unknown entity %q", op.Entity))
	}
	keys := make([]string, 0, len(op.Fields))
	for k := range op.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sets := make([]string, 0, len(keys))
	vals := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		col, ok := columns[op.Entity][k]
		if !ok {
			return transport.NewOp(transport.CodeValidation, op, fmt.Errorf("entity %s has no field %q", op.Entity, k))
		}
		sets = append(sets, col+" = ?")
		vals = append(vals, op.Fields[k])
	}
	vals = append(vals, op.Target.ID)

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", ")), vals...)
	if err != nil {
		return transport.NewOp(transport.CodeTransport, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return transport.NewOp(transport.CodeTransport, op, err)
	}
	if n == 0 {
		return transport.NewOp(transport.CodeNotFound, op, sql.ErrNoRows)
	}
	return nil
}

func (s *Store) deleteCascading(ctx context.Context, tx *sql.Tx, op mutation.Op) error {
	owned, err := s.collectOwned(ctx, tx, op.Entity, op.Target.ID)
	if err != nil {
		return transport.NewOp(transport.CodeTransport, op, err)
	}
	// Edge tables carry no foreign key back to a single owner table, so
	// the whole subtree's edges are retracted explicitly before the row
	// cascade. Target Person and Style nodes are never touched.
	in := placeholders(len(owned))
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM role_edges WHERE owner_id IN (%s)", in), owned...); err != nil {
		return transport.NewOp(transport.CodeTransport, op, err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM style_edges WHERE owner_id IN (%s)", in), owned...); err != nil {
		return transport.NewOp(transport.CodeTransport, op, err)
	}

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", tables[op.Entity]), op.Target.ID)
	if err != nil {
		return transport.NewOp(transport.CodeTransport, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return transport.NewOp(transport.CodeTransport, op, err)
	}
	if n == 0 {
		return transport.NewOp(transport.CodeNotFound, op, sql.ErrNoRows)
	}
	return nil
}

// collectOwned lists the target id plus every id in its owned subtree.
func (s *Store) collectOwned(ctx context.Context, tx *sql.Tx, entity mutation.EntityType, id idwrap.ID) ([]any, error) {
	owned := []any{id}
	collect := func(q string, args ...any) error {
		rows, err := tx.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var child idwrap.ID
			if err := rows.Scan(&child); err != nil {
				return err
			}
			owned = append(owned, child)
		}
		return rows.Err()
	}
	switch entity {
	case mutation.EntityEvent:
		if err := collect(`SELECT id FROM sections WHERE event_id = ?`, id); err != nil {
			return nil, err
		}
		if err := collect(`SELECT id FROM brackets WHERE section_id IN (SELECT id FROM sections WHERE event_id = ?)`, id); err != nil {
			return nil, err
		}
		if err := collect(`SELECT id FROM cards WHERE section_id IN (SELECT id FROM sections WHERE event_id = ?)
			OR bracket_id IN (SELECT id FROM brackets WHERE section_id IN (SELECT id FROM sections WHERE event_id = ?))`, id, id); err != nil {
			return nil, err
		}
	case mutation.EntitySection:
		if err := collect(`SELECT id FROM brackets WHERE section_id = ?`, id); err != nil {
			return nil, err
		}
		if err := collect(`SELECT id FROM cards WHERE section_id = ?
			OR bracket_id IN (SELECT id FROM brackets WHERE section_id = ?)`, id, id); err != nil {
			return nil, err
		}
	case mutation.EntityBracket:
		if err := collect(`SELECT id FROM cards WHERE bracket_id = ?`, id); err != nil {
			return nil, err
		}
	}
	return owned, nil
}

func (s *Store) connectRole(ctx context.Context, tx *sql.Tx, op mutation.Op) error {
	if err := s.mustExist(ctx, tx, op.Entity, op.Target.ID); err != nil {
		return transport.NewOp(transport.CodeNotFound, op, err)
	}
	if err := s.insertRoleEdges(ctx, tx, op.Target.ID, op.Role, op.Usernames); err != nil {
		return transport.NewOp(transport.CodeTransport, op, err)
	}
	return nil
}

func (s *Store) disconnectRole(ctx context.Context, tx *sql.Tx, op mutation.Op) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM role_edges WHERE owner_id = ? AND role = ?`, op.Target.ID, op.Role)
	if err != nil {
		return transport.NewOp(transport.CodeTransport, op, err)
	}
	return nil
}

func (s *Store) connectStyles(ctx context.Context, tx *sql.Tx, op mutation.Op) error {
	if err := s.mustExist(ctx, tx, op.Entity, op.Target.ID); err != nil {
		return transport.NewOp(transport.CodeNotFound, op, err)
	}
	if err := s.insertStyleEdges(ctx, tx, op.Target.ID, op.StyleNames); err != nil {
		return transport.NewOp(transport.CodeTransport, op, err)
	}
	return nil
}

func (s *Store) disconnectStyles(ctx context.Context, tx *sql.Tx, op mutation.Op) error {
	for _, name := range op.StyleNames {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM style_edges WHERE owner_id = ? AND style_name = ?`, op.Target.ID, name); err != nil {
			return transport.NewOp(transport.CodeTransport, op, err)
		}
	}
	return nil
}

func (s *Store) insertRoleEdges(ctx context.Context, tx *sql.Tx, owner idwrap.ID, role string, usernames []string) error {
	for _, username := range usernames {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO people (username) VALUES (?)`, username); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO role_edges (owner_id, role, username) VALUES (?, ?, ?)`,
			owner, role, username); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertStyleEdges(ctx context.Context, tx *sql.Tx, owner idwrap.ID, names []string) error {
	for _, name := range names {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO styles (name) VALUES (?)`, name); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO style_edges (owner_id, style_name) VALUES (?, ?)`,
			owner, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) mustExist(ctx context.Context, tx *sql.Tx, entity mutation.EntityType, id idwrap.ID) error {
	table, ok := tables[entity]
	if !ok {
		return fmt.Errorf("unknown entity %q", entity)
	}
	var one int
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", table), id).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s %s does not exist", entity, id)
	}
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

// LoadEvent implements snapshot.Loader: it rebuilds the full aggregate from
// rows, sections and siblings ordered by their persisted order.
func (s *Store) LoadEvent(ctx context.Context, id idwrap.ID) (*mevent.Event, error) {
	e := &mevent.Event{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT title, date, address, cost, description, image_url, promo_video_url
		 FROM events WHERE id = ?`, id).
		Scan(&e.Title, &e.Date, &e.Address, &e.Cost, &e.Description, &e.ImageURL, &e.PromoVideoURL)
	if err == sql.ErrNoRows {
		return nil, transport.NotFound(mutation.EntityEvent, fmt.Sprintf("event %s", id))
	}
	if err != nil {
		return nil, transport.New(transport.CodeTransport, "load event", err)
	}

	if e.Organizers, err = s.loadRole(ctx, id, mperson.RoleOrganizer); err != nil {
		return nil, err
	}

	// The pool is capped at one connection, so each row set must be fully
	// drained and closed before the next query runs.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, ord, format FROM sections WHERE event_id = ? ORDER BY ord`, id)
	if err != nil {
		return nil, transport.New(transport.CodeTransport, "load sections", err)
	}
	for rows.Next() {
		var sec msection.Section
		var kind string
		if err := rows.Scan(&sec.ID, &kind, &sec.Order, &sec.Format); err != nil {
			rows.Close()
			return nil, transport.New(transport.CodeTransport, "scan section", err)
		}
		sec.Kind = msection.ParseKind(kind)
		e.Sections = append(e.Sections, sec)
	}
	if err := closeRows(rows); err != nil {
		return nil, transport.New(transport.CodeTransport, "load sections", err)
	}

	for i := range e.Sections {
		if err := s.loadSectionContent(ctx, &e.Sections[i]); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (s *Store) loadSectionContent(ctx context.Context, sec *msection.Section) error {
	var err error
	if sec.Kind == msection.KindBattles {
		if sec.Judges, err = s.loadRole(ctx, sec.ID, mperson.RoleJudge); err != nil {
			return err
		}
		if sec.Styles, err = s.loadStyles(ctx, sec.ID); err != nil {
			return err
		}
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, label, ord FROM brackets WHERE section_id = ? ORDER BY ord`, sec.ID)
		if err != nil {
			return transport.New(transport.CodeTransport, "load brackets", err)
		}
		for rows.Next() {
			var br mbracket.Bracket
			if err := rows.Scan(&br.ID, &br.Label, &br.Order); err != nil {
				rows.Close()
				return transport.New(transport.CodeTransport, "scan bracket", err)
			}
			sec.Brackets = append(sec.Brackets, br)
		}
		if err := closeRows(rows); err != nil {
			return transport.New(transport.CodeTransport, "load brackets", err)
		}
		for i := range sec.Brackets {
			br := &sec.Brackets[i]
			if br.Cards, err = s.loadCards(ctx, "bracket_id", br.ID, sec.CardKind()); err != nil {
				return err
			}
		}
		return nil
	}
	sec.Cards, err = s.loadCards(ctx, "section_id", sec.ID, sec.CardKind())
	return err
}

func (s *Store) loadCards(ctx context.Context, parentCol string, parent idwrap.ID, kind mcard.Kind) ([]mcard.Card, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, title, ord, video_src, image, date, address, cost, recap_src
		 FROM cards WHERE %s = ? ORDER BY ord`, parentCol), parent)
	if err != nil {
		return nil, transport.New(transport.CodeTransport, "load cards", err)
	}
	var cards []mcard.Card
	for rows.Next() {
		c := mcard.Card{Kind: kind}
		if err := rows.Scan(&c.ID, &c.Title, &c.Order, &c.VideoSrc, &c.Image,
			&c.Date, &c.Address, &c.Cost, &c.RecapSrc); err != nil {
			rows.Close()
			return nil, transport.New(transport.CodeTransport, "scan card", err)
		}
		cards = append(cards, c)
	}
	if err := closeRows(rows); err != nil {
		return nil, transport.New(transport.CodeTransport, "load cards", err)
	}
	for i := range cards {
		if err := s.loadCardEdges(ctx, &cards[i]); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

func (s *Store) loadCardEdges(ctx context.Context, c *mcard.Card) error {
	var err error
	switch c.Kind {
	case mcard.KindBattle:
		if c.Dancers, err = s.loadRole(ctx, c.ID, mperson.RoleDancer); err != nil {
			return err
		}
		c.Winners, err = s.loadRole(ctx, c.ID, mperson.RoleWinner)
	case mcard.KindWorkshop:
		if c.Teachers, err = s.loadRole(ctx, c.ID, mperson.RoleTeacher); err != nil {
			return err
		}
		c.Styles, err = s.loadStyles(ctx, c.ID)
	case mcard.KindParty:
		c.DJs, err = s.loadRole(ctx, c.ID, mperson.RoleDJ)
	case mcard.KindPerformance:
		c.Dancers, err = s.loadRole(ctx, c.ID, mperson.RoleDancer)
	}
	return err
}

func (s *Store) loadRole(ctx context.Context, owner idwrap.ID, role mperson.Role) ([]mperson.Person, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.username, p.display_name FROM role_edges e
		 JOIN people p ON p.username = e.username
		 WHERE e.owner_id = ? AND e.role = ? ORDER BY p.username`, owner, role.String())
	if err != nil {
		return nil, transport.New(transport.CodeTransport, "load role edges", err)
	}
	defer rows.Close()
	var people []mperson.Person
	for rows.Next() {
		var p mperson.Person
		if err := rows.Scan(&p.Username, &p.DisplayName); err != nil {
			return nil, transport.New(transport.CodeTransport, "scan person", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func (s *Store) loadStyles(ctx context.Context, owner idwrap.ID) ([]mstyle.Style, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT style_name FROM style_edges WHERE owner_id = ? ORDER BY style_name`, owner)
	if err != nil {
		return nil, transport.New(transport.CodeTransport, "load style edges", err)
	}
	defer rows.Close()
	var styles []mstyle.Style
	for rows.Next() {
		var st mstyle.Style
		if err := rows.Scan(&st.Name); err != nil {
			return nil, transport.New(transport.CodeTransport, "scan style", err)
		}
		styles = append(styles, st)
	}
	return styles, rows.Err()
}
