package kvstore

import (
	"bytes"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/hexastore/pkg/store"
)

// Table represents a logical table in the key-value store
type Table byte

const (
	// Dictionary: term hash -> id, id -> encoded term
	TableTerm2ID Table = iota
	TableID2Term

	// Permutation indexes
	TableSPO
	TableSOP
	TablePSO
	TablePOS
	TableOSP
	TableOPS
)

func (t Table) String() string {
	switch t {
	case TableTerm2ID:
		return "term2id"
	case TableID2Term:
		return "id2term"
	case TableSPO:
		return "spo"
	case TableSOP:
		return "sop"
	case TablePSO:
		return "pso"
	case TablePOS:
		return "pos"
	case TableOSP:
		return "osp"
	case TableOPS:
		return "ops"
	default:
		return "unknown"
	}
}

// PrefixKey adds a table prefix to a key
func PrefixKey(table Table, key []byte) []byte {
	result := make([]byte, 1+len(key))
	result[0] = byte(table)
	copy(result[1:], key)
	return result
}

// storage is an in-memory badger instance with table-prefixed keys
type storage struct {
	db *badger.DB
}

func openStorage(logger *zap.Logger) (*storage, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(&badgerLogger{logger.Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &storage{db: db}, nil
}

func (s *storage) begin(writable bool) *txn {
	return &txn{txn: s.db.NewTransaction(writable), writable: writable}
}

func (s *storage) close() error {
	return s.db.Close()
}

// txn wraps a badger transaction
type txn struct {
	txn      *badger.Txn
	writable bool
}

// get retrieves a value by key, returning store.ErrNotFound if absent
func (t *txn) get(table Table, key []byte) ([]byte, error) {
	item, err := t.txn.Get(PrefixKey(table, key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// has reports whether key exists
func (t *txn) has(table Table, key []byte) (bool, error) {
	_, err := t.txn.Get(PrefixKey(table, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *txn) set(table Table, key, value []byte) error {
	if !t.writable {
		return errors.New("transaction is read-only")
	}
	return t.txn.Set(PrefixKey(table, key), value)
}

// scan iterates over every key of table starting with prefix
func (t *txn) scan(table Table, prefix []byte) *scanner {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = PrefixKey(table, prefix)
	return &scanner{it: t.txn.NewIterator(opts), prefix: opts.Prefix}
}

func (t *txn) commit() error {
	return t.txn.Commit()
}

func (t *txn) discard() {
	t.txn.Discard()
}

// scanner walks keys sharing a prefix
type scanner struct {
	it      *badger.Iterator
	prefix  []byte
	started bool
}

// next advances to the next key
func (s *scanner) next() bool {
	if !s.started {
		s.it.Seek(s.prefix)
		s.started = true
	} else {
		s.it.Next()
	}
	return s.it.ValidForPrefix(s.prefix)
}

// key returns the current key without the table byte
func (s *scanner) key() []byte {
	return bytes.Clone(s.it.Item().Key()[1:])
}

func (s *scanner) close() {
	s.it.Close()
}

// badgerLogger routes badger's log output to zap
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
