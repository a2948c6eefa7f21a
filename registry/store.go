package registry

import (
	"github.com/on-the-ground/dynbind/dynamic"

	memdb "github.com/hashicorp/go-memdb"
)

const (
	tableCallable = "callable"
	indexID       = "id"
	indexArity    = "arity"
)

// Entry is one registered Callable.
type Entry struct {
	// ID is unique per registration, so re-registering a name yields a new ID.
	ID        string
	Name      string
	Arity     int
	Signature string
	Callable  dynamic.Callable
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableCallable: {
				Name: tableCallable,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
					indexArity: {
						Name:    indexArity,
						Indexer: &memdb.IntFieldIndex{Field: "Arity"},
					},
				},
			},
		},
	}
}

// store is the memdb-backed catalog of one registry scope.
type store struct {
	db *memdb.MemDB
}

func newStore() (store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return store{}, err
	}
	return store{db: db}, nil
}

func (s store) load(name string) (*Entry, bool, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableCallable, indexID, name)
	if err != nil || raw == nil {
		return nil, false, err
	}
	return raw.(*Entry), true, nil
}

func (s store) insertIfAbsent(entry *Entry) (inserted bool, err error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	old, err := txn.First(tableCallable, indexID, entry.Name)
	if err != nil {
		return false, err
	} else if old != nil {
		return false, nil
	}

	if err := txn.Insert(tableCallable, entry); err != nil {
		return false, err
	}
	txn.Commit()
	return true, nil
}

func (s store) delete(name string) (deleted bool, err error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	actual, err := txn.First(tableCallable, indexID, name)
	if err != nil || actual == nil {
		return false, err
	}
	if err := txn.Delete(tableCallable, actual); err != nil {
		return false, err
	}
	txn.Commit()
	return true, nil
}

func (s store) list(index string, args ...any) ([]*Entry, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableCallable, index, args...)
	if err != nil {
		return nil, err
	}
	var entries []*Entry
	for raw := it.Next(); raw != nil; raw = it.Next() {
		entries = append(entries, raw.(*Entry))
	}
	return entries, nil
}
