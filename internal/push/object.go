package push

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrObjectMissing is returned when the source repository does not
	// hold a referenced object. Missing objects other than a bad root
	// mean the source graph is corrupt, so this is always fatal.
	ErrObjectMissing = errors.New("push: object missing from repository")

	// ErrParse is returned when an object payload cannot be decoded
	// during discovery.
	ErrParse = errors.New("push: malformed object payload")
)

// Kind tags an object with its role in the commit graph.
type Kind int

const (
	KindCommit Kind = iota
	KindTree
	KindMeta
	KindFile
)

// Ext returns the repository file extension for the kind.
func (k Kind) Ext() string {
	switch k {
	case KindCommit:
		return "commit"
	case KindTree:
		return "dirtree"
	case KindMeta:
		return "dirmeta"
	case KindFile:
		return "filez"
	}
	return "unknown"
}

func (k Kind) String() string { return k.Ext() }

// ObjectID identifies one content-addressed object: the SHA-256 of its
// payload bytes plus the kind tag. Identity is the hash; the same hash
// referenced from two parents is the same object.
type ObjectID struct {
	Hash string
	Kind Kind
}

// NewObjectID validates the hash and builds an id.
func NewObjectID(hash string, kind Kind) (ObjectID, error) {
	if err := checkHash(hash); err != nil {
		return ObjectID{}, err
	}
	return ObjectID{Hash: hash, Kind: kind}, nil
}

func checkHash(hash string) error {
	if len(hash) != 64 {
		return fmt.Errorf("hash %q: want 64 hex chars, got %d", hash, len(hash))
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("hash %q: invalid character %q", hash, c)
		}
	}
	return nil
}

// Path returns the sharded relative path of the object, the same path
// the remote store addresses it by: objects/<xx>/<rest>.<ext>.
func (id ObjectID) Path() string {
	return "objects/" + id.Hash[:2] + "/" + id.Hash[2:] + "." + id.Kind.Ext()
}

func (id ObjectID) String() string {
	return id.Hash[:8] + "." + id.Kind.Ext()
}

// State is the presence state of an object for this session. States
// progress strictly forward except for bounded retry; Present is
// terminal and sticky.
type State int

const (
	StateUnknown State = iota
	StateChecking
	StatePresent
	StateMissing
	StateDiscovering
	StatePendingChildren
	StateUploading
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateChecking:
		return "checking"
	case StatePresent:
		return "present"
	case StateMissing:
		return "missing"
	case StateDiscovering:
		return "discovering"
	case StatePendingChildren:
		return "pending-children"
	case StateUploading:
		return "uploading"
	case StateFailed:
		return "failed"
	}
	return "invalid"
}

// Object is one node of the session's graph. Nodes are owned exclusively
// by the session table; parents hold ids, not nodes, so a diamond
// reference resolves to a single instance.
type Object struct {
	ID ObjectID

	state    State
	children []ObjectID
	parents  []*Object // parents waiting for this object to become present
	pending  int       // children of this object not yet present
	retries  int
	queued   bool
	payload  []byte // set once discovery has fetched it, released on present
}

// State reports the current presence state.
func (o *Object) State() State { return o.state }

// Present reports whether the remote store is confirmed to hold the object.
func (o *Object) Present() bool { return o.state == StatePresent }

// Children returns the ids discovered for this object, in payload order.
func (o *Object) Children() []ObjectID { return o.children }

// Table is the session-owned object table: an arena of nodes plus an
// id index. All ids resolve through it, creating a node on first
// reference and reusing it afterwards.
type Table struct {
	arena []*Object
	index map[ObjectID]int
}

// NewTable creates an empty object table.
func NewTable() *Table {
	return &Table{index: make(map[ObjectID]int)}
}

// Get resolves an id to its node, creating one on first reference.
func (t *Table) Get(id ObjectID) *Object {
	if i, ok := t.index[id]; ok {
		return t.arena[i]
	}
	obj := &Object{ID: id}
	t.index[id] = len(t.arena)
	t.arena = append(t.arena, obj)
	return obj
}

// Lookup resolves an id without creating a node.
func (t *Table) Lookup(id ObjectID) (*Object, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return t.arena[i], true
}

// Len returns the number of unique objects referenced so far.
func (t *Table) Len() int { return len(t.arena) }

// discoverChildren parses a payload into the ordered child ids its kind
// defines: a commit references exactly one tree; a tree references its
// metadata object and zero or more file/subtree entries; metadata and
// file objects are leaves.
func discoverChildren(id ObjectID, payload []byte) ([]ObjectID, error) {
	switch id.Kind {
	case KindMeta, KindFile:
		return nil, nil
	case KindCommit:
		return parseCommit(id, payload)
	case KindTree:
		return parseTree(id, payload)
	}
	return nil, fmt.Errorf("%w: %s: unknown kind", ErrParse, id)
}

func parseCommit(id ObjectID, payload []byte) ([]ObjectID, error) {
	line, _, _ := strings.Cut(string(payload), "\n")
	hash, ok := strings.CutPrefix(line, "tree ")
	if !ok {
		return nil, fmt.Errorf("%w: commit %s: missing tree line", ErrParse, id)
	}
	tree, err := NewObjectID(hash, KindTree)
	if err != nil {
		return nil, fmt.Errorf("%w: commit %s: %v", ErrParse, id, err)
	}
	return []ObjectID{tree}, nil
}

func parseTree(id ObjectID, payload []byte) ([]ObjectID, error) {
	lines := strings.Split(strings.TrimSuffix(string(payload), "\n"), "\n")

	var children []ObjectID
	if hash, ok := strings.CutPrefix(lines[0], "meta "); ok {
		meta, err := NewObjectID(hash, KindMeta)
		if err != nil {
			return nil, fmt.Errorf("%w: tree %s: %v", ErrParse, id, err)
		}
		children = append(children, meta)
		lines = lines[1:]
	}

	for _, line := range lines {
		if line == "" {
			continue
		}
		tag, rest, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("%w: tree %s: bad entry %q", ErrParse, id, line)
		}
		hash, _, ok := strings.Cut(rest, " ")
		if !ok {
			return nil, fmt.Errorf("%w: tree %s: entry %q has no name", ErrParse, id, line)
		}
		var kind Kind
		switch tag {
		case "file":
			kind = KindFile
		case "tree":
			kind = KindTree
		default:
			return nil, fmt.Errorf("%w: tree %s: unknown entry tag %q", ErrParse, id, tag)
		}
		child, err := NewObjectID(hash, kind)
		if err != nil {
			return nil, fmt.Errorf("%w: tree %s: %v", ErrParse, id, err)
		}
		children = append(children, child)
	}
	return children, nil
}
