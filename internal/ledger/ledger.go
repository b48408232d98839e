// Package ledger holds the per-item quantity buckets and the rules that move
// quantity between them. Everything here is pure: callers pass a snapshot
// and get a verdict or a new snapshot back.
package ledger

import (
	"errors"
	"fmt"
)

// Bucket names one of the five quantity categories tracked per item.
type Bucket string

// Buckets.
const (
	BucketStore       Bucket = "store"
	BucketUse         Bucket = "use"
	BucketFaultyStore Bucket = "faulty_store"
	BucketFaultyUse   Bucket = "faulty_use"
	BucketTransfer    Bucket = "transfer"
)

// Buckets lists all buckets in display order.
var Buckets = []Bucket{BucketStore, BucketUse, BucketFaultyStore, BucketFaultyUse, BucketTransfer}

// Kind selects which bucket pair an adjustment moves quantity between.
type Kind string

// Kinds.
const (
	KindAdd         Kind = "add"
	KindUse         Kind = "use"
	KindFaultyStore Kind = "faulty_store"
	KindFaultyUse   Kind = "faulty_use"
	KindTransfer    Kind = "transfer"
)

// Kinds lists all kinds in display order.
var Kinds = []Kind{KindAdd, KindUse, KindFaultyStore, KindFaultyUse, KindTransfer}

// move is one row of the transition table. An empty source means the
// quantity enters the ledger from outside.
type move struct {
	source  Bucket
	dest    Bucket
	pending Status
	purpose string
}

var moves = map[Kind]move{
	KindAdd:         {dest: BucketStore, pending: StatusPendingAdd, purpose: "To store"},
	KindUse:         {source: BucketStore, dest: BucketUse, pending: StatusPendingUse, purpose: "For use"},
	KindFaultyStore: {source: BucketStore, dest: BucketFaultyStore, pending: StatusPendingFaultyStore, purpose: "Faulty removal"},
	KindFaultyUse:   {source: BucketUse, dest: BucketFaultyUse, pending: StatusPendingFaultyUse, purpose: "Faulty removal"},
	KindTransfer:    {source: BucketStore, dest: BucketTransfer, pending: StatusPendingTransfer, purpose: "Transfer"},
}

var (
	// ErrUnknownKind is returned for a kind outside the five known ones.
	ErrUnknownKind = errors.New("unknown adjustment kind")
	// ErrInvalidQuantity is returned when a requested quantity is not positive.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrQuantityLimit is returned when a move would take an item's total
	// past MaxQuantity.
	ErrQuantityLimit = errors.New("quantity limit exceeded")
)

// MaxQuantity bounds every bucket and the item total. It sits far below
// math.MaxInt so bucket sums cannot overflow.
const MaxQuantity = 1_000_000_000

// InsufficientError reports that the source bucket of a move holds less than
// the requested quantity.
type InsufficientError struct {
	Kind      Kind
	Bucket    Bucket
	Available int
	Requested int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient %s quantity: only %d available, %d requested", e.Bucket, e.Available, e.Requested)
}

// ParseKind converts a wire value into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := moves[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := moves[k]
	return ok
}

// Source returns the bucket k draws from. ok is false for add.
func (k Kind) Source() (b Bucket, ok bool) {
	m := moves[k]
	return m.source, m.source != ""
}

// Dest returns the bucket k adds to.
func (k Kind) Dest() Bucket {
	return moves[k].dest
}

// DefaultPurpose is the purpose recorded when the requester leaves it empty.
func DefaultPurpose(k Kind) string {
	return moves[k].purpose
}

// Quantity is the snapshot of an item's buckets.
type Quantity struct {
	Store       int `json:"item_store"`
	Use         int `json:"item_use"`
	FaultyStore int `json:"item_faulty_store"`
	FaultyUse   int `json:"item_faulty_use"`
	Transfer    int `json:"item_transfer"`
}

// Total is the sum of all buckets.
func (q Quantity) Total() int {
	return q.Store + q.Use + q.FaultyStore + q.FaultyUse + q.Transfer
}

// Get returns the value of bucket b.
func (q Quantity) Get(b Bucket) int {
	switch b {
	case BucketStore:
		return q.Store
	case BucketUse:
		return q.Use
	case BucketFaultyStore:
		return q.FaultyStore
	case BucketFaultyUse:
		return q.FaultyUse
	case BucketTransfer:
		return q.Transfer
	}
	return 0
}

// add changes bucket b by n.
func (q *Quantity) add(b Bucket, n int) {
	switch b {
	case BucketStore:
		q.Store += n
	case BucketUse:
		q.Use += n
	case BucketFaultyStore:
		q.FaultyStore += n
	case BucketFaultyUse:
		q.FaultyUse += n
	case BucketTransfer:
		q.Transfer += n
	}
}

// Valid reports whether no bucket is negative.
func (q Quantity) Valid() bool {
	for _, b := range Buckets {
		if q.Get(b) < 0 {
			return false
		}
	}
	return true
}

// Validate checks that moving n units of kind k is possible against q.
// It has no side effects and is only as fresh as the snapshot passed in.
func Validate(q Quantity, k Kind, n int) error {
	m, ok := moves[k]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
	}
	if n <= 0 {
		return ErrInvalidQuantity
	}
	if m.source == "" {
		if total := q.Total(); n > MaxQuantity || total > MaxQuantity-n {
			return fmt.Errorf("%w: item holds %d, adding %d would pass %d", ErrQuantityLimit, total, n, MaxQuantity)
		}
		return nil
	}
	if available := q.Get(m.source); n > available {
		return &InsufficientError{Kind: k, Bucket: m.source, Available: available, Requested: n}
	}
	return nil
}

// Apply returns q with n units of kind k moved into place. The check from
// Validate is repeated against q, so a stale earlier validation cannot drive
// a bucket negative.
func Apply(q Quantity, k Kind, n int) (Quantity, error) {
	if err := Validate(q, k, n); err != nil {
		return q, err
	}
	m := moves[k]
	out := q
	if m.source != "" {
		out.add(m.source, -n)
	}
	out.add(m.dest, n)
	return out, nil
}

// Delta is the record-side view of an adjustment: n in the bucket named by
// the kind, zero everywhere else.
func Delta(k Kind, n int) Quantity {
	var d Quantity
	switch k {
	case KindAdd:
		d.Store = n
	case KindUse:
		d.Use = n
	case KindFaultyStore:
		d.FaultyStore = n
	case KindFaultyUse:
		d.FaultyUse = n
	case KindTransfer:
		d.Transfer = n
	}
	return d
}
