package provider

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
)

// ErrDecode marks a response body that could not be decoded into the quote
// envelope. It points at a defect in the fetcher, not at a transient failure.
var ErrDecode = errors.New("decoding quote response")

// Optional is a JSON field that may be absent, present with null, or set.
type Optional[T any] struct {
    Value T
    // Set reports whether the key was present in the payload at all.
    Set bool
    // Null reports whether the key was present with a JSON null.
    Null bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Set: true} }

// Valid reports whether the field carries a usable value.
func (o Optional[T]) Valid() bool { return o.Set && !o.Null }

// Get returns the value and whether it is usable.
func (o Optional[T]) Get() (T, bool) { return o.Value, o.Valid() }

// Or returns the value, or def when the field is absent or null.
func (o Optional[T]) Or(def T) T {
    if o.Valid() { return o.Value }
    return def
}

// IsZero lets `omitzero` drop absent fields when marshaling.
func (o Optional[T]) IsZero() bool { return !o.Set }

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
    o.Set = true
    if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
        var zero T
        o.Value = zero
        o.Null = true
        return nil
    }
    o.Null = false
    return json.Unmarshal(b, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
    if !o.Valid() { return []byte("null"), nil }
    return json.Marshal(o.Value)
}

// Record is a single quote as returned by the upstream service.
// Fields other than Symbol are optional upstream and are kept that way.
type Record struct {
    Symbol                     string            `json:"symbol"`
    ShortName                  Optional[string]  `json:"shortName,omitzero"`
    Currency                   Optional[string]  `json:"currency,omitzero"`
    RegularMarketPrice         Optional[float64] `json:"regularMarketPrice,omitzero"`
    RegularMarketChangePercent Optional[float64] `json:"regularMarketChangePercent,omitzero"`
    RegularMarketTime          Optional[int64]   `json:"regularMarketTime,omitzero"`

    // Raw is the record exactly as received. When present it is what gets
    // marshaled back out, so fields this type does not model survive.
    Raw json.RawMessage `json:"-"`
}

type plainRecord Record

func (r *Record) UnmarshalJSON(b []byte) error {
    var p plainRecord
    if err := json.Unmarshal(b, &p); err != nil { return err }
    *r = Record(p)
    r.Raw = append(json.RawMessage(nil), b...)
    return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
    if len(r.Raw) > 0 { return r.Raw, nil }
    return json.Marshal(plainRecord(r))
}

// Result is the outcome of one fetch. Records and Error are independent:
// the upstream may populate either, both, or neither.
type Result struct {
    Records []Record `json:"records"`
    Error   *string  `json:"error,omitempty"`
}

// HasError reports whether an error message is attached.
func (r Result) HasError() bool { return r.Error != nil }

// Source produces quote results for an ordered list of symbols.
//
//go:generate mockgen -package=desklet_test -destination=../desklet/mock_source_test.go -source=provider.go Source
type Source interface {
    Name() string
    Fetch(ctx context.Context, symbols []string) (Result, error)
}
