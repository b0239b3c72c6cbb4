package circles

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// queryRequest is the parameter object of circles_query.
type queryRequest struct {
	Namespace string   `json:"Namespace"`
	Table     string   `json:"Table"`
	Columns   []string `json:"Columns"`
	Filter    []filter `json:"Filter,omitempty"`
	Order     []order  `json:"Order,omitempty"`
	Limit     int      `json:"Limit,omitempty"`
}

type filter struct {
	Type            string   `json:"Type"`
	FilterType      string   `json:"FilterType,omitempty"`
	Column          string   `json:"Column,omitempty"`
	Value           any      `json:"Value,omitempty"`
	ConjunctionType string   `json:"ConjunctionType,omitempty"`
	Predicates      []filter `json:"Predicates,omitempty"`
}

type order struct {
	Column    string `json:"Column"`
	SortOrder string `json:"SortOrder"`
}

func predicate(filterType, column string, value any) filter {
	return filter{Type: "FilterPredicate", FilterType: filterType, Column: column, Value: value}
}

func equals(column string, value any) filter   { return predicate("Equals", column, value) }
func lessThan(column string, value any) filter { return predicate("LessThan", column, value) }

func conjunction(kind string, preds ...filter) filter {
	return filter{Type: "Conjunction", ConjunctionType: kind, Predicates: preds}
}

func and(preds ...filter) filter { return conjunction("And", preds...) }
func or(preds ...filter) filter  { return conjunction("Or", preds...) }

func desc(columns ...string) []order {
	out := make([]order, len(columns))
	for i, c := range columns {
		out[i] = order{Column: c, SortOrder: "DESC"}
	}
	return out
}

// addressValue is the lower-case hex form the indexer stores.
func addressValue(a common.Address) string {
	return strings.ToLower(a.Hex())
}

type queryResult struct {
	Columns []string            `json:"columns"`
	Rows    [][]json.RawMessage `json:"rows"`
}

// record is one result row keyed by column name.
type record map[string]json.RawMessage

func (r queryResult) records() []record {
	out := make([]record, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make(record, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// text returns the column as a string; numbers keep their literal form.
func (r record) text(col string) string {
	raw, ok := r[col]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	lit := strings.TrimSpace(string(raw))
	if lit == "null" {
		return ""
	}
	return lit
}

func (r record) uint(col string) uint64 {
	n, _ := strconv.ParseUint(r.text(col), 10, 64) //nolint:errcheck // zero on malformed column
	return n
}

func (r record) int(col string) int64 {
	n, _ := strconv.ParseInt(r.text(col), 10, 64) //nolint:errcheck // zero on malformed column
	return n
}

func (r record) bigInt(col string) *big.Int {
	v, ok := new(big.Int).SetString(r.text(col), 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

func (r record) address(col string) common.Address {
	return common.HexToAddress(r.text(col))
}

func (r record) hash(col string) common.Hash {
	return common.HexToHash(r.text(col))
}

func (c *Client) query(ctx context.Context, q queryRequest) ([]record, error) {
	var res queryResult
	if err := c.call(ctx, "circles_query", &res, q); err != nil {
		return nil, fmt.Errorf("circles_query %s.%s: %w", q.Namespace, q.Table, err)
	}
	return res.records(), nil
}
