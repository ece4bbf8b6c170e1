package pgstore

import (
	"fmt"
	"strings"
)

// Small helpers for assembling filtered listings. Column names always come
// from the repo code, never from the caller.

type cond struct {
	expr string // with %d placeholder for the arg position
	arg  any
}

func condEq(col string, v any) cond {
	if v == nil {
		return cond{}
	}
	return cond{expr: col + " = $%d", arg: v}
}

func condILike(col string, search string) cond {
	if search == "" {
		return cond{}
	}
	return cond{expr: col + " ILIKE $%d", arg: "%" + escapeLike(search) + "%"}
}

func condILikeAny(search string, cols ...string) cond {
	if search == "" {
		return cond{}
	}
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, c+" ILIKE $%[1]d")
	}
	return cond{expr: "(" + strings.Join(parts, " OR ") + ")", arg: "%" + escapeLike(search) + "%"}
}

func buildWhere(conds ...cond) (string, []any) {
	var exprs []string
	var args []any
	for _, c := range conds {
		if c.expr == "" {
			continue
		}
		args = append(args, c.arg)
		exprs = append(exprs, fmt.Sprintf(c.expr, len(args)))
	}
	if len(exprs) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(exprs, " AND "), args
}

func orderClause(key string, desc bool, allowed map[string]string, def string) string {
	col, ok := allowed[key]
	if !ok {
		return def
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func strOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func u64OrNil(v *uint64) any {
	if v == nil {
		return nil
	}
	return *v
}
