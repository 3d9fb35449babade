package cursor

import (
	"context"

	"github.com/k0kubun/pp/v3"
)

// Dump drains cur and pretty-prints every row with pp, for
// troubleshooting a query pipeline; no tinygraphd flag calls it. It
// closes cur when done, matching the "cursor is iterated then closed"
// lifecycle.
func Dump(ctx context.Context, cur Cursor) error {
	defer cur.Close()

	printer := pp.New()
	printer.SetColoringEnabled(false)

	n := cur.ColumnCount()
	for {
		has, err := cur.Next(ctx)
		if err != nil {
			return err
		}
		if !has {
			return nil
		}

		row := make(map[string]string, n)
		for i := 0; i < n; i++ {
			name, ok := cur.VariableName(i)
			if !ok {
				name = SyntheticVarName(i)
			}
			lexical, _, _ := cur.String(i)
			row[name] = lexical
		}
		printer.Println(row)
	}
}

// SyntheticVarName is the "varN" (1-based) fallback the serializer family
// uses when a cursor reports no variable name for a column.
func SyntheticVarName(i int) string {
	// 1-based per the serializer family's variable-naming rule.
	const digits = "0123456789"
	n := i + 1
	if n < 10 {
		return "var" + string(digits[n])
	}
	buf := []byte{}
	for n > 0 {
		buf = append([]byte{digits[n%10]}, buf...)
		n /= 10
	}
	return "var" + string(buf)
}
