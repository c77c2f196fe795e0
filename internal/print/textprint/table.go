package textprint

import (
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"golang.org/x/exp/slices"
)

// TableWriter buffers values and writes them as an aligned table when closed.
//
// The columns are the exported fields of T, named after their "text" struct
// tag or the field name. Fields tagged "-" are omitted.
type TableWriter[T any] struct {
	output  io.Writer
	values  []T
	header  bool
	orderBy func(T, T) bool
}

type TableOption[T any] func(*TableWriter[T])

func Header[T any](enable bool) TableOption[T] {
	return func(t *TableWriter[T]) { t.header = enable }
}

func OrderBy[T any](less func(T, T) bool) TableOption[T] {
	return func(t *TableWriter[T]) { t.orderBy = less }
}

func NewTableWriter[T any](w io.Writer, opts ...TableOption[T]) *TableWriter[T] {
	t := &TableWriter[T]{
		output: w,
		header: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TableWriter[T]) Write(values ...T) {
	t.values = append(t.values, values...)
}

func (t *TableWriter[T]) Close() error {
	tw := tabwriter.NewWriter(t.output, 0, 4, 2, ' ', 0)

	if t.orderBy != nil {
		slices.SortStableFunc(t.values, func(a, b T) int {
			switch {
			case t.orderBy(a, b):
				return -1
			case t.orderBy(b, a):
				return +1
			default:
				return 0
			}
		})
	}

	var columns []string
	var encoders []encodeFunc
	for _, f := range reflect.VisibleFields(reflect.TypeOf((*T)(nil)).Elem()) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name := f.Name
		if tag, _, _ := strings.Cut(f.Tag.Get("text"), ","); tag != "" {
			name = tag
		}
		if name == "-" {
			continue
		}
		columns = append(columns, name)
		encoders = append(encoders, encodeFuncOfStructField(f.Type, f.Index))
	}

	// The last cell of each line is not tab terminated so it is not padded.
	if t.header {
		if _, err := io.WriteString(tw, strings.Join(columns, "\t")+"\n"); err != nil {
			return err
		}
	}

	for i := range t.values {
		v := reflect.ValueOf(&t.values[i]).Elem()
		for j, enc := range encoders {
			if j != 0 {
				if _, err := io.WriteString(tw, "\t"); err != nil {
					return err
				}
			}
			if err := enc(tw, v); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(tw, "\n"); err != nil {
			return err
		}
	}

	return tw.Flush()
}
